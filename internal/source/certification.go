package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// CertificationAPI queries the national quality-certification database.
// It is the most authoritative tier: records carry lab ratings and
// curated descriptions.
type CertificationAPI struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

var _ Adapter = (*CertificationAPI)(nil)

// NewCertificationAPI wires an HTTP client; a nil client gets a 10s timeout.
func NewCertificationAPI(client *http.Client, baseURL string, logger *slog.Logger) *CertificationAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CertificationAPI{client: client, baseURL: baseURL, logger: logger}
}

// Name identifies the tier in logs and batch reports.
func (c *CertificationAPI) Name() string {
	return "certification"
}

type certificationResponse struct {
	Response struct {
		Title        string          `json:"title"`
		TotalRating  *float64        `json:"total_rating"`
		Description  string          `json:"description"`
		CategoryName string          `json:"category_name"`
		Manufacturer string          `json:"manufacturer"`
		Thumbnail    string          `json:"thumbnail"`
		Research     struct {
			Image string `json:"image"`
		} `json:"research"`
		Recommendations []json.RawMessage `json:"recommendations"`
	} `json:"response"`
}

// Fetch looks the barcode up and projects the product fields relevant to
// analysis. A result without both a title and a description is below this
// tier's bar and falls through to the next source.
func (c *CertificationAPI) Fetch(ctx context.Context, barcode string) (Document, Outcome) {
	reqURL := fmt.Sprintf("%s/rest/1/search/barcode?barcode=%s", c.baseURL, url.QueryEscape(barcode))

	var payload certificationResponse
	if err := getJSON(ctx, c.client, reqURL, &payload); err != nil {
		c.warn("certification lookup failed", "barcode", barcode, "error", err)
		return Document{}, Absent
	}

	product := payload.Response
	if product.Title == "" {
		return Document{}, Absent
	}

	doc := Document{
		Name:             product.Title,
		IngredientsText:  product.Description,
		Manufacturer:     product.Manufacturer,
		Rating:           product.TotalRating,
		ImageFront:       product.Thumbnail,
		ImageIngredients: product.Research.Image,
		Fields: map[string]any{
			"title":         product.Title,
			"total_rating":  product.TotalRating,
			"description":   product.Description,
			"category_name": product.CategoryName,
			"manufacturer":  product.Manufacturer,
		},
		Extra: map[string]any{
			"description":   product.Description,
			"category_name": product.CategoryName,
		},
	}
	if len(product.Recommendations) > 0 {
		doc.Extra["recommendations"] = product.Recommendations
	}

	if product.Description == "" {
		return doc, Insufficient
	}
	return doc, Sufficient
}

func (c *CertificationAPI) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
