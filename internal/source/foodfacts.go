package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// foodFactsAllowList is the fixed projection of the 20+ raw fields the
// food database returns per product. Fields outside the list are dropped;
// listed fields that are missing become empty strings.
var foodFactsAllowList = []string{
	"ingredients_text",
	"brands",
	"categories",
	"categories_old",
	"allergens",
	"allergens_from_ingredients",
	"allergens_from_user",
	"origins",
	"additives_original_tags",
	"additives_tags",
	"compared_to_category",
	"countries",
	"created_t",
	"data_sources",
	"image_front_url",
	"image_ingredients_url",
	"ingredients",
	"labels",
	"known_ingredients_n",
	"nutriments",
	"serving_quantity",
	"serving_quantity_unit",
	"serving_size",
}

// FoodFactsAPI queries the collaborative food database. Second tier:
// broad coverage, community-sourced data.
type FoodFactsAPI struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

var _ Adapter = (*FoodFactsAPI)(nil)

// NewFoodFactsAPI wires an HTTP client; a nil client gets a 10s timeout.
func NewFoodFactsAPI(client *http.Client, baseURL string, logger *slog.Logger) *FoodFactsAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FoodFactsAPI{client: client, baseURL: baseURL, logger: logger}
}

// Name identifies the tier in logs and batch reports.
func (f *FoodFactsAPI) Name() string {
	return "foodfacts"
}

type foodFactsResponse struct {
	Status  int            `json:"status"`
	Product map[string]any `json:"product"`
}

// Fetch retrieves the product document and projects the allow-list.
// Sufficient only with both a product name and ingredient text; a
// name-only hit from this tier falls through to the scrape sources.
func (f *FoodFactsAPI) Fetch(ctx context.Context, barcode string) (Document, Outcome) {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", f.baseURL, url.PathEscape(barcode))

	var payload foodFactsResponse
	if err := getJSON(ctx, f.client, reqURL, &payload); err != nil {
		f.warn("foodfacts lookup failed", "barcode", barcode, "error", err)
		return Document{}, Absent
	}

	if payload.Status != 1 || payload.Product == nil {
		return Document{}, Absent
	}

	product := payload.Product
	name := stringField(product, "product_name")
	if name == "" {
		name = stringField(product, "generic_name")
	}

	fields := map[string]any{
		"product_name": name,
	}
	if name == "" {
		fields["product_name"] = "No Title"
	}
	for _, key := range foodFactsAllowList {
		if v, ok := product[key]; ok && v != nil {
			fields[key] = v
		} else {
			fields[key] = ""
		}
	}

	doc := Document{
		Name:             name,
		IngredientsText:  stringField(product, "ingredients_text"),
		Manufacturer:     stringField(product, "brands"),
		ImageFront:       stringField(product, "image_front_url"),
		ImageIngredients: stringField(product, "image_ingredients_url"),
		Fields:           fields,
	}

	if doc.Name == "" || doc.IngredientsText == "" {
		return doc, Insufficient
	}
	return doc, Sufficient
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (f *FoodFactsAPI) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
