package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// BarcodeListScraper extracts a product name from an HTML barcode index.
// Last-resort tier: it yields a name and nothing else, or — when the page
// lists the barcode but no name can be parsed — a bare presence marker,
// which the resolver caches as an existence-only placeholder.
type BarcodeListScraper struct {
	client *http.Client
	logger *slog.Logger

	name string
	// urlTemplate receives the barcode via fmt.Sprintf.
	urlTemplate string
	// anyTable retries the lookup against the first table on the page
	// when the expected class is missing (some mirrors drop it).
	anyTable bool
}

var _ Adapter = (*BarcodeListScraper)(nil)

// NewBarcodeListScraper wires an HTTP client; a nil client gets the 10s
// timeout these sites tolerate.
func NewBarcodeListScraper(client *http.Client, name, urlTemplate string, anyTable bool, logger *slog.Logger) *BarcodeListScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &BarcodeListScraper{
		client:      client,
		logger:      logger,
		name:        name,
		urlTemplate: urlTemplate,
		anyTable:    anyTable,
	}
}

// Name identifies the tier in logs and batch reports.
func (b *BarcodeListScraper) Name() string {
	return b.name
}

// Fetch downloads the search page and extracts the product name from the
// first data row of the barcode table.
func (b *BarcodeListScraper) Fetch(ctx context.Context, barcode string) (Document, Outcome) {
	doc, err := getDocument(ctx, b.client, fmt.Sprintf(b.urlTemplate, barcode))
	if err != nil {
		b.warn("scrape lookup failed", "barcode", barcode, "error", err)
		return Document{}, Absent
	}

	name, present := extractName(doc, b.anyTable)
	switch {
	case name != "":
		return Document{Name: name, NameOnly: true}, Sufficient
	case present:
		return Document{PresenceOnly: true}, Sufficient
	default:
		return Document{}, Absent
	}
}

// extractName parses the known table layout: class "randomBarcodes",
// first row is the header, third cell of the first data row holds the
// product name. The second return value reports whether a data row for
// the barcode exists at all.
func extractName(doc *goquery.Document, anyTable bool) (string, bool) {
	table := doc.Find("table.randomBarcodes").First()
	if table.Length() == 0 && anyTable {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return "", false
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return "", false
	}

	cells := rows.Eq(1).Find("td")
	if cells.Length() < 3 {
		return "", true
	}
	return strings.TrimSpace(cells.Eq(2).Text()), true
}

func (b *BarcodeListScraper) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
