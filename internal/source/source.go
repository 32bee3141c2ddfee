// Package source translates external barcode-lookup services into one
// uniform fetch contract consumed by the resolution chain.
package source

import "context"

// Outcome classifies what an adapter got back for a barcode.
type Outcome int

const (
	// Absent covers both "source has no record" and transient failure;
	// the chain does not distinguish them and simply tries the next tier.
	Absent Outcome = iota
	// Insufficient means the source knows the barcode but returned less
	// than its tier requires (e.g. a structured source with a title but
	// no ingredient text).
	Insufficient
	// Sufficient means the document carries enough data for its tier.
	Sufficient
)

// Document is the projected result of one source lookup. Structured
// sources fill Fields (the allow-list payload handed to the analyzer)
// and whatever first-class fields they know; scrape sources carry a bare
// name, or nothing at all when only the barcode's existence is known.
type Document struct {
	Name             string
	IngredientsText  string
	Manufacturer     string
	Rating           *float64
	ImageFront       string
	ImageIngredients string

	// Fields is the raw allow-list projection sent to the analyzer.
	// Missing source fields are kept as empty strings, not dropped,
	// to simplify downstream handling.
	Fields map[string]any

	// Extra carries source metadata routed into the record's extra bag.
	Extra map[string]any

	// NameOnly marks scrape-tier results that carry nothing but a name
	// and therefore skip the analyzer.
	NameOnly bool

	// PresenceOnly marks a bare existence hit: the source lists the
	// barcode but no name could be extracted.
	PresenceOnly bool
}

// Adapter is one tier of the fallback chain. Fetch never returns an
// error: ordinary not-found and network faults are absorbed (and logged)
// as Absent so the caller can move on to the next tier.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, barcode string) (Document, Outcome)
}
