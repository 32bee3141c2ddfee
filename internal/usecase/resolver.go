package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"BarcodeScanner/internal/barcode"
	"BarcodeScanner/internal/domain"
	"BarcodeScanner/internal/ports"
	"BarcodeScanner/internal/source"
)

var (
	// ErrImagePair rejects image submissions that are not exactly a
	// front photo plus an ingredients-label photo.
	ErrImagePair = errors.New("exactly two images required: front and ingredients")

	// ErrBadImage marks an upload that could not be normalized to JPEG.
	ErrBadImage = errors.New("image cannot be processed")
)

// ResolverDeps wires all driven adapters into the resolution pipeline.
type ResolverDeps struct {
	Store     ports.ProductRepository
	Adapters  []source.Adapter
	Analyzer  ports.Analyzer
	Images    ports.ImageStore
	Converter ports.ImageConverter
	// BatchAdapter is the single source used by batch import; in
	// production it is the certification tier.
	BatchAdapter source.Adapter
	// BatchDelay paces consecutive batch-import lookups so the
	// certification source does not ban us. Defaults to one second.
	BatchDelay time.Duration
	Logger     *slog.Logger
}

// Resolver implements the multi-source resolution pipeline: cache check,
// source fallback chain, content analysis, merge, and idempotent
// persistence.
//
// Concurrent resolution of the same barcode is deliberately unguarded:
// two racing requests may both probe sources, and the later write wins.
type Resolver struct {
	store        ports.ProductRepository
	adapters     []source.Adapter
	analyzer     ports.Analyzer
	images       ports.ImageStore
	converter    ports.ImageConverter
	batchAdapter source.Adapter
	batchDelay   time.Duration
	logger       *slog.Logger
}

// NewResolver constructs the orchestration component.
func NewResolver(deps ResolverDeps) *Resolver {
	delay := deps.BatchDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Resolver{
		store:        deps.Store,
		adapters:     deps.Adapters,
		analyzer:     deps.Analyzer,
		images:       deps.Images,
		converter:    deps.Converter,
		batchAdapter: deps.BatchAdapter,
		batchDelay:   delay,
		logger:       deps.Logger,
	}
}

// Resolve returns the cached record for the barcode, or walks the source
// chain, analyzes the winning document, and caches the result. A barcode
// no source recognizes yields domain.ErrNotFound, which is never cached.
func (r *Resolver) Resolve(ctx context.Context, code string) (domain.Product, error) {
	if err := barcode.Validate(code); err != nil {
		return domain.Product{}, err
	}

	cached, ok, err := r.store.Find(ctx, code)
	if err != nil {
		return domain.Product{}, fmt.Errorf("cache lookup %s: %w", code, err)
	}
	if ok {
		r.debug("cache hit", "barcode", code)
		return cached, nil
	}

	return r.resolveFresh(ctx, code)
}

// resolveFresh probes each source tier in priority order, stops at the
// first sufficient document, and persists the merged record via insert
// (this path only runs when no row exists yet).
func (r *Resolver) resolveFresh(ctx context.Context, code string) (domain.Product, error) {
	for _, adapter := range r.adapters {
		doc, outcome := adapter.Fetch(ctx, code)
		if outcome != source.Sufficient {
			r.debug("tier exhausted", "barcode", code, "source", adapter.Name(), "outcome", int(outcome))
			continue
		}

		var product domain.Product
		switch {
		case doc.PresenceOnly:
			// The barcode is known but carries no data. Cached as an
			// existence-only placeholder so we stop re-probing sources;
			// distinct from not-found, which is never cached.
			product = domain.Product{Barcode: code, Status: domain.StatusPending}
		case doc.NameOnly:
			product = domain.Product{Barcode: code, Name: doc.Name, Status: domain.StatusPending}
		default:
			assessment := r.analyzer.AnalyzeData(ctx, doc.Fields)
			product = mergeStructured(code, doc, assessment)
		}

		r.debug("resolved", "barcode", code, "source", adapter.Name(), "name", product.Name)

		if err := r.store.Insert(ctx, product); err != nil {
			return domain.Product{}, fmt.Errorf("persist %s: %w", code, err)
		}
		return product, nil
	}

	return domain.Product{}, domain.ErrNotFound
}

// ResolveFromImages analyzes exactly two user-submitted package photos
// (front, then ingredients label), stores their normalized JPEGs, and
// upserts a pending record awaiting review. Upsert because this flow
// commonly refreshes an existing barcode with newer photos.
func (r *Resolver) ResolveFromImages(ctx context.Context, code string, images [][]byte) (domain.Product, error) {
	if err := barcode.Validate(code); err != nil {
		return domain.Product{}, err
	}
	if len(images) != 2 {
		return domain.Product{}, ErrImagePair
	}

	suffixes := []string{"front", "ingredients"}
	jpegs := make([][]byte, 0, len(images))
	urls := make([]string, 0, len(images))
	for i, img := range images {
		converted, err := r.converter.ToJPEG(img)
		if err != nil {
			return domain.Product{}, fmt.Errorf("%w: %v", ErrBadImage, err)
		}

		url, err := r.images.Store(converted, fmt.Sprintf("%s_%s.jpg", code, suffixes[i]))
		if err != nil {
			return domain.Product{}, fmt.Errorf("store %s image: %w", suffixes[i], err)
		}

		jpegs = append(jpegs, converted)
		urls = append(urls, url)
	}

	assessment := r.analyzer.AnalyzeImages(ctx, code, jpegs)

	product := mergeAssessment(code, assessment)
	product.ImageFront = urls[0]
	product.ImageIngredients = urls[1]
	product.Status = domain.StatusPending

	if err := r.store.Upsert(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("persist %s: %w", code, err)
	}
	return product, nil
}

// Reprocess drops any cached record and re-runs the resolution chain
// from scratch. This is the only refresh mechanism; there is no
// time-based cache expiry.
func (r *Resolver) Reprocess(ctx context.Context, code string) (domain.Product, error) {
	if err := barcode.Validate(code); err != nil {
		return domain.Product{}, err
	}

	_, ok, err := r.store.Find(ctx, code)
	if err != nil {
		return domain.Product{}, fmt.Errorf("cache lookup %s: %w", code, err)
	}
	if ok {
		if err := r.store.Delete(ctx, code); err != nil {
			return domain.Product{}, fmt.Errorf("drop cached %s: %w", code, err)
		}
	}

	return r.resolveFresh(ctx, code)
}

// BatchImport pulls each barcode through the certification source,
// analyzer, and upsert, pacing items to one lookup per BatchDelay.
// Per-item failures are reported in the result map and never abort the
// remaining batch.
func (r *Resolver) BatchImport(ctx context.Context, barcodes []string) map[string]string {
	results := make(map[string]string, len(barcodes))
	limiter := rate.NewLimiter(rate.Every(r.batchDelay), 1)

	for _, code := range barcodes {
		if err := limiter.Wait(ctx); err != nil {
			results[code] = fmt.Sprintf("error: %v", err)
			continue
		}
		results[code] = r.importOne(ctx, code)
	}
	return results
}

func (r *Resolver) importOne(ctx context.Context, code string) string {
	if err := barcode.Validate(code); err != nil {
		return "invalid_barcode"
	}

	doc, outcome := r.batchAdapter.Fetch(ctx, code)
	// Batch import only needs a title; a missing description does not
	// disqualify the record the way it does in the fallback chain.
	if outcome == source.Absent || doc.Name == "" {
		return "not_found"
	}

	assessment := r.analyzer.AnalyzeData(ctx, doc.Fields)
	product := mergeStructured(code, doc, assessment)

	if doc.ImageFront != "" {
		localURL, err := r.images.StoreFromURL(ctx, doc.ImageFront, fmt.Sprintf("%s_%s.jpg", code, r.batchAdapter.Name()))
		if err != nil {
			r.debug("thumbnail download failed", "barcode", code, "error", err)
		} else {
			product.ImageFront = localURL
		}
	}

	if err := r.store.Upsert(ctx, product); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return "ok"
}

// Get fetches a single cached record for curation.
func (r *Resolver) Get(ctx context.Context, code string) (domain.Product, error) {
	if err := barcode.Validate(code); err != nil {
		return domain.Product{}, err
	}

	product, ok, err := r.store.Find(ctx, code)
	if err != nil {
		return domain.Product{}, fmt.Errorf("find %s: %w", code, err)
	}
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return product, nil
}

// List returns every cached record.
func (r *Resolver) List(ctx context.Context) ([]domain.Product, error) {
	return r.store.List(ctx)
}

// ListByTag filters cached records by an exact category tag.
func (r *Resolver) ListByTag(ctx context.Context, tag string) ([]domain.Product, error) {
	return r.store.ListByTag(ctx, tag)
}

// Update applies a partial curation edit and upserts the result.
func (r *Resolver) Update(ctx context.Context, code string, update domain.ProductUpdate) (domain.Product, error) {
	product, err := r.Get(ctx, code)
	if err != nil {
		return domain.Product{}, err
	}

	update.Apply(&product)
	if err := r.store.Upsert(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("persist %s: %w", code, err)
	}
	return product, nil
}

// Delete removes the cached record together with its stored images.
// Image removal is best-effort; the row delete is authoritative.
func (r *Resolver) Delete(ctx context.Context, code string) error {
	product, err := r.Get(ctx, code)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete %s: %w", code, err)
	}

	for _, url := range []string{product.ImageFront, product.ImageIngredients} {
		if url == "" {
			continue
		}
		if err := r.images.Delete(url); err != nil {
			r.debug("image cleanup failed", "barcode", code, "url", url, "error", err)
		}
	}
	return nil
}

// mergeStructured builds the canonical record from a structured-source
// document and its assessment. Analyzer fields win wherever present; raw
// source fields back-fill the rest. Everything without a first-class
// column lands in extra.
func mergeStructured(code string, doc source.Document, assessment domain.Assessment) domain.Product {
	product := mergeAssessment(code, assessment)
	product.Status = domain.StatusVerified

	if product.Name == "" {
		product.Name = doc.Name
	}
	if product.Manufacturer == "" {
		product.Manufacturer = doc.Manufacturer
	}
	if product.Score == nil {
		product.Score = doc.Rating
	}
	product.ImageFront = doc.ImageFront
	product.ImageIngredients = doc.ImageIngredients

	for key, value := range doc.Extra {
		product.Extra[key] = value
	}
	return product
}

// mergeAssessment maps the analyzer's first-class fields onto the record
// and routes the remainder into extra. A degraded or out-of-domain
// assessment simply leaves everything empty for the caller to back-fill.
func mergeAssessment(code string, assessment domain.Assessment) domain.Product {
	extra := map[string]any{
		"ingredients":        assessment.Ingredients,
		"explanation_score":  assessment.ExplanationScore,
		"harmful_components": assessment.HarmfulComponents,
		"recommendedfor":     assessment.RecommendedFor,
		"frequency":          assessment.Frequency,
		"alternatives":       assessment.Alternatives,
	}
	if assessment.Analysis != "" {
		extra["analysis"] = assessment.Analysis
	}

	return domain.Product{
		Barcode:      code,
		Name:         assessment.ProductName,
		Manufacturer: assessment.Manufacturer,
		Score:        assessment.OverallScore,
		Nutrition:    assessment.Nutrition,
		Allergens:    assessment.Allergens,
		Tags:         assessment.Tags,
		Extra:        extra,
	}
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
