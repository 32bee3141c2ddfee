package ports

import (
	"context"

	"BarcodeScanner/internal/domain"
)

// ProductRepository persists resolved products keyed uniquely by barcode.
type ProductRepository interface {
	Find(ctx context.Context, barcode string) (domain.Product, bool, error)
	Insert(ctx context.Context, product domain.Product) error
	Upsert(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, barcode string) error
	List(ctx context.Context) ([]domain.Product, error)
	ListByTag(ctx context.Context, tag string) ([]domain.Product, error)
}

// Analyzer produces a product assessment from raw source data or from
// package photos. Implementations never fail: any internal fault degrades
// to a placeholder assessment so the resolution pipeline can finish with
// a weak record instead of an error.
type Analyzer interface {
	AnalyzeData(ctx context.Context, data map[string]any) domain.Assessment
	AnalyzeImages(ctx context.Context, barcode string, jpegImages [][]byte) domain.Assessment
}

// ImageStore keeps normalized package photos and hands back public URLs.
// The resolver treats returned URLs as opaque strings to persist.
type ImageStore interface {
	Store(data []byte, name string) (string, error)
	StoreFromURL(ctx context.Context, srcURL, name string) (string, error)
	Delete(publicURL string) error
}

// ImageConverter normalizes an uploaded image to a compressed JPEG.
type ImageConverter interface {
	ToJPEG(data []byte) ([]byte, error)
}
