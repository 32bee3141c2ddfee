package domain

import "errors"

var (
	// ErrInvalidBarcode rejects malformed input before any I/O happens.
	ErrInvalidBarcode = errors.New("invalid barcode format")

	// ErrNotFound means no source recognizes the barcode. This outcome
	// is never cached, so a later request retries the full chain.
	ErrNotFound = errors.New("product not found")

	// ErrConflict is returned by inserts when the barcode already has a
	// row; flows that might re-resolve should use upsert instead.
	ErrConflict = errors.New("barcode already exists")
)
