// Package barcode validates product barcode formats before any lookup
// is attempted, so malformed input never burns source quota.
package barcode

import "BarcodeScanner/internal/domain"

// Validate accepts EAN-8, UPC-A/EAN-12 and EAN-13 codes: decimal digits
// only, length 8, 12 or 13.
func Validate(code string) error {
	switch len(code) {
	case 8, 12, 13:
	default:
		return domain.ErrInvalidBarcode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return domain.ErrInvalidBarcode
		}
	}
	return nil
}
