// Package media handles package-photo normalization and storage.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png"

	_ "golang.org/x/image/webp"

	"BarcodeScanner/internal/ports"
)

const defaultQuality = 90

// JPEGConverter re-encodes any accepted upload (jpeg, png, webp) as a
// compressed JPEG. Alpha channels are flattened by the encoder.
type JPEGConverter struct {
	quality int
}

var _ ports.ImageConverter = (*JPEGConverter)(nil)

// NewJPEGConverter uses quality 90 when the argument is out of range.
func NewJPEGConverter(quality int) *JPEGConverter {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &JPEGConverter{quality: quality}
}

// ToJPEG decodes and re-encodes the image bytes.
func (c *JPEGConverter) ToJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
