package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// MaxEdge bounds the longest side of an image sent for OCR.
	MaxEdge = 1000
	// JPEGQuality is used when re-encoding a downscaled image.
	JPEGQuality = 70
)

// Downscale decodes a JPEG or PNG, shrinks it so neither side exceeds
// MaxEdge, and re-encodes it as JPEG. Smaller images are only re-encoded.
func Downscale(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if needsResize(img.Bounds()) {
		img = imaging.Fit(img, MaxEdge, MaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func needsResize(b image.Rectangle) bool {
	return b.Dx() > MaxEdge || b.Dy() > MaxEdge
}
