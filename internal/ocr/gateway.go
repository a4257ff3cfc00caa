// Package ocr turns receipt images into text through a hosted OCR service.
//
// Three transports are provided: the Google Vision REST API called directly
// with an API key, the same API reached through the server-side proxy
// endpoint, and Azure Computer Vision. All of them satisfy Gateway.
package ocr

import (
	"context"
	"net/http"
	"time"
)

// Gateway submits an image and returns the recognised text. Failures are
// reported as *core.OcrError.
type Gateway interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

// DocumentTextDetection is the Vision feature used for receipts.
const DocumentTextDetection = "DOCUMENT_TEXT_DETECTION"

// maxResponseBytes caps how much of an annotate response is read.
const maxResponseBytes = 16 << 20

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
