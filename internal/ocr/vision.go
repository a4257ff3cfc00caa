package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/vision/v1"

	"budgie/internal/core"
)

// VisionGateway calls the Google Vision images:annotate endpoint directly.
type VisionGateway struct {
	svc *vision.Service
}

var _ Gateway = (*VisionGateway)(nil)

// NewVisionGateway builds a Vision client authenticated by API key. endpoint
// overrides the REST base URL when non-empty.
func NewVisionGateway(ctx context.Context, apiKey, endpoint string, timeout time.Duration, extra ...option.ClientOption) (*VisionGateway, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if timeout > 0 {
		opts = append(opts, option.WithHTTPClient(newKeyedClient(apiKey, timeout)))
	}
	opts = append(opts, extra...)

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &VisionGateway{svc: svc}, nil
}

// Annotate runs document text detection on a base64 image and returns the
// raw response. The proxy endpoint relays this as-is.
func (g *VisionGateway) Annotate(ctx context.Context, imageBase64 string) (*vision.BatchAnnotateImagesResponse, error) {
	resp, err := g.svc.Images.Annotate(NewAnnotateRequest(imageBase64)).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &core.OcrError{Provider: "vision", StatusCode: gerr.Code, Message: gerr.Message, Err: err}
		}
		return nil, &core.OcrError{Provider: "vision", Err: err}
	}
	return resp, nil
}

func (g *VisionGateway) DetectText(ctx context.Context, image []byte) (string, error) {
	resp, err := g.Annotate(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return "", err
	}
	return TextFromResponse("vision", resp)
}
