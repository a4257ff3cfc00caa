package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/vision/v1"

	"budgie/internal/core"
)

// ProxyRequest is the body accepted by the server-side vision proxy.
type ProxyRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// ProxyGateway sends images to the vision proxy endpoint so that the API
// key never leaves the server.
type ProxyGateway struct {
	url    string
	client *http.Client
}

var _ Gateway = (*ProxyGateway)(nil)

func NewProxyGateway(url string, timeout time.Duration) *ProxyGateway {
	return &ProxyGateway{url: url, client: newHTTPClient(timeout)}
}

func (g *ProxyGateway) DetectText(ctx context.Context, image []byte) (string, error) {
	body, err := json.Marshal(ProxyRequest{ImageBase64: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return "", &core.OcrError{Provider: "proxy", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", &core.OcrError{Provider: "proxy", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &core.OcrError{Provider: "proxy", Err: fmt.Errorf("fetch: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &core.OcrError{Provider: "proxy", Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return "", &core.OcrError{Provider: "proxy", StatusCode: resp.StatusCode, Message: e.Error}
	}

	var out vision.BatchAnnotateImagesResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &core.OcrError{Provider: "proxy", Err: fmt.Errorf("decode response: %w", err)}
	}
	return TextFromResponse("proxy", &out)
}
