package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"budgie/internal/core"
)

// AzureGateway uses Azure Computer Vision printed-text recognition.
type AzureGateway struct {
	client computervision.BaseClient
}

var _ Gateway = (*AzureGateway)(nil)

func NewAzureGateway(endpoint, apiKey string) *AzureGateway {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &AzureGateway{client: client}
}

func (g *AzureGateway) DetectText(ctx context.Context, image []byte) (string, error) {
	result, err := g.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(image)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		oe := &core.OcrError{Provider: "azure", Err: err}
		var de autorest.DetailedError
		if errors.As(err, &de) {
			if code, ok := de.StatusCode.(int); ok {
				oe.StatusCode = code
			}
			oe.Message = de.Message
		}
		return "", oe
	}

	text := joinOcrResult(result)
	if strings.TrimSpace(text) == "" {
		return "", &core.OcrError{Provider: "azure", Message: "no text detected"}
	}
	return text, nil
}

// joinOcrResult flattens regions into newline separated lines of space
// separated words.
func joinOcrResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}
	return strings.Join(lines, "\n")
}
