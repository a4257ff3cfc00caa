package ocr

import (
	"strings"

	"google.golang.org/api/vision/v1"

	"budgie/internal/core"
)

// ReconstructText walks pages, blocks, paragraphs, words and symbols,
// appending each symbol's text followed by the separator its detected break
// calls for. It keeps the line structure that the flat text field loses.
func ReconstructText(ann *vision.TextAnnotation) string {
	if ann == nil {
		return ""
	}
	var b strings.Builder
	for _, page := range ann.Pages {
		if page == nil {
			continue
		}
		for _, block := range page.Blocks {
			if block == nil {
				continue
			}
			for _, para := range block.Paragraphs {
				if para == nil {
					continue
				}
				for _, word := range para.Words {
					if word == nil {
						continue
					}
					for _, sym := range word.Symbols {
						if sym == nil {
							continue
						}
						b.WriteString(sym.Text)
						b.WriteString(breakSeparator(sym))
					}
				}
			}
		}
	}
	return b.String()
}

func breakSeparator(sym *vision.Symbol) string {
	if sym.Property == nil || sym.Property.DetectedBreak == nil {
		return ""
	}
	switch sym.Property.DetectedBreak.Type {
	case "SPACE", "SURE_SPACE":
		return " "
	case "EOL_SURE_SPACE", "LINE_BREAK":
		return "\n"
	default:
		return ""
	}
}

// TextFromResponse extracts the receipt text from an annotate response,
// preferring the reconstructed text over the flat fullTextAnnotation.text.
func TextFromResponse(provider string, resp *vision.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", &core.OcrError{Provider: provider, Message: "no text detected"}
	}
	r := resp.Responses[0]
	if r.Error != nil && (r.Error.Message != "" || r.Error.Code != 0) {
		return "", &core.OcrError{Provider: provider, Message: r.Error.Message}
	}
	if r.FullTextAnnotation == nil {
		return "", &core.OcrError{Provider: provider, Message: "no text detected"}
	}

	text := ReconstructText(r.FullTextAnnotation)
	if strings.TrimSpace(text) == "" {
		text = r.FullTextAnnotation.Text
	}
	if strings.TrimSpace(text) == "" {
		return "", &core.OcrError{Provider: provider, Message: "no text detected"}
	}
	return text, nil
}

// NewAnnotateRequest builds the single-image document text request.
func NewAnnotateRequest(imageBase64 string) *vision.BatchAnnotateImagesRequest {
	return &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: imageBase64},
			Features: []*vision.Feature{{Type: DocumentTextDetection, MaxResults: 1}},
		}},
	}
}
