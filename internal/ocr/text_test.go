package ocr

import (
	"errors"
	"testing"

	"google.golang.org/api/vision/v1"

	"budgie/internal/core"
)

func sym(text, brk string) *vision.Symbol {
	s := &vision.Symbol{Text: text}
	if brk != "" {
		s.Property = &vision.TextProperty{DetectedBreak: &vision.DetectedBreak{Type: brk}}
	}
	return s
}

func annotation(words ...[]*vision.Symbol) *vision.TextAnnotation {
	para := &vision.Paragraph{}
	for _, w := range words {
		para.Words = append(para.Words, &vision.Word{Symbols: w})
	}
	return &vision.TextAnnotation{
		Pages: []*vision.Page{{Blocks: []*vision.Block{{Paragraphs: []*vision.Paragraph{para}}}}},
	}
}

func TestReconstructText(t *testing.T) {
	tests := []struct {
		name string
		ann  *vision.TextAnnotation
		want string
	}{
		{
			name: "nil annotation",
			ann:  nil,
			want: "",
		},
		{
			name: "space and line breaks",
			ann: annotation(
				[]*vision.Symbol{sym("S", ""), sym("a", ""), sym("l", ""), sym("e", ""), sym("s", "SPACE")},
				[]*vision.Symbol{sym("T", ""), sym("a", ""), sym("x", "SURE_SPACE")},
				[]*vision.Symbol{sym("1", ""), sym(".", ""), sym("2", ""), sym("3", "EOL_SURE_SPACE")},
				[]*vision.Symbol{sym("T", ""), sym("o", ""), sym("t", "LINE_BREAK")},
			),
			want: "Sales Tax 1.23\nTot\n",
		},
		{
			name: "unknown and hyphen breaks insert nothing",
			ann: annotation(
				[]*vision.Symbol{sym("a", "HYPHEN"), sym("b", "UNKNOWN"), sym("c", "")},
			),
			want: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReconstructText(tt.ann); got != tt.want {
				t.Errorf("ReconstructText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFromResponse(t *testing.T) {
	good := annotation([]*vision.Symbol{sym("M", ""), sym("i", ""), sym("l", ""), sym("k", "LINE_BREAK")})

	tests := []struct {
		name    string
		resp    *vision.BatchAnnotateImagesResponse
		want    string
		wantErr string
	}{
		{
			name: "reconstructed text preferred",
			resp: &vision.BatchAnnotateImagesResponse{Responses: []*vision.AnnotateImageResponse{{
				FullTextAnnotation: &vision.TextAnnotation{Pages: good.Pages, Text: "flat"},
			}}},
			want: "Milk\n",
		},
		{
			name: "falls back to flat text",
			resp: &vision.BatchAnnotateImagesResponse{Responses: []*vision.AnnotateImageResponse{{
				FullTextAnnotation: &vision.TextAnnotation{Text: "flat text"},
			}}},
			want: "flat text",
		},
		{
			name:    "empty responses",
			resp:    &vision.BatchAnnotateImagesResponse{},
			wantErr: "ocr vision: no text detected",
		},
		{
			name: "per-request error",
			resp: &vision.BatchAnnotateImagesResponse{Responses: []*vision.AnnotateImageResponse{{
				Error: &vision.Status{Code: 3, Message: "Bad image data."},
			}}},
			wantErr: "ocr vision: Bad image data.",
		},
		{
			name:    "no annotation",
			resp:    &vision.BatchAnnotateImagesResponse{Responses: []*vision.AnnotateImageResponse{{}}},
			wantErr: "ocr vision: no text detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TextFromResponse("vision", tt.resp)
			if tt.wantErr != "" {
				var oe *core.OcrError
				if !errors.As(err, &oe) {
					t.Fatalf("expected *core.OcrError, got %v", err)
				}
				if err.Error() != tt.wantErr {
					t.Fatalf("error = %q, want %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}
