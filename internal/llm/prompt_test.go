package llm

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("MILK 3.49\nTOTAL 3.49", []string{"Food", "Tax", "Other"})

	wants := []string{
		"Please return ONLY a valid JSON object.",
		`"storeName", "total", "items"`,
		"Available Categories:\n\"Food\", \"Tax\", \"Other\"",
		"Receipt Text:\nMILK 3.49\nTOTAL 3.49",
		`use "Other" if no other category fits`,
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Error("prompt still contains template placeholders")
	}
}

func TestBuildPrompt_NoCategories(t *testing.T) {
	prompt := BuildPrompt("text", nil)
	if !strings.Contains(prompt, "Available Categories:\n\"\"") {
		t.Errorf("expected empty category list, got:\n%s", prompt)
	}
}
