package llm

import (
	"encoding/json"
	"strings"
)

// ExtractTip returns the trimmed text of the first content block, unwrapping
// it once more when the model replied with a JSON string literal.
func ExtractTip(resp *MessagesResponse) string {
	text, err := resp.FirstText()
	if err != nil {
		return ""
	}
	tip := strings.TrimSpace(text)
	var inner string
	if json.Unmarshal([]byte(tip), &inner) == nil {
		return inner
	}
	return tip
}
