package llm

import (
	"strings"
)

const receiptPromptTemplate = `From the following receipt text, extract the store name, the final total, and a list of all items. For each item, provide its description, price, and classify it into one of the available categories.

Please return ONLY a valid JSON object. Do not include any other text, explanations, or markdown formatting.

The JSON object must have these keys: "storeName", "total", "items".
The "items" key must hold an array of objects, where each object has "description", "price", and "category" keys.
- The "description" should be a short, clean name for the item.
- The "price" must be a number (e.g., 12.99).
- The "category" must be one of the provided category names.
- Explicitly look for a "Tax" or "Sales Tax" line item and classify it under the "Tax" category.

If a value cannot be found, use null. For item categorization, use "Other" if no other category fits.

Available Categories:
"{{categories}}"

Receipt Text:
{{text}}`

// BuildPrompt renders the receipt structuring prompt for the OCR text and the
// user's category names.
func BuildPrompt(text string, categories []string) string {
	r := strings.NewReplacer(
		"{{categories}}", strings.Join(categories, `", "`),
		"{{text}}", text,
	)
	return r.Replace(receiptPromptTemplate)
}
