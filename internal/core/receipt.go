package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexValue holds a loosely typed JSON scalar from an LLM reply. Text is the
// string form; Present follows JavaScript truthiness (null, "", 0 and false
// are absent).
type FlexValue struct {
	Text    string
	Present bool
}

func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = FlexValue{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v.Text, v.Present = s, s != ""
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		v.Text, v.Present = strconv.FormatBool(b), b
	case '{', '[':
		v.Text, v.Present = string(data), true
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		// Exponent literals are expanded so price parsing sees plain digits.
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			v.Text, v.Present = n.String(), true
			return nil
		}
		v.Text, v.Present = d.String(), !d.IsZero()
	}
	return nil
}

func (v FlexValue) MarshalJSON() ([]byte, error) {
	if !v.Present && v.Text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(v.Text)
}

// ReceiptItem is one line of a structured receipt.
type ReceiptItem struct {
	Description FlexValue `json:"description"`
	Price       FlexValue `json:"price"`
	Category    FlexValue `json:"category"`
}

// StructuredReceipt is the JSON object the extraction prompt asks for. It is
// transient and only lives for one pipeline run.
type StructuredReceipt struct {
	StoreName FlexValue     `json:"storeName"`
	Total     FlexValue     `json:"total"`
	Category  FlexValue     `json:"category,omitempty"`
	Items     []ReceiptItem `json:"items"`

	// HasItems is false when the reply carried no "items" array.
	HasItems bool `json:"-"`
}

// DefaultItemName labels items whose description is absent.
const DefaultItemName = "Scanned Item"

// DecodeStructuredReceipt decodes a recovered JSON object into a receipt. A
// missing or non-array "items" key leaves HasItems false rather than failing.
func DecodeStructuredReceipt(raw []byte) (*StructuredReceipt, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	r := &StructuredReceipt{}
	for key, dst := range map[string]*FlexValue{
		"storeName": &r.StoreName,
		"total":     &r.Total,
		"category":  &r.Category,
	} {
		if val, ok := fields[key]; ok {
			if err := json.Unmarshal(val, dst); err != nil {
				return nil, err
			}
		}
	}

	items, ok := fields["items"]
	if !ok {
		return r, nil
	}
	var rawItems []json.RawMessage
	if err := json.Unmarshal(items, &rawItems); err != nil || rawItems == nil {
		return r, nil
	}
	r.HasItems = true
	r.Items = make([]ReceiptItem, 0, len(rawItems))
	for _, ri := range rawItems {
		var item ReceiptItem
		// Non-object entries become an empty item and are skipped later.
		_ = json.Unmarshal(ri, &item)
		r.Items = append(r.Items, item)
	}
	return r, nil
}

// CleanCategoryName trims whitespace and one pair of surrounding quotes.
func CleanCategoryName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

// ItemName returns the description or DefaultItemName.
func (i ReceiptItem) ItemName() string {
	if i.Description.Present {
		if name := strings.TrimSpace(i.Description.Text); name != "" {
			return name
		}
	}
	return DefaultItemName
}
