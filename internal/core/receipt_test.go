package core

import "testing"

func TestDecodeStructuredReceipt(t *testing.T) {
	raw := []byte(`{
		"storeName": "Corner Shop",
		"total": 17.72,
		"items": [
			{"description": "Bread", "price": "$12.99", "category": "Food"},
			{"description": null, "price": 3.5, "category": "\"Food\" "},
			{"description": "Free bag", "price": 0, "category": "Other"},
			"garbage"
		]
	}`)

	r, err := DecodeStructuredReceipt(raw)
	if err != nil {
		t.Fatalf("DecodeStructuredReceipt() error = %v", err)
	}
	if !r.HasItems || len(r.Items) != 4 {
		t.Fatalf("HasItems=%v len=%d, want true/4", r.HasItems, len(r.Items))
	}
	if r.StoreName.Text != "Corner Shop" || r.Total.Text != "17.72" {
		t.Fatalf("unexpected header fields: %+v", r)
	}

	if got := r.Items[0].Price; got.Text != "$12.99" || !got.Present {
		t.Errorf("item 0 price = %+v", got)
	}
	if got := r.Items[1].ItemName(); got != DefaultItemName {
		t.Errorf("item 1 name = %q, want %q", got, DefaultItemName)
	}
	if got := CleanCategoryName(r.Items[1].Category.Text); got != "Food" {
		t.Errorf("item 1 category = %q, want Food", got)
	}
	if r.Items[2].Price.Present {
		t.Errorf("numeric zero price should count as absent")
	}
	if r.Items[3].Price.Present || r.Items[3].Category.Present {
		t.Errorf("non-object item should decode empty")
	}
}

func TestDecodeStructuredReceiptWithoutItems(t *testing.T) {
	cases := []string{
		`{"storeName": "X", "total": 5, "category": "Food"}`,
		`{"storeName": "X", "items": null}`,
		`{"storeName": "X", "items": "none"}`,
	}
	for _, c := range cases {
		r, err := DecodeStructuredReceipt([]byte(c))
		if err != nil {
			t.Fatalf("%s: error = %v", c, err)
		}
		if r.HasItems {
			t.Fatalf("%s: HasItems should be false", c)
		}
	}

	if _, err := DecodeStructuredReceipt([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for non-object JSON")
	}
}

func TestFlexValueTruthiness(t *testing.T) {
	cases := []struct {
		in      string
		text    string
		present bool
	}{
		{`null`, "", false},
		{`""`, "", false},
		{`"0"`, "0", true},
		{`0`, "0", false},
		{`0.00`, "0", false},
		{`12.5`, "12.5", true},
		{`1.5e2`, "150", true},
		{`0e3`, "0", false},
		{`false`, "false", false},
		{`true`, "true", true},
	}
	for _, tc := range cases {
		var v FlexValue
		if err := v.UnmarshalJSON([]byte(tc.in)); err != nil {
			t.Fatalf("%s: error = %v", tc.in, err)
		}
		if v.Text != tc.text || v.Present != tc.present {
			t.Fatalf("%s: got %+v, want text=%q present=%v", tc.in, v, tc.text, tc.present)
		}
	}
}

func TestFlexValueExponentPrice(t *testing.T) {
	r, err := DecodeStructuredReceipt([]byte(`{"items":[{"description":"TV","price":1.5e2,"category":"Other"},{"description":"Gum","price":2.5E-1,"category":"Food"}]}`))
	if err != nil {
		t.Fatalf("DecodeStructuredReceipt() error = %v", err)
	}
	want := []int64{15000, 25}
	for i, item := range r.Items {
		cents, ok := ParseLenientPrice(item.Price.Text)
		if !ok || cents != want[i] {
			t.Errorf("item %d price %q = %d (ok=%v), want %d", i, item.Price.Text, cents, ok, want[i])
		}
	}
}
