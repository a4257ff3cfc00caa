package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAmount_UnmarshalAndParse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int64
		wantErr bool
	}{
		{"number", `{"amount": 12.3}`, 1230, false},
		{"string with comma", `{"amount": "4,99"}`, 499, false},
		{"string with spaces", `{"amount": " 7 "}`, 700, false},
		{"negative", `{"amount": -1.5}`, -150, false},
		{"words", `{"amount": "ten"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req setTotalRequest
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON() error = %v", err)
			}
			got, err := req.Amount.Signed()
			if err != nil || got.Cents != tt.want {
				t.Errorf("Signed() = %d, %v; want %d", got.Cents, err, tt.want)
			}
		})
	}
}

func TestAmount_SignRules(t *testing.T) {
	if _, err := Amount("-1").NonNegative(); err == nil {
		t.Error("NonNegative accepted a negative amount")
	}
	if m, err := Amount("0").NonNegative(); err != nil || m.Cents != 0 {
		t.Errorf("NonNegative(0) = %d, %v", m.Cents, err)
	}
	if _, err := Amount("0").Positive(); err == nil {
		t.Error("Positive accepted zero")
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"empty body", ``, []string{"request body is empty"}},
		{"malformed", `{"name":`, nil},
		{"two objects", `{"name":"a"}{"name":"b"}`, []string{"request body must hold a single JSON object"}},
		{"missing", `{}`, []string{"name is required"}},
		{"blank", `{"name":"  \t"}`, []string{"name must not be blank"}},
		{"too long", `{"name":"` + strings.Repeat("x", 101) + `"}`, []string{"name must be at most 100 characters"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req createCategoryRequest
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if tt.wantFields == nil {
				return
			}
			if strings.Join(verr.Fields, "|") != strings.Join(tt.wantFields, "|") {
				t.Errorf("fields = %q, want %q", verr.Fields, tt.wantFields)
			}
		})
	}
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	var req createCategoryRequest
	body := `{"name":"` + strings.Repeat("x", maxJSONBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := decodeJSON(httptest.NewRecorder(), r, &req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields[0] != "request body too large" {
		t.Errorf("error = %v, want body too large", err)
	}
}

func TestCreateBudgetRequest_Validation(t *testing.T) {
	err := validateStruct(&createBudgetRequest{CategoryID: -3, Amount: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v", err)
	}
	want := "categoryId must be greater than 0|amount must be a decimal amount"
	if got := strings.Join(verr.Fields, "|"); got != want {
		t.Errorf("fields = %q, want %q", got, want)
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("id", tt.value)
			got, err := pathID(r, "id")
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("pathID(%q) = %d, %v", tt.value, got, err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Groceries ", "Groceries"},
		{"Tab\tbed", "Tabbed"},
		{strings.Repeat("é", 250), strings.Repeat("é", 200)},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
