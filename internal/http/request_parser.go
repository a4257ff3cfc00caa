package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"budgie/internal/core"
)

const (
	maxJSONBodyBytes  = 1 << 20  // 1 MB
	maxImageBytes     = 10 << 20 // 10 MB
	maxProxyBodyBytes = 14 << 20 // base64 of a maxImageBytes image
)

var (
	validate = newValidator()

	nonBlankRegex = regexp.MustCompile(`\S`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlankRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseSignedCents(fl.Field().String())
		return err == nil
	})
	return v
}

// Amount accepts a JSON number or a string such as "12,50".
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// Signed parses any amount, including discounts below zero.
func (a Amount) Signed() (core.Money, error) {
	return toMoney(core.ParseSignedCents(string(a)))
}

// NonNegative parses an amount that may be zero.
func (a Amount) NonNegative() (core.Money, error) {
	return toMoney(core.ParseNonNegativeCents(string(a)))
}

// Positive parses an amount that must be above zero.
func (a Amount) Positive() (core.Money, error) {
	return toMoney(core.ParseDecimalToCents(string(a)))
}

func toMoney(cents int64, err error) (core.Money, error) {
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

type setTotalRequest struct {
	Amount Amount `json:"amount" validate:"required,amount"`
}

type adjustTotalRequest struct {
	Delta Amount `json:"delta" validate:"required,amount"`
}

type createItemRequest struct {
	Category string `json:"category" validate:"required,notblank,max=100"`
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Amount   Amount `json:"amount" validate:"required,amount"`
}

type createBudgetRequest struct {
	CategoryID int64  `json:"categoryId" validate:"required,gt=0"`
	Amount     Amount `json:"amount" validate:"required,amount"`
}

type updateBudgetRequest struct {
	Amount Amount `json:"amount" validate:"required,amount"`
}

type visionProxyRequest struct {
	ImageBase64 string `json:"imageBase64" validate:"required,base64"`
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Fields, "; ")
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeJSONLimit(w, r, dst, maxJSONBodyBytes)
}

func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &ValidationError{Fields: []string{"request body too large"}}
		case errors.Is(err, io.EOF):
			return &ValidationError{Fields: []string{"request body is empty"}}
		default:
			return &ValidationError{Fields: []string{"invalid JSON: " + err.Error()}}
		}
	}
	if dec.More() {
		return &ValidationError{Fields: []string{"request body must hold a single JSON object"}}
	}
	return validateStruct(dst)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []string{err.Error()}}
	}
	out := &ValidationError{Fields: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fieldErrorToString(fe))
	}
	return out
}

func fieldErrorToString(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "amount":
		return fmt.Sprintf("%s must be a decimal amount", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "base64":
		return fmt.Sprintf("%s must be base64 encoded", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// pathID parses a positive integer path segment.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Fields: []string{fmt.Sprintf("%s must be a positive integer", name)}}
	}
	return id, nil
}

// readImage pulls the "image" multipart field, capped at maxImageBytes.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &ValidationError{Fields: []string{"image must be at most 10 MB"}}
		}
		return nil, &ValidationError{Fields: []string{"expected multipart/form-data with an image field"}}
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, &ValidationError{Fields: []string{"image is required"}}
	}
	defer file.Close()
	if header.Size > maxImageBytes {
		return nil, &ValidationError{Fields: []string{"image must be at most 10 MB"}}
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, &ValidationError{Fields: []string{"image is empty"}}
	}
	if len(data) > maxImageBytes {
		return nil, &ValidationError{Fields: []string{"image must be at most 10 MB"}}
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg", "image/png":
	default:
		return nil, &ValidationError{Fields: []string{"image must be JPEG or PNG, got " + ct}}
	}
	return data, nil
}
