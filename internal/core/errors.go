package core

import (
	"fmt"
)

// SkipReason classifies why a receipt item was not applied.
type SkipReason string

const (
	SkipMissingField     SkipReason = "missing_field"
	SkipInvalidPrice     SkipReason = "invalid_price"
	SkipCategoryNotFound SkipReason = "category_not_found"
	SkipPersistence      SkipReason = "persistence_error"
)

// OcrError reports a failed or empty text detection.
type OcrError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *OcrError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("ocr %s: status %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("ocr %s: %s", e.Provider, msg)
}

func (e *OcrError) Unwrap() error { return e.Err }

// ResponseFormatError reports an LLM reply that holds no usable JSON object.
type ResponseFormatError struct {
	Reason string
	Reply  string
	Err    error
}

func (e *ResponseFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("response format: %s: %v", e.Reason, e.Err)
	}
	return "response format: " + e.Reason
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

// ItemValidationError describes a skipped receipt item. It is recorded, not
// returned from a pipeline run.
type ItemValidationError struct {
	Index  int
	Reason SkipReason
	Detail string
}

func (e *ItemValidationError) Error() string {
	return fmt.Sprintf("item %d: %s: %s", e.Index, e.Reason, e.Detail)
}

// CategoryNotFoundError is returned when a name lookup finds no category for
// the user. It matches ErrNotFound under errors.Is.
type CategoryNotFoundError struct {
	Name string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("could not find the category %q", e.Name)
}

func (e *CategoryNotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
