package models

import (
	"fmt"
	"strings"
)

// FieldError ties a validation failure to the JSON field that caused it.
type FieldError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (f FieldError) Error() string {
	if f.Field == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %v", f.Field, f.Err)
}

func (f FieldError) Unwrap() error {
	return f.Err
}

// ValidationErrors collects every failure found while checking a value so
// clients can fix them in one round trip.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Add records err against field. Nil errors are ignored.
func (v *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	v.Errors = append(v.Errors, FieldError{Field: field, Err: err})
}

// Err returns nil when nothing was recorded.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "invalid message"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, err := range v.Errors {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the recorded causes to errors.Is and errors.As.
func (v *ValidationErrors) Unwrap() []error {
	if v == nil {
		return nil
	}
	out := make([]error, 0, len(v.Errors))
	for _, err := range v.Errors {
		out = append(out, err)
	}
	return out
}
