package models

import (
	"errors"
	"testing"
)

func TestValidationErrorsIs(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Add("content", ErrEmptyContent)
	validation.Add("postId", nil)

	err := validation.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected errors.Is to match ErrEmptyContent, got %v", err)
	}
	if errors.Is(err, ErrMissingPost) {
		t.Fatal("nil errors must not be recorded")
	}

	var field FieldError
	if !errors.As(err, &field) || field.Field != "content" {
		t.Fatalf("expected content field error, got %#v", field)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	validation := &ValidationErrors{}
	if validation.Err() != nil {
		t.Fatal("expected nil error when empty")
	}

	validation.Add("receiverId", ErrSelfMessage)
	validation.Add("content", ErrContentTooLong)

	want := "receiverId: sender and receiver must differ; content: message content exceeds 4096 bytes"
	if got := validation.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
