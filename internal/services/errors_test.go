package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode"

	"caritauyuk.id/catalog/internal/repositories"
)

func TestSentinelErrorStrings(t *testing.T) {
	for _, err := range []error{
		ErrNotAuthenticated, ErrInvalidContent, ErrContentNotFound, ErrInvalidCredentials,
		ErrMissingCredentials, ErrInvalidSession, ErrRepositoryMissing,
	} {
		msg := err.Error()
		if first := []rune(msg)[0]; unicode.IsUpper(first) {
			t.Fatalf("error %q should start lower-case", msg)
		}
		if strings.HasSuffix(msg, ".") {
			t.Fatalf("error %q should not end with punctuation", msg)
		}
	}
}

func TestValidationErrorMatchesInvalidContent(t *testing.T) {
	verr := &ValidationError{}
	if verr.orNil() != nil {
		t.Fatal("empty validation error should collapse to nil")
	}
	verr.Add("title", "Judul wajib diisi.")
	err := fmt.Errorf("create: %w", verr.orNil())
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
	if verr.Message("title") != "Judul wajib diisi." || verr.Message("category") != "" {
		t.Fatalf("unexpected field messages %+v", verr.Fields)
	}
}

func TestMapRepositoryErrorNotFound(t *testing.T) {
	err := mapRepositoryError(repositories.NewError("content.get", repositories.KindNotFound, nil))
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
	if mapRepositoryError(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}
