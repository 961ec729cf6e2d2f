package services

import (
	"errors"
	"fmt"
	"strings"

	"caritauyuk.id/catalog/internal/repositories"
)

var (
	// ErrNotAuthenticated is returned by admin writes when no live admin session is present.
	ErrNotAuthenticated = errors.New("services: admin session required")
	// ErrInvalidContent marks validation failures on admin input.
	ErrInvalidContent = errors.New("content: invalid input")
	// ErrContentNotFound is returned when the addressed row does not exist.
	ErrContentNotFound = errors.New("content: not found")
	// ErrInvalidCredentials is returned when sign-in is rejected.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrMissingCredentials is returned when e-mail or password is blank.
	ErrMissingCredentials = errors.New("auth: missing credentials")
	// ErrInvalidSession is returned for like operations without a visitor session.
	ErrInvalidSession = errors.New("like: missing session id")
	// ErrRepositoryMissing signals a nil repository dependency.
	ErrRepositoryMissing = errors.New("services: repository is not configured")
)

// FieldError names one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of an admin submission. It matches ErrInvalidContent.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidContent.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return strings.Join(parts, " ")
}

// Is lets errors.Is(err, ErrInvalidContent) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidContent
}

// Add records a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Message returns the message for field, if any.
func (e *ValidationError) Message(field string) string {
	if e == nil {
		return ""
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if repositories.IsNotFound(err) {
		return fmt.Errorf("%w: %v", ErrContentNotFound, err)
	}
	return err
}
