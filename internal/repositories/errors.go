package repositories

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a persistence failure.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown ErrorKind = iota
	// KindNotFound means the addressed row does not exist.
	KindNotFound
	// KindConflict means a uniqueness or integrity rule rejected the write.
	KindConflict
	// KindUnavailable means the backend could not be reached or timed out.
	KindUnavailable
)

// StoreError implements RepositoryError for both backends.
type StoreError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	msg := "repository failure"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the error represents a missing row.
func (e *StoreError) IsNotFound() bool { return e != nil && e.Kind == KindNotFound }

// IsConflict reports whether the error represents a conflicting write.
func (e *StoreError) IsConflict() bool { return e != nil && e.Kind == KindConflict }

// IsUnavailable reports whether the error represents a transient backend outage.
func (e *StoreError) IsUnavailable() bool { return e != nil && e.Kind == KindUnavailable }

// NewError wraps err with an operation name and classification. Context cancellations pass through.
func NewError(op string, kind ErrorKind, err error) error {
	if err == nil && kind == KindUnknown {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// NotFound builds a not-found error for op.
func NotFound(op string, format string, args ...any) error {
	return &StoreError{Op: op, Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

// IsNotFound reports whether any error in err's chain is a not-found RepositoryError.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether any error in err's chain is a conflict RepositoryError.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether any error in err's chain is an unavailable RepositoryError.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
