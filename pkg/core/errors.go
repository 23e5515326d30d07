package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidKind     = errors.New("refresh: invalid kind name (must be alphanumeric, start with letter)")
	ErrKindTooLong     = errors.New("refresh: kind name too long")
	ErrKindExists      = errors.New("refresh: kind already registered")
	ErrUnknownKind     = errors.New("refresh: unknown kind")
	ErrInvalidMaxPause = errors.New("refresh: max pause must be positive")
	ErrInvalidInterval = errors.New("refresh: invalid refresh interval")
	ErrNilFetcher      = errors.New("refresh: fetcher is nil")
)

// FetchError wraps a failure of a guarded fetch with the kind it belonged to.
type FetchError struct {
	Kind Kind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("refresh %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err for kind. A nil err yields nil.
func NewFetchError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: kind, Err: err}
}
