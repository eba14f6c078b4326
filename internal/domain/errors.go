package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput signals a ranked sequence that breaks the ranking invariants.
	ErrMalformedInput = errors.New("malformed ranked input")
	// ErrInvalidMessage signals an empty or oversized user message.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrRetrievalUnavailable signals that a search backend could not serve the query.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrGenerationUnavailable signals that the reply generator could not serve the request.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrGenerationRejected marks a generator request the provider refused as invalid (4xx).
	ErrGenerationRejected = errors.New("generation request rejected")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrKeywordSearchNotSupported signals that the backend lacks keyword search.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")
	// ErrInvalidMovie signals a dataset row that fails the cleaning rules.
	ErrInvalidMovie = errors.New("invalid movie")
)

// SourceError wraps ErrRetrievalUnavailable with the name of the failed source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s source: %v", ErrRetrievalUnavailable.Error(), e.Source, e.Err)
}

// Is reports ErrRetrievalUnavailable so callers can match the failure kind.
func (e *SourceError) Is(target error) bool { return target == ErrRetrievalUnavailable }

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError creates a retrieval failure for the named source.
func NewSourceError(source string, err error) error {
	return &SourceError{Source: source, Err: err}
}
