package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing search document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSuggestionNotFound signals a missing suggestion.
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrNotIndexed signals a reindex request for a content key that was never indexed.
	ErrNotIndexed = errors.New("content not indexed")
	// ErrValidation signals invalid caller input.
	ErrValidation = errors.New("validation failed")
)
