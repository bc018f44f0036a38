package domain

import "errors"

var (
	// ErrMissingSupplier means an email's supplier could not be resolved even
	// via the sentinel fallback; canonicalization is supplier-scoped and
	// cannot proceed.
	ErrMissingSupplier = errors.New("supplier could not be resolved")
	// ErrEmbeddingUnavailable means the embedding provider returned no usable
	// vector for the email's document text.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrConfiguration means the sentinel supplier record is missing and
	// could not be created.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
)
