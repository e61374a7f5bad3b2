package kv

import "errors"

var (
	// ErrNotFound is returned by Get when the key has no entry.
	ErrNotFound = errors.New("key not found")

	// ErrEmptyKey is returned when a caller passes an empty key.
	ErrEmptyKey = errors.New("key is required")

	// ErrInvalidEncoding is returned when a value is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("value is not valid UTF-8")

	// ErrInternal marks unexpected failures such as a poisoned store.
	// Errors of this class are wrapped, so match with errors.Is.
	ErrInternal = errors.New("internal error")
)

// Store defines the interface for a key-value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns ErrNotFound if the key has no entry.
	Get(key string) (string, error)

	// Set inserts or overwrites the value for key.
	// A non-nil error is always an internal failure.
	Set(key, value string) error
}
