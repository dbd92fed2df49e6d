package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotBuilt is returned when search runs against an index
	// that was never built or loaded.
	ErrIndexNotBuilt = errors.New("vector index not built")

	// ErrEmptyQuery is returned for a blank retrieval query.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrInvalidTopK is returned for a non-positive top_k.
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrInvalidMaxChars is returned for a non-positive snippet budget.
	ErrInvalidMaxChars = errors.New("max_chars must be positive")
)

// ConfigurationError is fatal at load time: unknown law id, missing
// source file, or a persisted artifact that no longer matches the
// live configuration.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Key, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the given key.
func NewConfigurationError(key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
