package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrInvalidState     = fmt.Errorf("invalid oauth state")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Store errors
	//
	// ErrNotFound is the expected signal from a natural key or ID lookup that matched nothing.
	// ErrDuplicateKey is always reported together with ErrStoreWrite.
	ErrNotFound     = fmt.Errorf("not found")
	ErrStoreWrite   = fmt.Errorf("store write failed")
	ErrDuplicateKey = fmt.Errorf("duplicate natural key")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// WriteError wraps cause as an [ErrStoreWrite] for the given table.
func WriteError(table string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s: no row returned", ErrStoreWrite, table)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreWrite, table, cause)
}

// DuplicateError reports a uniqueness violation on table as both [ErrStoreWrite] and [ErrDuplicateKey].
func DuplicateError(table, key string, cause error) error {
	return fmt.Errorf("%w: %s: %w %q: %v", ErrStoreWrite, table, ErrDuplicateKey, key, cause)
}
