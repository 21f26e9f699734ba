package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Analysis failures. None of these reach the caller of Analyze; they select
// the fallback classifier and are logged.
var (
	ErrRemoteUnavailable  = errors.New("remote capability unavailable")
	ErrMalformedResponse  = errors.New("malformed remote response")
	ErrUnknownSubcategory = errors.New("unknown subcategory")
	ErrNotConfigured      = errors.New("remote capability not configured")
)
