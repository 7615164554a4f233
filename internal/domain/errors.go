package domain

import "errors"

// Shared error taxonomy. Handlers map these onto HTTP status codes; services
// wrap them with fmt.Errorf("...: %w", err) so errors.Is keeps working.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("operation not valid for current status")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrQueueUnavailable   = errors.New("queue unavailable")
	ErrMalformedCallback  = errors.New("malformed callback payload")
)
