package pipeline

import "errors"

// Synchronous error kinds surfaced to callers. Processing failures are never
// returned synchronously; they are recorded on the job and observed through
// status lookups or events.
var (
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
)
