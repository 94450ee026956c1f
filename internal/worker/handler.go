package worker

import (
	"context"
	"errors"
)

// JobHandler defines the interface that all job handlers must implement.
type JobHandler interface {
	// Type returns the job type identifier that this handler processes.
	// This must match the job_type column in the cover_jobs table.
	Type() string

	// Handle executes the job with the given payload. The payload is raw
	// JSON from the database. Return a PermanentError to mark the job as
	// permanently failed (no retries).
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError wraps an error to indicate it should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new PermanentError that wraps the given error.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
