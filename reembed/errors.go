package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrPostRepositoryRequired is returned when no post repository is given
	ErrPostRepositoryRequired = errors.New("post repository is required")

	// ErrGeneratorRequired is returned when no embedding generator is given
	ErrGeneratorRequired = errors.New("embedding generator is required")

	// ErrInvalidConfig is returned when a Config fails validation
	ErrInvalidConfig = errors.New("invalid reembed config")

	// ErrJobRunning is returned by Trigger while a bulk job is in progress
	ErrJobRunning = errors.New("embedding maintenance already running")
)

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so RetryWithBackoff gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
