package core

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the platform boundary or the
// configuration layer can produce. Callers match with errors.Is; the exit
// code mapping in the report package depends only on this taxonomy.
var (
	// ErrConfig marks bad or missing invocation inputs. Fatal, not retried.
	ErrConfig = errors.New("invalid configuration")

	// ErrAuth marks a rejected credential. Fatal, not retried.
	ErrAuth = errors.New("authentication rejected")

	// ErrNotFound marks a missing repository or pull request. Fatal, not retried.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks network or rate-limit failures that are safe to retry.
	ErrTransient = errors.New("transient failure")
)

// ErrInvalidPolicy is a configuration error raised when a policy document
// fails validation. It matches ErrConfig under errors.Is.
var ErrInvalidPolicy = fmt.Errorf("%w: invalid policy", ErrConfig)

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
