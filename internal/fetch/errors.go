package fetch

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetryBudgetExhausted wraps the last error after the retry budget is spent.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// ErrMalformedResponse indicates a response body that does not match any
// expected page shape. Never retried.
var ErrMalformedResponse = errors.New("malformed response shape")

// FetchError describes a failed page fetch. Retriable errors (429, 5xx,
// transport failures) are retried to budget exhaustion; permanent errors
// (other 4xx, malformed shapes) fail immediately.
type FetchError struct {
	Status    int
	Retriable bool
	// RetryAfter is the server's wait hint when one was provided. The client
	// sleeps exactly this long instead of computing a backoff.
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (status %d, retriable %t): %v", e.Status, e.Retriable, e.Err)
	}
	return fmt.Sprintf("fetch failed (status %d, retriable %t)", e.Status, e.Retriable)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }
