package delivery

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTransientDelivery matches every error that makes Deliver try again:
// connection failures, timeouts and HTTP error statuses.
var ErrTransientDelivery = errors.New("transient delivery failure")

// StatusError is returned when the endpoint answers with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type transientError struct {
	err error
}

func transient(err error) error {
	return &transientError{err: err}
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Cause() error { return e.err }

func (e *transientError) Unwrap() error { return e.err }

func (e *transientError) Is(target error) bool { return target == ErrTransientDelivery }
