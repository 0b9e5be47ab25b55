package extract

import (
	"errors"
	"fmt"
)

var (
	ErrConfig     = errors.New("invalid configuration")
	ErrAuth       = errors.New("authentication rejected")
	ErrExchange   = errors.New("token exchange rejected")
	ErrValidation = errors.New("invalid parameters")
	ErrFetch      = errors.New("resource fetch rejected")
	ErrPolicy     = errors.New("not permitted in this environment")
)

// UpstreamError preserves an upstream rejection verbatim: the HTTP status
// and response body as received, for diagnostics. Category is one of the
// sentinel errors above and is exposed through Unwrap so callers can
// classify with errors.Is.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Category   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Category
}
