// Package apperr defines the error kinds shared across layers.
// Package-level sentinel errors wrap one of these kinds with %w so that
// callers can classify any error with errors.Is without knowing its origin.
package apperr

import "errors"

// Error kinds.
var (
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrDenied              = errors.New("permission denied")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamBusiness    = errors.New("upstream rejected request")
)

// Kind returns the kind wrapped by err, or nil if err carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrUnauthenticated,
		ErrInvalidInput,
		ErrConflict,
		ErrNotFound,
		ErrDenied,
		ErrUpstreamUnavailable,
		ErrUpstreamBusiness,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
