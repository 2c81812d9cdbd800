package upstream

import (
	"fmt"

	"github.com/maimweb/backend/internal/apperr"
)

// Errors returned by the client. Both wrap an apperr kind.
var (
	ErrUnavailable = fmt.Errorf("%w: configuration service", apperr.ErrUpstreamUnavailable)
	ErrBusiness    = fmt.Errorf("%w: configuration service", apperr.ErrUpstreamBusiness)
)

// BusinessError is a failure the upstream service reported explicitly.
type BusinessError struct {
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream rejected request (status %d)", e.Status)
	}
	return e.Message
}

// Unwrap makes errors.Is(err, ErrBusiness) hold.
func (e *BusinessError) Unwrap() error {
	return ErrBusiness
}
