package gatewaynode

import (
	"errors"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

// Retryable reports whether another attempt at a remote call may succeed. Only
// upstream outages qualify.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, contractx.ErrNonRetryable) {
		return false
	}
	switch {
	case errors.Is(err, contractx.ErrInvalidSession),
		errors.Is(err, contractx.ErrInvalidQuery),
		errors.Is(err, contractx.ErrSessionNotFound),
		errors.Is(err, contractx.ErrAssetNotFound),
		errors.Is(err, contractx.ErrValidation):
		return false
	}
	return errors.Is(err, contractx.ErrUpstreamUnavailable)
}
