package contract

import "errors"

// Gateway error taxonomy. Every failure returned by the gateway wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidSession      = errors.New("invalid session")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrSynthesisFailed     = errors.New("synthesis failed")
	ErrStorageWriteFailed  = errors.New("storage write failed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInvalidQuery        = errors.New("query text is empty")
)

// ErrNonRetryable marks a failure that another attempt cannot fix. It rides alongside a
// taxonomy error and never stands alone.
var ErrNonRetryable = errors.New("non-retryable")

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
)

// Kind names the taxonomy member err belongs to, or "internal" when none match.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSession):
		return "invalid_session"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrAssetNotFound):
		return "asset_not_found"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrTranscriptionFailed):
		return "transcription_failed"
	case errors.Is(err, ErrSynthesisFailed):
		return "synthesis_failed"
	case errors.Is(err, ErrStorageWriteFailed):
		return "storage_write_failed"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
