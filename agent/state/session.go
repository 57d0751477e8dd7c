package state

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

const maxSessionIDLen = 128

// sessionMeta is the record written once when a session is registered.
type sessionMeta struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateSessionID rejects ids that cannot be used as a store key.
func ValidateSessionID(sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return fmt.Errorf("%w: session id is empty", contractx.ErrInvalidSession)
	}
	if id != sessionID {
		return fmt.Errorf("%w: session id has surrounding whitespace", contractx.ErrInvalidSession)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: session id %q is a path element", contractx.ErrInvalidSession, id)
	}
	if len(id) > maxSessionIDLen {
		return fmt.Errorf("%w: session id longer than %d bytes", contractx.ErrInvalidSession, maxSessionIDLen)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == ':' || r == '/' {
			return fmt.Errorf("%w: session id contains %q", contractx.ErrInvalidSession, r)
		}
	}
	return nil
}

func NewSessionState(sessionID string, createdAt time.Time) contractx.SessionState {
	return contractx.SessionState{
		SessionID: sessionID,
		CreatedAt: createdAt.UTC(),
		Exchanges: []contractx.Exchange{},
	}
}

// normalizeExchange stamps the session id on the query and strips the store-assigned seq.
func normalizeExchange(sessionID string, ex contractx.Exchange) contractx.Exchange {
	ex.Seq = 0
	ex.Query.SessionID = sessionID
	ex.Query.SubmittedAt = ex.Query.SubmittedAt.UTC()
	ex.Response.ReceivedAt = ex.Response.ReceivedAt.UTC()
	return ex
}
