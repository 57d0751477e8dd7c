package gatewaynode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
)

type GraphInput struct {
	SessionID string
	Text      string
	AudioRef  *contractx.AssetReference
}

type GraphOutput struct {
	Response contractx.AgentResponse
	Seq      int64
}

type GraphState struct {
	SessionID string
	Text      string
	AudioRef  *contractx.AssetReference
	Now       time.Time

	History  []contractx.Exchange
	Response contractx.AgentResponse
	Seq      int64
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if err := statex.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: session=%s", contractx.ErrInvalidQuery, sessionID)
	}

	var audioRef *contractx.AssetReference
	if in.AudioRef != nil {
		ref := *in.AudioRef
		if ref.SessionID != "" && ref.SessionID != sessionID {
			return nil, fmt.Errorf("%w: audio belongs to session %s", contractx.ErrInvalidSession, ref.SessionID)
		}
		audioRef = &ref
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		AudioRef:  audioRef,
		Now:       nowFn().UTC(),
	}, nil
}
