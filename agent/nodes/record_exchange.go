package gatewaynode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
)

// RecordExchange appends the finished exchange. It runs once: an append is not
// idempotent, so it is never retried.
func RecordExchange(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	seq, err := store.Append(ctx, in.SessionID, contractx.Exchange{
		Query: contractx.Query{
			SessionID:   in.SessionID,
			Text:        in.Text,
			AudioRef:    in.AudioRef,
			SubmittedAt: in.Now,
		},
		Response: in.Response,
	})
	if errors.Is(err, contractx.ErrSessionNotFound) {
		// deleted while the reply was being produced
		return nil, fmt.Errorf("%w: %w", contractx.ErrInvalidSession, err)
	}
	if err != nil {
		return nil, err
	}
	in.Seq = seq
	return in, nil
}
