package gatewaynode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
	"github.com/tanpawarit/sparkpath-gateway/pkg/retry"
)

func LoadHistory(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	policy retry.Policy,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := retry.Do(ctx, policy, func(ctx context.Context) (contractx.SessionState, error) {
		return store.Load(ctx, in.SessionID)
	})
	if errors.Is(err, contractx.ErrSessionNotFound) {
		// deleted between the existence check and the read
		return nil, fmt.Errorf("%w: %w", contractx.ErrInvalidSession, err)
	}
	if err != nil {
		return nil, err
	}
	in.History = st.Exchanges
	return in, nil
}
