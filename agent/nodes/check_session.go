package gatewaynode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
	"github.com/tanpawarit/sparkpath-gateway/pkg/retry"
)

// CheckSession rejects ids the session store has never registered.
func CheckSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	policy retry.Policy,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	ok, err := retry.Do(ctx, policy, func(ctx context.Context) (bool, error) {
		return store.Exists(ctx, in.SessionID)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: session %s is not registered", contractx.ErrInvalidSession, in.SessionID)
	}
	return in, nil
}
