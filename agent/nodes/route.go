package gatewaynode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	"github.com/tanpawarit/sparkpath-gateway/pkg/retry"
)

// FallbackReply replaces an empty completion from the routing endpoint.
const FallbackReply = "Sorry, I couldn't generate a reply this time."

func Route(
	ctx context.Context,
	in *GraphState,
	router contractx.Router,
	policy retry.Policy,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	req := contractx.RouteRequest{
		SessionID: in.SessionID,
		Text:      in.Text,
		History:   in.History,
	}
	resp, err := retry.Do(ctx, policy, func(ctx context.Context) (contractx.AgentResponse, error) {
		return router.Route(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	resp.Text = strings.TrimSpace(resp.Text)
	if resp.Text == "" {
		log.Ctx(ctx).Warn().Str("category", string(resp.Category)).Msg("routing endpoint returned empty completion")
		resp.Text = FallbackReply
	}
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = in.Now
	}
	in.Response = resp
	return in, nil
}
