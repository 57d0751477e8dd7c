package specialist

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var _ contractx.Router = (*Router)(nil)

// Router runs the master + specialist graph in process over an OpenAI-compatible model
// endpoint. It stands in for a managed multi-agent routing service.
type Router struct {
	registry contractx.Registry
	runner   compose.Runnable[contractx.RouteRequest, contractx.AgentResponse]
	now      func() time.Time
}

func NewRouter(ctx context.Context, registry contractx.Registry) (*Router, error) {
	if registry == nil || registry.Master() == nil {
		return nil, fmt.Errorf("%w: registry with master is required", contractx.ErrValidation)
	}

	r := &Router{registry: registry, now: time.Now}
	runner, err := compileRouterGraph(ctx, registry.Master().Classify, r.masterReply, r.specialistAnswer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	r.runner = runner
	return r, nil
}

// Route never fails with a bare model error: anything that goes wrong past validation
// is reported as ErrUpstreamUnavailable.
func (r *Router) Route(ctx context.Context, req contractx.RouteRequest) (contractx.AgentResponse, error) {
	resp, err := r.runner.Invoke(ctx, req)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("router graph failed")
		return contractx.AgentResponse{}, fmt.Errorf("%w: %w", contractx.ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

func (r *Router) masterReply(ctx context.Context, in *routeState) (contractx.AgentResponse, error) {
	return contractx.AgentResponse{
		Text:       in.Decision.Reply,
		Category:   contractx.CategoryNone,
		AgentID:    r.registry.AgentID(contractx.RoleMaster),
		ReceivedAt: r.now().UTC(),
	}, nil
}

func (r *Router) specialistAnswer(ctx context.Context, in *routeState) (contractx.AgentResponse, error) {
	category := in.Decision.Category
	spec, ok := r.registry.Specialist(category)
	if !ok {
		return contractx.AgentResponse{}, fmt.Errorf("%w: no specialist for category=%s", contractx.ErrSchemaViolation, category)
	}

	log.Ctx(ctx).Debug().Str("category", string(category)).Msg("handing off to specialist")
	text, err := spec.Answer(withHandoffNote(ctx, in.Decision.HandoffNote), in.Req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	return contractx.AgentResponse{
		Text:       text,
		Category:   category,
		AgentID:    r.registry.AgentID(category.Role()),
		ReceivedAt: r.now().UTC(),
	}, nil
}
