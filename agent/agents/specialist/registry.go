package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	llmx "github.com/tanpawarit/sparkpath-gateway/agent/llm"
	promptx "github.com/tanpawarit/sparkpath-gateway/agent/prompt"
)

type registryImpl struct {
	master      contractx.Classifier
	specialists map[contractx.Category]contractx.Specialist
	agentIDs    map[contractx.Role]string
}

func (r *registryImpl) Master() contractx.Classifier {
	return r.master
}

func (r *registryImpl) Specialist(category contractx.Category) (contractx.Specialist, bool) {
	s, ok := r.specialists[category]
	return s, ok
}

func (r *registryImpl) AgentID(role contractx.Role) string {
	return r.agentIDs[role]
}

// NewRegistry builds the master classifier and one specialist per category, each on the
// model the role is mapped to.
func NewRegistry(ctx context.Context, cfg llmx.Config, agents llmx.AgentsConfig) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := agents.Validate(); err != nil {
		return nil, err
	}

	// roles sharing a model id share one chat model instance
	models := make(map[contractx.Role]einomodel.BaseChatModel, 5)
	byID := make(map[string]einomodel.BaseChatModel, 5)
	for role, id := range agents.Roles() {
		if m, ok := byID[id]; ok {
			models[role] = m
			continue
		}
		modelCfg := cfg.OpenRouterFor(role, agents)
		m, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		byID[id] = m
		models[role] = m
	}

	return newRegistryFromModels(ctx, models, agents.Roles(), promptx.LoadPromptSet())
}

func newRegistryFromModels(
	ctx context.Context,
	models map[contractx.Role]einomodel.BaseChatModel,
	agentIDs map[contractx.Role]string,
	prompts promptx.PromptSet,
) (*registryImpl, error) {
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	masterModel, ok := models[contractx.RoleMaster]
	if !ok || masterModel == nil {
		return nil, fmt.Errorf("%w: master model is required", contractx.ErrValidation)
	}
	master, err := newClassifier(ctx, masterModel, prompts.Master)
	if err != nil {
		return nil, err
	}

	specialists := make(map[contractx.Category]contractx.Specialist, len(contractx.Categories))
	for _, category := range contractx.Categories {
		m := models[category.Role()]
		if m == nil {
			m = masterModel
		}
		s, err := newSpecialist(ctx, category, m, prompts.ForCategory(category))
		if err != nil {
			return nil, err
		}
		specialists[category] = s
	}

	return &registryImpl{
		master:      master,
		specialists: specialists,
		agentIDs:    agentIDs,
	}, nil
}
