package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	openrouterx "github.com/tanpawarit/sparkpath-gateway/pkg/openrouter"
)

// Config is the OpenAI-compatible endpoint the in-process agent graph talks to.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"meta-llama/llama-3-8b-instruct"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"800"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true" default:"SparkPath"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the chat-model config serving role.
func (c Config) OpenRouterFor(role contractx.Role, agents AgentsConfig) openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	temp := c.Temperature
	if role == contractx.RoleMaster && agents.MasterTemperature >= 0 {
		temp = agents.MasterTemperature
	}

	base := openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
	return base.WithModel(agents.AgentID(role))
}

// AgentsConfig maps each logical role to the remote agent that plays it. Roles left
// blank are served by the master agent.
type AgentsConfig struct {
	MasterID       string `envconfig:"MASTER_ID" split_words:"true"`
	MasterAlias    string `envconfig:"MASTER_ALIAS" split_words:"true"`
	ProfileID      string `envconfig:"PROFILE_ID" split_words:"true"`
	ProfileAlias   string `envconfig:"PROFILE_ALIAS" split_words:"true"`
	SkillMapID     string `envconfig:"SKILL_MAPPING_ID" split_words:"true"`
	SkillMapAlias  string `envconfig:"SKILL_MAPPING_ALIAS" split_words:"true"`
	PathwayID      string `envconfig:"PATHWAY_ID" split_words:"true"`
	PathwayAlias   string `envconfig:"PATHWAY_ALIAS" split_words:"true"`
	PortfolioID    string `envconfig:"PORTFOLIO_ID" split_words:"true"`
	PortfolioAlias string `envconfig:"PORTFOLIO_ALIAS" split_words:"true"`

	MasterTemperature float32 `envconfig:"MASTER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (a AgentsConfig) Validate() error {
	if strings.TrimSpace(a.MasterID) == "" {
		return fmt.Errorf("%w: master agent id is required", contractx.ErrValidation)
	}
	return nil
}

func (a AgentsConfig) AgentID(role contractx.Role) string {
	id, _ := a.lookup(role)
	if id == "" {
		return strings.TrimSpace(a.MasterID)
	}
	return id
}

// Alias returns the alias for role, inheriting the master alias only when the role
// itself falls back to the master agent.
func (a AgentsConfig) Alias(role contractx.Role) string {
	id, alias := a.lookup(role)
	if id == "" {
		return strings.TrimSpace(a.MasterAlias)
	}
	return alias
}

func (a AgentsConfig) Roles() map[contractx.Role]string {
	roles := []contractx.Role{
		contractx.RoleMaster,
		contractx.RoleProfile,
		contractx.RoleSkillMapping,
		contractx.RolePathway,
		contractx.RolePortfolio,
	}
	out := make(map[contractx.Role]string, len(roles))
	for _, r := range roles {
		out[r] = a.AgentID(r)
	}
	return out
}

func (a AgentsConfig) lookup(role contractx.Role) (string, string) {
	var id, alias string
	switch role {
	case contractx.RoleMaster:
		id, alias = a.MasterID, a.MasterAlias
	case contractx.RoleProfile:
		id, alias = a.ProfileID, a.ProfileAlias
	case contractx.RoleSkillMapping:
		id, alias = a.SkillMapID, a.SkillMapAlias
	case contractx.RolePathway:
		id, alias = a.PathwayID, a.PathwayAlias
	case contractx.RolePortfolio:
		id, alias = a.PortfolioID, a.PortfolioAlias
	}
	return strings.TrimSpace(id), strings.TrimSpace(alias)
}
