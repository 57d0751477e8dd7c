package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var (
	//go:embed template/master.txt
	masterRaw string

	//go:embed template/profile.txt
	profileRaw string

	//go:embed template/skill_mapping.txt
	skillMappingRaw string

	//go:embed template/pathway.txt
	pathwayRaw string

	//go:embed template/portfolio.txt
	portfolioRaw string

	//go:embed template/role_options.txt
	roleOptionsRaw string

	//go:embed template/day_simulation.txt
	daySimulationRaw string

	//go:embed template/spark_identity.txt
	sparkIdentityRaw string

	//go:embed template/confidence.txt
	confidenceRaw string
)

// PromptSet holds loaded prompt content. Prompts are eino FString templates, so literal
// braces are doubled.
type PromptSet struct {
	Master       string
	Profile      string
	SkillMapping string
	Pathway      string
	Portfolio    string

	RoleOptions   string
	DaySimulation string
	SparkIdentity string
	Confidence    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Master:        strings.TrimSpace(masterRaw),
		Profile:       strings.TrimSpace(profileRaw),
		SkillMapping:  strings.TrimSpace(skillMappingRaw),
		Pathway:       strings.TrimSpace(pathwayRaw),
		Portfolio:     strings.TrimSpace(portfolioRaw),
		RoleOptions:   strings.TrimSpace(roleOptionsRaw),
		DaySimulation: strings.TrimSpace(daySimulationRaw),
		SparkIdentity: strings.TrimSpace(sparkIdentityRaw),
		Confidence:    strings.TrimSpace(confidenceRaw),
	}
}

func (p PromptSet) ForCategory(c contractx.Category) string {
	switch c {
	case contractx.CategoryProfile:
		return p.Profile
	case contractx.CategorySkillMapping:
		return p.SkillMapping
	case contractx.CategoryPathway:
		return p.Pathway
	case contractx.CategoryPortfolio:
		return p.Portfolio
	}
	return p.Master
}

func (p PromptSet) Validate() error {
	required := map[string]string{
		"master":         p.Master,
		"profile":        p.Profile,
		"skill_mapping":  p.SkillMapping,
		"pathway":        p.Pathway,
		"portfolio":      p.Portfolio,
		"role_options":   p.RoleOptions,
		"day_simulation": p.DaySimulation,
		"spark_identity": p.SparkIdentity,
		"confidence":     p.Confidence,
	}
	for name, text := range required {
		if text == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
