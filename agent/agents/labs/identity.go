package labs

import (
	"context"
	"encoding/json"
	"fmt"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

// Comfort-zone sliders, each on a 0 to 10 scale.
const (
	SliderChaosStructure        = "chaos_structure"
	SliderSoloTeam              = "solo_team"
	SliderExpressionObservation = "expression_observation"
	SliderLogicEmotion          = "logic_emotion"
	SliderPeopleBackstage       = "people_backstage"
	SliderBigPictureDetail      = "bigpicture_detail"

	sliderMidpoint = 5
)

type IdentityInput struct {
	Answers map[string]string `json:"answers"`
	Sliders map[string]int    `json:"sliders"`
}

func (in IdentityInput) slider(name string) int {
	if v, ok := in.Sliders[name]; ok {
		return v
	}
	return sliderMidpoint
}

type Archetype struct {
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
}

type CreativeEnvironment struct {
	Summary       string   `json:"summary"`
	ExampleSpaces []string `json:"example_spaces"`
}

type SuggestedRole struct {
	RoleName  string `json:"role_name"`
	WhyItFits string `json:"why_it_fits"`
}

type IdentityResult struct {
	SparkArchetypes     []Archetype         `json:"spark_archetypes"`
	CreativeEnvironment CreativeEnvironment `json:"creative_environment"`
	SuggestedRoles      []SuggestedRole     `json:"suggested_roles"`
	Fallback            bool                `json:"fallback"`
}

// SparkIdentity maps quiz answers and comfort-zone sliders to spark archetypes.
func (l *Labs) SparkIdentity(ctx context.Context, in IdentityInput) (IdentityResult, error) {
	for name, v := range in.Sliders {
		if v < 0 || v > 10 {
			return IdentityResult{}, fmt.Errorf("%w: slider %s=%d is outside 0..10", contractx.ErrValidation, name, v)
		}
	}

	res, err := l.sparkIdentity(ctx, in)
	if err != nil {
		warnFallback(ctx, "spark_identity", err)
		return fallbackIdentity(in), nil
	}
	return res, nil
}

func (l *Labs) sparkIdentity(ctx context.Context, in IdentityInput) (IdentityResult, error) {
	raw, err := complete(ctx, l.identity, marshalInput(in))
	if err != nil {
		return IdentityResult{}, err
	}

	var res IdentityResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return IdentityResult{}, fmt.Errorf("%w: identity: %v", contractx.ErrSchemaViolation, err)
	}
	res.Fallback = false
	if len(res.SparkArchetypes) == 0 {
		return IdentityResult{}, fmt.Errorf("%w: identity has no archetypes", contractx.ErrSchemaViolation)
	}
	return res, nil
}

func fallbackIdentity(in IdentityInput) IdentityResult {
	archetype := Archetype{
		Name:        "Emerging Creator",
		Tagline:     "You’re still exploring, but your creative spark is real.",
		Description: "Based on your answers, you enjoy playing with ideas and noticing details in your own way. This archetype means you don’t have to have it all figured out yet. You’re in the discovery phase, which is powerful.",
	}
	switch chaos := in.slider(SliderChaosStructure); {
	case chaos >= 7:
		archetype.Name = "Vibe Curator in Progress"
		archetype.Tagline = "You like energy, mood, and letting things flow."
	case chaos <= 3:
		archetype.Name = "Vision Architect in Progress"
		archetype.Tagline = "You like plans, structure, and knowing the why behind things."
	}

	summary := "You’d likely do well in a space that gives you room to learn, experiment, " +
		"and contribute without all the pressure on you at once."
	switch team := in.slider(SliderSoloTeam); {
	case team >= 7:
		summary += " You seem to recharge around people and might enjoy small, tight-knit creative teams."
	case team <= 3:
		summary += " You might prefer roles where you can focus quietly and then share your work."
	}

	return IdentityResult{
		SparkArchetypes: []Archetype{archetype},
		CreativeEnvironment: CreativeEnvironment{
			Summary: summary,
			ExampleSpaces: []string{
				"A small content studio where you can learn from others",
				"A quiet edit bay or creator corner where you can focus",
			},
		},
		SuggestedRoles: []SuggestedRole{
			{
				RoleName:  "Content Assistant / Editor-in-training",
				WhyItFits: "You can experiment, learn tools, and slowly take on more responsibility without needing to be perfect on day one.",
			},
			{
				RoleName:  "Production Helper on small shoots",
				WhyItFits: "You’ll see many parts of the process and figure out what you like best.",
			},
		},
		Fallback: true,
	}
}
