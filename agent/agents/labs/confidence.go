package labs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

type ConfidenceInput struct {
	Weaknesses   []string `json:"weaknesses"`
	Barriers     []string `json:"barriers"`
	ExtraBarrier string   `json:"extra_barrier,omitempty"`
}

type Reframe struct {
	Original      string   `json:"original"`
	Strength      string   `json:"strength"`
	ExampleRoles  []string `json:"example_roles"`
	Encouragement string   `json:"encouragement"`
}

type BarrierPlan struct {
	Barrier string   `json:"barrier"`
	Actions []string `json:"actions"`
}

type ConfidenceResult struct {
	WeaknessReframes  []Reframe     `json:"weakness_reframes"`
	BarrierActionPlan []BarrierPlan `json:"barrier_action_plan"`
	GeneralBoost      string        `json:"general_boost"`
	Fallback          bool          `json:"fallback"`
}

const fallbackBoost = "Even if things feel slow or blocked, every tiny experiment counts. You’re not behind, you’re just starting."

// ConfidenceReframe turns self-described weaknesses into strengths and suggests
// low-cost first steps for each barrier.
func (l *Labs) ConfidenceReframe(ctx context.Context, in ConfidenceInput) (ConfidenceResult, error) {
	in.Weaknesses = cleanList(in.Weaknesses)
	in.Barriers = cleanList(in.Barriers)
	in.ExtraBarrier = strings.TrimSpace(in.ExtraBarrier)
	if len(in.Weaknesses) == 0 && len(in.Barriers) == 0 && in.ExtraBarrier == "" {
		return ConfidenceResult{}, fmt.Errorf("%w: at least one weakness or barrier is required", contractx.ErrValidation)
	}

	res, err := l.confidenceReframe(ctx, in)
	if err != nil {
		warnFallback(ctx, "confidence", err)
		return fallbackConfidence(in), nil
	}
	return res, nil
}

func (l *Labs) confidenceReframe(ctx context.Context, in ConfidenceInput) (ConfidenceResult, error) {
	raw, err := complete(ctx, l.confidence, marshalInput(in))
	if err != nil {
		return ConfidenceResult{}, err
	}

	var res ConfidenceResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return ConfidenceResult{}, fmt.Errorf("%w: confidence: %v", contractx.ErrSchemaViolation, err)
	}
	res.Fallback = false
	res.GeneralBoost = strings.TrimSpace(res.GeneralBoost)
	if len(res.WeaknessReframes) == 0 && len(res.BarrierActionPlan) == 0 {
		return ConfidenceResult{}, fmt.Errorf("%w: confidence result is empty", contractx.ErrSchemaViolation)
	}
	return res, nil
}

func fallbackConfidence(in ConfidenceInput) ConfidenceResult {
	reframes := make([]Reframe, 0, len(in.Weaknesses))
	for _, w := range in.Weaknesses {
		r := Reframe{
			Original:      w,
			Strength:      "You care deeply and notice things others might miss.",
			ExampleRoles:  []string{"Content editor", "Research assistant for shows", "Behind-the-scenes coordinator"},
			Encouragement: "Your way of being has value, you don’t need to become someone else to contribute creatively.",
		}
		switch lower := strings.ToLower(w); {
		case strings.Contains(lower, "shy"):
			r.Strength = "You’re observant and good at listening, which is powerful in backstage and editing roles."
			r.ExampleRoles = []string{"Video editor", "Continuity checker", "Researcher"}
		case strings.Contains(lower, "overthink"):
			r.Strength = "You think things through, which helps with planning and quality control."
			r.ExampleRoles = []string{"Assistant producer", "Script reviewer", "Social media planner"}
		}
		reframes = append(reframes, r)
	}

	barriers := append([]string(nil), in.Barriers...)
	if in.ExtraBarrier != "" {
		barriers = append(barriers, in.ExtraBarrier)
	}
	plan := make([]BarrierPlan, 0, len(barriers))
	for _, b := range barriers {
		plan = append(plan, BarrierPlan{
			Barrier: b,
			Actions: []string{
				"Write down one tiny creative action you can do in 10 minutes this week.",
				"Find one free online resource (YouTube, TikTok, etc.) that teaches a skill you care about.",
			},
		})
	}

	return ConfidenceResult{
		WeaknessReframes:  reframes,
		BarrierActionPlan: plan,
		GeneralBoost:      fallbackBoost,
		Fallback:          true,
	}
}
