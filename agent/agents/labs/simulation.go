package labs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

type Scene struct {
	TimeOfDay  string `json:"time_of_day"`
	ShortTitle string `json:"short_title"`
	Narration  string `json:"narration"`
}

type Simulation struct {
	Scenes        []Scene  `json:"scenes"`
	KeyTasks      []string `json:"key_tasks"`
	KeyChallenges []string `json:"key_challenges"`
	GrowthPath    []string `json:"growth_path"`
	Fallback      bool     `json:"fallback"`
}

func fallbackSimulation() Simulation {
	return Simulation{
		Scenes: []Scene{
			{
				TimeOfDay:  "9:00 AM",
				ShortTitle: "Getting started",
				Narration:  "You arrive, check messages, and review today's plan.",
			},
			{
				TimeOfDay:  "1:00 PM",
				ShortTitle: "In the middle of the action",
				Narration:  "You support the team during a busy part of the day, keeping things organized.",
			},
			{
				TimeOfDay:  "5:00 PM",
				ShortTitle: "Wrap up and reflect",
				Narration:  "You wrap up, note what went well, and think about how you can grow in this role.",
			},
		},
		KeyTasks: []string{
			"Support more senior teammates with planning and coordination.",
			"Communicate clearly with people in different roles.",
			"Stay flexible when plans change.",
		},
		KeyChallenges: []string{
			"Balancing multiple tasks at once.",
			"Handling last-minute changes calmly.",
			"Learning the tools and workflows used by the team.",
		},
		GrowthPath: []string{
			"Year 1: Learn the basics and find your strengths.",
			"Year 3: Take ownership of small projects or parts of a show.",
			"Year 5: Lead bigger projects and mentor newer teammates.",
		},
		Fallback: true,
	}
}

// DaySimulation narrates a typical workday in role. fitReason is why the role was
// suggested.
func (l *Labs) DaySimulation(ctx context.Context, role string, fitReason string) (Simulation, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return Simulation{}, fmt.Errorf("%w: role is required", contractx.ErrValidation)
	}

	sim, err := l.daySimulation(ctx, role, strings.TrimSpace(fitReason))
	if err != nil {
		warnFallback(ctx, "day_simulation", err)
		return fallbackSimulation(), nil
	}
	return sim, nil
}

func (l *Labs) daySimulation(ctx context.Context, role, fitReason string) (Simulation, error) {
	input := fmt.Sprintf("Role: %s\n\nWhy this role fits them:\n%s", role, fitReason)
	raw, err := complete(ctx, l.simulation, input)
	if err != nil {
		return Simulation{}, err
	}

	var sim Simulation
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &sim.Scenes); err != nil {
			return Simulation{}, fmt.Errorf("%w: scene list: %v", contractx.ErrSchemaViolation, err)
		}
	} else if err := json.Unmarshal(raw, &sim); err != nil {
		return Simulation{}, fmt.Errorf("%w: simulation: %v", contractx.ErrSchemaViolation, err)
	}

	sim.Fallback = false
	sim.KeyTasks = cleanList(sim.KeyTasks)
	sim.KeyChallenges = cleanList(sim.KeyChallenges)
	sim.GrowthPath = cleanList(sim.GrowthPath)
	if len(sim.Scenes) == 0 {
		return Simulation{}, fmt.Errorf("%w: simulation has no scenes", contractx.ErrSchemaViolation)
	}
	return sim, nil
}
