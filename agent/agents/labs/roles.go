package labs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

const (
	minRoleOptions = 3
	maxRoleOptions = 5
)

// Profile is the quiz a user fills in before seeing role options.
type Profile struct {
	Interests     []string `json:"interests"`
	WorkStyle     string   `json:"work_style"`
	FavoriteDay   string   `json:"favorite_day"`
	ContentHabits string   `json:"content_habits"`
}

func (p Profile) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(cleanList(p.Interests), ", "))
	fmt.Fprintf(&b, "Work style: %s\n", strings.TrimSpace(p.WorkStyle))
	fmt.Fprintf(&b, "Favorite day: %s\n", strings.TrimSpace(p.FavoriteDay))
	fmt.Fprintf(&b, "Content habits: %s", strings.TrimSpace(p.ContentHabits))
	return b.String()
}

type RoleOption struct {
	RoleName  string `json:"role_name"`
	Hook      string `json:"one_sentence_hook"`
	WhyItFits string `json:"why_it_fits_this_person"`
}

type RoleOptions struct {
	Roles    []RoleOption `json:"roles"`
	Fallback bool         `json:"fallback"`
}

var fallbackRoles = []RoleOption{
	{
		RoleName:  "Assistant Creative Producer",
		Hook:      "You turn ideas and chaos into an actual show.",
		WhyItFits: "You enjoy planning, working with others, and being near the action.",
	},
	{
		RoleName:  "Community Content Curator",
		Hook:      "You find the best stories and help them shine.",
		WhyItFits: "You like social media, picking good content, and boosting others’ voices.",
	},
	{
		RoleName:  "Studio Session Coordinator",
		Hook:      "You keep studio days running smooth and on time.",
		WhyItFits: "You’re organized and don’t mind juggling multiple tasks.",
	},
}

// RoleOptions suggests three to five entertainment roles for p.
func (l *Labs) RoleOptions(ctx context.Context, p Profile) (RoleOptions, error) {
	roles, err := l.roleOptions(ctx, p)
	if err != nil {
		warnFallback(ctx, "role_options", err)
		return RoleOptions{Roles: append([]RoleOption(nil), fallbackRoles...), Fallback: true}, nil
	}
	return RoleOptions{Roles: roles}, nil
}

func (l *Labs) roleOptions(ctx context.Context, p Profile) ([]RoleOption, error) {
	raw, err := complete(ctx, l.roles, p.text())
	if err != nil {
		return nil, err
	}

	var parsed []RoleOption
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// some models wrap the list as {"roles": [...]}
		var wrapped struct {
			Roles []RoleOption `json:"roles"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("%w: role list: %v", contractx.ErrSchemaViolation, err)
		}
		parsed = wrapped.Roles
	}

	roles := make([]RoleOption, 0, len(parsed))
	for _, r := range parsed {
		r.RoleName = strings.TrimSpace(r.RoleName)
		if r.RoleName == "" {
			continue
		}
		r.Hook = strings.TrimSpace(r.Hook)
		r.WhyItFits = strings.TrimSpace(r.WhyItFits)
		roles = append(roles, r)
	}
	if len(roles) < minRoleOptions {
		return nil, fmt.Errorf("%w: got %d roles, want at least %d", contractx.ErrSchemaViolation, len(roles), minRoleOptions)
	}
	if len(roles) > maxRoleOptions {
		roles = roles[:maxRoleOptions]
	}
	return roles, nil
}
