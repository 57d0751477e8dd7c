package labs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	promptx "github.com/tanpawarit/sparkpath-gateway/agent/prompt"
)

type fakeChatModel struct {
	mu     sync.Mutex
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) lastUserInput() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return ""
	}
	msgs := f.inputs[len(f.inputs)-1]
	return msgs[len(msgs)-1].Content
}

func newTestLabs(t *testing.T, model *fakeChatModel) *Labs {
	t.Helper()
	l, err := New(context.Background(), model, promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestNewRequiresPrompts(t *testing.T) {
	t.Parallel()

	prompts := promptx.LoadPromptSet()
	prompts.Confidence = " "
	if _, err := New(context.Background(), &fakeChatModel{}, prompts); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("New() error = %v, want ErrPromptMissing", err)
	}
	if _, err := New(context.Background(), nil, promptx.LoadPromptSet()); err == nil {
		t.Fatal("expected error for nil model")
	}
}

func TestRoleOptionsFromModel(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{reply: "Here you go!\n```json\n[" +
		`{"role_name":"Dance Content Editor","one_sentence_hook":"Cut moves to the beat.","why_it_fits_this_person":"You edit reels."},` +
		`{"role_name":"Tour Social Lead","one_sentence_hook":"Run the tour feed.","why_it_fits_this_person":"You live online."},` +
		`{"role_name":"  ","one_sentence_hook":"skip me","why_it_fits_this_person":""},` +
		`{"role_name":"Music Video Assistant","one_sentence_hook":"Be on set.","why_it_fits_this_person":"You love sets."}` +
		"]\n```"}
	l := newTestLabs(t, model)

	got, err := l.RoleOptions(context.Background(), Profile{
		Interests:     []string{"Dance", " ", "Social Media"},
		WorkStyle:     "Behind the scenes",
		FavoriteDay:   "Edited a friend's TikTok",
		ContentHabits: "dance reels",
	})
	if err != nil {
		t.Fatalf("RoleOptions() error = %v", err)
	}
	if got.Fallback {
		t.Fatal("did not expect fallback")
	}
	if len(got.Roles) != 3 || got.Roles[0].RoleName != "Dance Content Editor" {
		t.Fatalf("roles = %+v", got.Roles)
	}

	input := model.lastUserInput()
	if !strings.Contains(input, "Interests: Dance, Social Media") || !strings.Contains(input, "Work style: Behind the scenes") {
		t.Fatalf("profile input = %q", input)
	}
}

func TestRoleOptionsCapsAtFive(t *testing.T) {
	t.Parallel()

	var items []string
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		items = append(items, `{"role_name":"`+name+`"}`)
	}
	l := newTestLabs(t, &fakeChatModel{reply: "[" + strings.Join(items, ",") + "]"})

	got, _ := l.RoleOptions(context.Background(), Profile{})
	if got.Fallback || len(got.Roles) != 5 || got.Roles[4].RoleName != "E" {
		t.Fatalf("RoleOptions() = %+v", got)
	}
}

func TestRoleOptionsFallback(t *testing.T) {
	t.Parallel()

	cases := map[string]*fakeChatModel{
		"model error":   {err: errors.New("throttled")},
		"no json":       {reply: "I think you'd be a great producer!"},
		"empty list":    {reply: "[]"},
		"too few roles": {reply: `[{"role_name":"Solo"}]`},
	}
	for name, model := range cases {
		l := newTestLabs(t, model)
		got, err := l.RoleOptions(context.Background(), Profile{})
		if err != nil {
			t.Fatalf("%s: RoleOptions() error = %v", name, err)
		}
		if !got.Fallback || len(got.Roles) != 3 || got.Roles[0].RoleName != "Assistant Creative Producer" {
			t.Fatalf("%s: RoleOptions() = %+v", name, got)
		}
	}
}

func TestDaySimulation(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{reply: `{"scenes":[{"time_of_day":"9:15 AM","short_title":"Kickoff","narration":"You grab a coffee."}],` +
		`"key_tasks":["Plan the shoot",""],"key_challenges":["Late talent"],"growth_path":["Year 1: learn"]}`}
	l := newTestLabs(t, model)

	sim, err := l.DaySimulation(context.Background(), "Assistant Creative Producer", "You like planning.")
	if err != nil {
		t.Fatalf("DaySimulation() error = %v", err)
	}
	if sim.Fallback || len(sim.Scenes) != 1 || sim.Scenes[0].ShortTitle != "Kickoff" {
		t.Fatalf("DaySimulation() = %+v", sim)
	}
	if len(sim.KeyTasks) != 1 {
		t.Fatalf("blank tasks should be dropped: %v", sim.KeyTasks)
	}
	if !strings.Contains(model.lastUserInput(), "Role: Assistant Creative Producer") {
		t.Fatalf("input = %q", model.lastUserInput())
	}
}

func TestDaySimulationWrapsBareList(t *testing.T) {
	t.Parallel()

	l := newTestLabs(t, &fakeChatModel{reply: `Sure: [{"time_of_day":"10 AM","short_title":"Rehearsal","narration":"You run lines."},` +
		`{"time_of_day":"6 PM","short_title":"Show","narration":"You cue the lights."}]`})

	sim, err := l.DaySimulation(context.Background(), "Stage Manager", "")
	if err != nil {
		t.Fatalf("DaySimulation() error = %v", err)
	}
	if sim.Fallback || len(sim.Scenes) != 2 || sim.Scenes[1].ShortTitle != "Show" {
		t.Fatalf("DaySimulation() = %+v", sim)
	}
}

func TestDaySimulationFallbackAndValidation(t *testing.T) {
	t.Parallel()

	l := newTestLabs(t, &fakeChatModel{reply: "not json at all"})

	sim, err := l.DaySimulation(context.Background(), "Editor", "why not")
	if err != nil {
		t.Fatalf("DaySimulation() error = %v", err)
	}
	if !sim.Fallback || len(sim.Scenes) != 3 || sim.Scenes[0].TimeOfDay != "9:00 AM" || len(sim.GrowthPath) != 3 {
		t.Fatalf("DaySimulation() = %+v", sim)
	}

	if _, err := l.DaySimulation(context.Background(), "  ", "x"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("blank role error = %v", err)
	}
}

func TestSparkIdentityFromModel(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{reply: `{"spark_archetypes":[{"name":"Story Weaver","tagline":"t","description":"d"}],` +
		`"creative_environment":{"summary":"writer's room","example_spaces":["room"]},` +
		`"suggested_roles":[{"role_name":"Script Assistant","why_it_fits":"words"}]}`}
	l := newTestLabs(t, model)

	res, err := l.SparkIdentity(context.Background(), IdentityInput{
		Answers: map[string]string{"weekend": "writing stories"},
		Sliders: map[string]int{SliderChaosStructure: 6},
	})
	if err != nil {
		t.Fatalf("SparkIdentity() error = %v", err)
	}
	if res.Fallback || res.SparkArchetypes[0].Name != "Story Weaver" || res.SuggestedRoles[0].RoleName != "Script Assistant" {
		t.Fatalf("SparkIdentity() = %+v", res)
	}
	if !strings.Contains(model.lastUserInput(), `"chaos_structure": 6`) {
		t.Fatalf("input = %q", model.lastUserInput())
	}
}

func TestSparkIdentityFallbackFollowsSliders(t *testing.T) {
	t.Parallel()

	l := newTestLabs(t, &fakeChatModel{err: errors.New("model offline")})

	cases := []struct {
		sliders     map[string]int
		archetype   string
		summaryTail string
	}{
		{nil, "Emerging Creator", "pressure on you at once."},
		{map[string]int{SliderChaosStructure: 8, SliderSoloTeam: 9}, "Vibe Curator in Progress", "tight-knit creative teams."},
		{map[string]int{SliderChaosStructure: 2, SliderSoloTeam: 1}, "Vision Architect in Progress", "then share your work."},
		{map[string]int{SliderChaosStructure: 7, SliderSoloTeam: 3}, "Vibe Curator in Progress", "then share your work."},
	}
	for _, tc := range cases {
		res, err := l.SparkIdentity(context.Background(), IdentityInput{Sliders: tc.sliders})
		if err != nil {
			t.Fatalf("SparkIdentity(%v) error = %v", tc.sliders, err)
		}
		if !res.Fallback || res.SparkArchetypes[0].Name != tc.archetype {
			t.Fatalf("SparkIdentity(%v) archetype = %q", tc.sliders, res.SparkArchetypes[0].Name)
		}
		if !strings.HasSuffix(res.CreativeEnvironment.Summary, tc.summaryTail) {
			t.Fatalf("SparkIdentity(%v) summary = %q", tc.sliders, res.CreativeEnvironment.Summary)
		}
		if len(res.SuggestedRoles) != 2 || len(res.CreativeEnvironment.ExampleSpaces) != 2 {
			t.Fatalf("SparkIdentity(%v) = %+v", tc.sliders, res)
		}
	}

	if _, err := l.SparkIdentity(context.Background(), IdentityInput{Sliders: map[string]int{SliderSoloTeam: 11}}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("out of range slider error = %v", err)
	}
}

func TestConfidenceReframeFromModel(t *testing.T) {
	t.Parallel()

	l := newTestLabs(t, &fakeChatModel{reply: "```\n" + `{"weakness_reframes":[{"original":"I'm shy","strength":"observant","example_roles":["Editor"],"encouragement":"quiet power"}],` +
		`"barrier_action_plan":[{"barrier":"Money","actions":["Try CapCut"]}],"general_boost":" You got this. "}` + "\n```"})

	res, err := l.ConfidenceReframe(context.Background(), ConfidenceInput{Weaknesses: []string{"I'm shy"}, Barriers: []string{"Money"}})
	if err != nil {
		t.Fatalf("ConfidenceReframe() error = %v", err)
	}
	if res.Fallback || res.GeneralBoost != "You got this." || res.BarrierActionPlan[0].Actions[0] != "Try CapCut" {
		t.Fatalf("ConfidenceReframe() = %+v", res)
	}
}

func TestConfidenceReframeFallback(t *testing.T) {
	t.Parallel()

	l := newTestLabs(t, &fakeChatModel{reply: "{broken"})

	res, err := l.ConfidenceReframe(context.Background(), ConfidenceInput{
		Weaknesses:   []string{"I'm SHY around new people", "I overthink everything", "I'm slow"},
		Barriers:     []string{"Money", " "},
		ExtraBarrier: "No laptop",
	})
	if err != nil {
		t.Fatalf("ConfidenceReframe() error = %v", err)
	}
	if !res.Fallback || res.GeneralBoost != fallbackBoost {
		t.Fatalf("ConfidenceReframe() = %+v", res)
	}
	if len(res.WeaknessReframes) != 3 {
		t.Fatalf("reframes = %+v", res.WeaknessReframes)
	}
	if res.WeaknessReframes[0].ExampleRoles[0] != "Video editor" {
		t.Fatalf("shy reframe = %+v", res.WeaknessReframes[0])
	}
	if res.WeaknessReframes[1].ExampleRoles[0] != "Assistant producer" {
		t.Fatalf("overthink reframe = %+v", res.WeaknessReframes[1])
	}
	if res.WeaknessReframes[2].ExampleRoles[0] != "Content editor" {
		t.Fatalf("default reframe = %+v", res.WeaknessReframes[2])
	}
	if len(res.BarrierActionPlan) != 2 || res.BarrierActionPlan[1].Barrier != "No laptop" || len(res.BarrierActionPlan[1].Actions) != 2 {
		t.Fatalf("action plan = %+v", res.BarrierActionPlan)
	}

	if _, err := l.ConfidenceReframe(context.Background(), ConfidenceInput{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty input error = %v", err)
	}
}
