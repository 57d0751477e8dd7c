package jsonx

import (
	"errors"
	"testing"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	type role struct {
		RoleName string `json:"role_name"`
	}

	cases := []struct {
		name string
		raw  string
		want int
	}{
		{name: "direct", raw: `[{"role_name":"A"},{"role_name":"B"}]`, want: 2},
		{name: "fenced", raw: "Here you go:\n```json\n[{\"role_name\":\"A\"}]\n```\nEnjoy!", want: 1},
		{name: "prose around", raw: `Sure! [{"role_name":"A"},{"role_name":"B"},{"role_name":"C"}] Hope it helps.`, want: 3},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got []role
			if err := Extract(tc.raw, &got); err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("len = %d, want %d (%+v)", len(got), tc.want, got)
			}
		})
	}
}

func TestExtractObjectAfterProse(t *testing.T) {
	t.Parallel()

	var got map[string]any
	if err := Extract(`The plan is {"scenes": [], "key_tasks": ["x"]} and more text }`, &got); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if _, ok := got["key_tasks"]; !ok {
		t.Fatalf("Extract() = %v", got)
	}
}

func TestExtractNoJSON(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "no json here", "[unterminated"} {
		if _, err := ExtractRaw(raw); !errors.Is(err, ErrNoJSON) {
			t.Fatalf("ExtractRaw(%q) error = %v, want ErrNoJSON", raw, err)
		}
	}
}
