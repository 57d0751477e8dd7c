// Package jsonx pulls a JSON value out of free-form model output.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("could not extract JSON from model output")

// Extract decodes the first usable JSON array or object in raw into v. It tries the
// whole text, then each ``` fenced block, then the shortest substring that starts at
// the first '[' (or '{') and parses.
func Extract(raw string, v any) error {
	candidate, err := ExtractRaw(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(candidate, v)
}

func ExtractRaw(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)

	if json.Valid([]byte(raw)) && raw != "" {
		return json.RawMessage(raw), nil
	}

	if strings.Contains(raw, "```") {
		for _, part := range strings.Split(raw, "```") {
			candidate := strings.TrimSpace(part)
			// ```json fences keep the language tag on the first line
			if rest, ok := strings.CutPrefix(candidate, "json"); ok {
				candidate = strings.TrimSpace(rest)
			}
			if !strings.HasPrefix(candidate, "[") && !strings.HasPrefix(candidate, "{") {
				continue
			}
			if json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), nil
			}
		}
	}

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(raw, pair[0])
		if start < 0 {
			continue
		}
		for end := start + 1; end < len(raw); end++ {
			if raw[end] != pair[1] {
				continue
			}
			candidate := raw[start : end+1]
			if json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), nil
			}
		}
	}

	return nil, ErrNoJSON
}
