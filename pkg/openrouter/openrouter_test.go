package openrouter

import "testing"

func TestWithModelKeepsDefaultsOnBlank(t *testing.T) {
	t.Parallel()

	base := Config{Model: "meta-llama/llama-3-8b-instruct", APIKey: "k"}
	if got := base.WithModel("  ").Model; got != base.Model {
		t.Fatalf("WithModel(blank).Model = %q, want %q", got, base.Model)
	}
	if got := base.WithModel("openai/gpt-4o-mini").Model; got != "openai/gpt-4o-mini" {
		t.Fatalf("WithModel().Model = %q", got)
	}
	if base.Model != "meta-llama/llama-3-8b-instruct" {
		t.Fatal("WithModel must not mutate the receiver")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{APIKey: "   "}) != nil {
		t.Fatal("expected nil client without api key")
	}
	if NewClient(Config{APIKey: "key", BaseURL: "https://example.test/v1/"}) == nil {
		t.Fatal("expected client with api key")
	}
}
