package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/sparkpath-gateway/agent/agents/labs"
	"github.com/tanpawarit/sparkpath-gateway/agent/agents/remote"
	"github.com/tanpawarit/sparkpath-gateway/agent/agents/specialist"
	assetx "github.com/tanpawarit/sparkpath-gateway/agent/asset"
	"github.com/tanpawarit/sparkpath-gateway/agent/asset/cos"
	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	"github.com/tanpawarit/sparkpath-gateway/agent/gateway"
	llmx "github.com/tanpawarit/sparkpath-gateway/agent/llm"
	promptx "github.com/tanpawarit/sparkpath-gateway/agent/prompt"
	"github.com/tanpawarit/sparkpath-gateway/agent/speech"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
	configx "github.com/tanpawarit/sparkpath-gateway/pkg/config"
	qstashx "github.com/tanpawarit/sparkpath-gateway/pkg/qstash"
	"github.com/tanpawarit/sparkpath-gateway/pkg/telemetry"
)

// BackendConfig picks which implementation serves each collaborator.
type BackendConfig struct {
	// Router is "openrouter" (in-process specialists) or "remote" (managed agent runtime).
	Router       string `envconfig:"ROUTER" default:"openrouter"`
	SessionStore string `envconfig:"SESSION_STORE" split_words:"true" default:"memory"`
	AssetStore   string `envconfig:"ASSET_STORE" split_words:"true" default:"memory"`
	Speech       bool   `envconfig:"SPEECH" default:"true"`
	Events       bool   `envconfig:"EVENTS" default:"false"`
	Labs         bool   `envconfig:"LABS" default:"true"`
}

func (b *BackendConfig) normalize() {
	b.Router = orDefault(b.Router, "openrouter")
	b.SessionStore = orDefault(b.SessionStore, "memory")
	b.AssetStore = orDefault(b.AssetStore, "memory")
}

func orDefault(v, def string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v == "" {
		return def
	}
	return v
}

type app struct {
	gw      *gateway.Service
	labs    *labs.Labs
	closers []func(context.Context) error
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newApp is swapped in tests.
var newApp = buildApp

func buildApp(ctx context.Context) (*app, error) {
	backends, err := configx.New[BackendConfig]("SPARKPATH")
	if err != nil {
		return nil, err
	}
	backends.normalize()
	gwCfg, err := configx.New[gateway.Config]("GATEWAY")
	if err != nil {
		return nil, err
	}

	a := &app{}
	fail := func(err error) (*app, error) {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	store, err := a.sessionStore(ctx, backends.SessionStore)
	if err != nil {
		return fail(err)
	}
	assets, err := assetStore(backends.AssetStore)
	if err != nil {
		return fail(err)
	}

	agents, err := configx.New[llmx.AgentsConfig]("AGENTS")
	if err != nil {
		return fail(err)
	}
	if err := agents.Validate(); err != nil {
		return fail(err)
	}

	var llmCfg *llmx.Config
	if backends.Router == "openrouter" || backends.Labs {
		if llmCfg, err = configx.New[llmx.Config]("OPENROUTER"); err != nil {
			return fail(err)
		}
	}

	router, err := agentRouter(ctx, backends.Router, llmCfg, *agents)
	if err != nil {
		return fail(err)
	}

	otelCfg, err := configx.New[telemetry.Config]("OTEL")
	if err != nil {
		return fail(err)
	}
	meter, shutdown, err := telemetry.Start(ctx, *otelCfg)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, shutdown)
	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		return fail(err)
	}

	opts := []gateway.Option{gateway.WithMetrics(metrics)}

	if backends.Speech {
		speechCfg, err := configx.New[speech.Config]("SPEECH")
		if err != nil {
			return fail(err)
		}
		sp, err := speech.NewOpenAI(*speechCfg)
		if err != nil {
			return fail(err)
		}
		opts = append(opts, gateway.WithSpeech(sp, sp))
	}

	if backends.Events {
		qCfg, err := configx.New[qstashx.Config]("QSTASH")
		if err != nil {
			return fail(err)
		}
		pub, err := qstashx.NewClient(*qCfg)
		if err != nil {
			return fail(err)
		}
		opts = append(opts, gateway.WithEvents(pub))
	}

	if a.gw, err = gateway.New(store, router, assets, *gwCfg, opts...); err != nil {
		return fail(err)
	}

	if backends.Labs {
		// Labs run on the base model, not on an agent id.
		labCfg := llmCfg.OpenRouterFor(contractx.RoleMaster, llmx.AgentsConfig{MasterTemperature: -1})
		chatModel, err := labCfg.New(ctx)
		if err != nil {
			return fail(fmt.Errorf("labs model: %w", err))
		}
		if a.labs, err = labs.New(ctx, chatModel, promptx.LoadPromptSet()); err != nil {
			return fail(err)
		}
	}

	log.Ctx(ctx).Info().
		Str("router", backends.Router).
		Str("session_store", backends.SessionStore).
		Str("asset_store", backends.AssetStore).
		Bool("speech", backends.Speech).
		Bool("events", backends.Events).
		Bool("labs", backends.Labs).
		Msg("gateway wired")
	return a, nil
}

func (a *app) sessionStore(ctx context.Context, kind string) (statex.Store, error) {
	switch kind {
	case "memory":
		return statex.NewMemoryStore(), nil
	case "upstash":
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, err
		}
		return statex.NewUpstashRedisStore(*cfg)
	case "postgres":
		cfg, err := configx.New[statex.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, err
		}
		store, err := statex.NewPostgresStore(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		return store, nil
	}
	return nil, fmt.Errorf("unknown session store %q", kind)
}

func assetStore(kind string) (assetx.Store, error) {
	switch kind {
	case "memory":
		return assetx.NewMemoryStore(), nil
	case "cos":
		cfg, err := configx.New[cos.Config]("COS")
		if err != nil {
			return nil, err
		}
		return cos.New(*cfg)
	}
	return nil, fmt.Errorf("unknown asset store %q", kind)
}

func agentRouter(ctx context.Context, kind string, llmCfg *llmx.Config, agents llmx.AgentsConfig) (contractx.Router, error) {
	switch kind {
	case "openrouter":
		if err := llmCfg.Validate(); err != nil {
			return nil, err
		}
		registry, err := specialist.NewRegistry(ctx, *llmCfg, agents)
		if err != nil {
			return nil, err
		}
		return specialist.NewRouter(ctx, registry)
	case "remote":
		cfg, err := configx.New[remote.Config]("AGENT_RUNTIME")
		if err != nil {
			return nil, err
		}
		return remote.New(*cfg, agents)
	}
	return nil, fmt.Errorf("unknown router %q", kind)
}
