// Package server exposes the gateway and the career labs over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/sparkpath-gateway/agent/agents/labs"
	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	"github.com/tanpawarit/sparkpath-gateway/agent/gateway"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" split_words:"true" default:"*"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"90s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" split_words:"true" default:"26214400"`
}

// Gateway is the slice of gateway.Service the HTTP surface calls.
type Gateway interface {
	SubmitQuery(ctx context.Context, text string, sessionID string) (contractx.AgentResponse, error)
	SubmitQueryWithAudio(ctx context.Context, text string, sessionID string, audioRef *contractx.AssetReference) (contractx.AgentResponse, error)
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
	SaveAsset(ctx context.Context, blob []byte, sessionID string, kind contractx.AssetKind, mimeType string) (contractx.AssetReference, error)
	LoadAsset(ctx context.Context, key string) (contractx.PortfolioAsset, error)
	DeleteAsset(ctx context.Context, key string) error
	ListAssets(ctx context.Context, sessionID string) ([]contractx.AssetReference, error)
	LoadSession(ctx context.Context, sessionID string) (contractx.SessionState, error)
	CreateSession(ctx context.Context) (contractx.SessionState, error)
	ResetSession(ctx context.Context, sessionID string) (contractx.SessionState, error)
	DeleteSession(ctx context.Context, sessionID string) error
	VoiceTurn(ctx context.Context, audio []byte, sessionID string) (gateway.VoiceTurnResult, error)
}

// Labs is the slice of labs.Labs the HTTP surface calls.
type Labs interface {
	RoleOptions(ctx context.Context, p labs.Profile) (labs.RoleOptions, error)
	DaySimulation(ctx context.Context, role string, fitReason string) (labs.Simulation, error)
	SparkIdentity(ctx context.Context, in labs.IdentityInput) (labs.IdentityResult, error)
	ConfidenceReframe(ctx context.Context, in labs.ConfidenceInput) (labs.ConfidenceResult, error)
}

var (
	_ Gateway = (*gateway.Service)(nil)
	_ Labs    = (*labs.Labs)(nil)
)

type Server struct {
	gw     Gateway
	labs   Labs
	cfg    Config
	router chi.Router
}

// New builds the router. labs may be nil, in which case the /v1/labs routes are not
// mounted.
func New(gw Gateway, lab Labs, cfg Config) (*Server, error) {
	if gw == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 25 << 20
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{gw: gw, labs: lab, cfg: cfg, router: chi.NewRouter()}

	s.router.Use(chiMiddleware.RequestID)
	s.router.Use(chiMiddleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(chiMiddleware.Recoverer)
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type", "X-Request-Id"},
	}).Handler)

	s.registerRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/reset", s.handleResetSession)
			r.Post("/queries", s.handleSubmitQuery)
			r.Post("/voice", s.handleVoiceTurn)
			r.Get("/assets", s.handleListAssets)
			r.Post("/assets", s.handleSaveAsset)
		})

		r.Get("/assets/*", s.handleLoadAsset)
		r.Delete("/assets/*", s.handleDeleteAsset)

		r.Post("/transcriptions", s.handleTranscribe)
		r.Post("/speech", s.handleSynthesize)

		if s.labs != nil {
			r.Route("/labs", func(r chi.Router) {
				r.Post("/roles", s.handleRoleOptions)
				r.Post("/day", s.handleDaySimulation)
				r.Post("/identity", s.handleSparkIdentity)
				r.Post("/confidence", s.handleConfidence)
			})
		}
	})
}

// ListenAndServe serves until ctx ends, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
