// Package gateway is the Agent Orchestration Gateway. Each operation turns one local
// action into calls against the remote routing endpoint, session store, object store
// and speech services.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	assetx "github.com/tanpawarit/sparkpath-gateway/agent/asset"
	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	nodex "github.com/tanpawarit/sparkpath-gateway/agent/nodes"
	"github.com/tanpawarit/sparkpath-gateway/agent/speech"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
	logx "github.com/tanpawarit/sparkpath-gateway/pkg/logger"
	"github.com/tanpawarit/sparkpath-gateway/pkg/retry"
	"github.com/tanpawarit/sparkpath-gateway/pkg/telemetry"
)

const FallbackReply = nodex.FallbackReply

type Option func(*Service)

func WithSpeech(stt speech.Transcriber, tts speech.Synthesizer) Option {
	return func(s *Service) {
		s.stt = stt
		s.tts = tts
	}
}

func WithEvents(pub contractx.EventPublisher) Option {
	return func(s *Service) {
		if pub != nil {
			s.events = pub
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new session ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Service holds no per-session state; every session lives in the remote stores.
type Service struct {
	store  statex.Store
	router contractx.Router
	assets assetx.Store
	stt    speech.Transcriber
	tts    speech.Synthesizer
	events contractx.EventPublisher

	metrics *telemetry.Metrics
	cfg     Config
	policy  retry.Policy

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(
	store statex.Store,
	router contractx.Router,
	assets assetx.Store,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if router == nil {
		return nil, errors.New("agent router is required")
	}
	if assets == nil {
		return nil, errors.New("asset store is required")
	}
	if strings.TrimSpace(cfg.AssetPrefix) == "" {
		cfg.AssetPrefix = assetx.DefaultKeyPrefix
	}

	s := &Service{
		store:  store,
		router: router,
		assets: assets,
		events: noopPublisher{},
		cfg:    cfg,
		policy: cfg.retryPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	graphRunner, err := s.compileSubmitGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// SubmitQuery routes text for an existing session and records the exchange once the
// remote agent has answered.
func (s *Service) SubmitQuery(ctx context.Context, text string, sessionID string) (contractx.AgentResponse, error) {
	return s.submit(ctx, "submit_query", nodex.GraphInput{SessionID: sessionID, Text: text})
}

// SubmitQueryWithAudio is SubmitQuery for a transcribed recording; audioRef is kept on
// the recorded Query.
func (s *Service) SubmitQueryWithAudio(
	ctx context.Context,
	text string,
	sessionID string,
	audioRef *contractx.AssetReference,
) (contractx.AgentResponse, error) {
	return s.submit(ctx, "submit_query_with_audio", nodex.GraphInput{SessionID: sessionID, Text: text, AudioRef: audioRef})
}

func (s *Service) submit(ctx context.Context, op string, in nodex.GraphInput) (resp contractx.AgentResponse, err error) {
	ctx, done := s.begin(ctx, op, in.SessionID)
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	out, err := s.graphRunner.Invoke(ctx, in)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	logx.Ctx(ctx).Info().
		Str("category", string(out.Response.Category)).
		Int64("seq", out.Seq).
		Msg("exchange recorded")
	s.publish(ctx, contractx.Event{
		Type:      contractx.EventExchangeRecorded,
		SessionID: strings.TrimSpace(in.SessionID),
		Seq:       out.Seq,
		Category:  out.Response.Category,
		At:        out.Response.ReceivedAt,
	})
	return out.Response, nil
}

func (s *Service) TranscribeAudio(ctx context.Context, audio []byte) (text string, err error) {
	ctx, done := s.begin(ctx, "transcribe_audio", "")
	defer func() { err = done(err, contractx.ErrTranscriptionFailed) }()

	if len(audio) == 0 {
		return "", fmt.Errorf("%w: audio is empty", contractx.ErrTranscriptionFailed)
	}
	if s.stt == nil {
		return "", fmt.Errorf("%w: speech-to-text is not configured", contractx.ErrTranscriptionFailed)
	}

	mimeType := DetectAudioMIME(audio)
	return retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.stt.Transcribe(ctx, audio, mimeType)
	})
}

// SynthesizeSpeech returns mp3 audio for text.
func (s *Service) SynthesizeSpeech(ctx context.Context, text string) (audio []byte, err error) {
	ctx, done := s.begin(ctx, "synthesize_speech", "")
	defer func() { err = done(err, contractx.ErrSynthesisFailed) }()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", contractx.ErrSynthesisFailed)
	}
	if s.tts == nil {
		return nil, fmt.Errorf("%w: text-to-speech is not configured", contractx.ErrSynthesisFailed)
	}

	return retry.Do(ctx, s.policy, func(ctx context.Context) ([]byte, error) {
		return s.tts.Synthesize(ctx, text)
	})
}

// LoadSession returns the recorded exchanges of sessionID in submission order.
func (s *Service) LoadSession(ctx context.Context, sessionID string) (st contractx.SessionState, err error) {
	ctx, done := s.begin(ctx, "load_session", sessionID)
	defer func() { err = done(err, contractx.ErrSessionNotFound) }()

	sessionID = strings.TrimSpace(sessionID)
	if err := statex.ValidateSessionID(sessionID); err != nil {
		return contractx.SessionState{}, err
	}
	return retry.Do(ctx, s.policy, func(ctx context.Context) (contractx.SessionState, error) {
		return s.store.Load(ctx, sessionID)
	})
}

// CreateSession registers a fresh opaque session id.
func (s *Service) CreateSession(ctx context.Context) (st contractx.SessionState, err error) {
	ctx, done := s.begin(ctx, "create_session", "")
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	return s.createSession(ctx)
}

// ResetSession starts a new conversation in place of sessionID. The old history is kept
// unless PurgeOnReset is set.
func (s *Service) ResetSession(ctx context.Context, sessionID string) (st contractx.SessionState, err error) {
	ctx, done := s.begin(ctx, "reset_session", sessionID)
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	sessionID = strings.TrimSpace(sessionID)
	if err := statex.ValidateSessionID(sessionID); err != nil {
		return contractx.SessionState{}, err
	}

	st, err = s.createSession(ctx)
	if err != nil {
		return contractx.SessionState{}, err
	}
	if s.cfg.PurgeOnReset {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			logx.Ctx(ctx).Warn().Err(err).Msg("purge of previous session failed")
		}
	}
	return st, nil
}

// DeleteSession drops the history of sessionID. Assets saved for it stay in the
// object store.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (err error) {
	ctx, done := s.begin(ctx, "delete_session", sessionID)
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	sessionID = strings.TrimSpace(sessionID)
	if err := statex.ValidateSessionID(sessionID); err != nil {
		return err
	}
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) createSession(ctx context.Context) (contractx.SessionState, error) {
	createdAt := s.now().UTC()
	for attempt := 0; attempt < 3; attempt++ {
		id := s.newID()
		err := s.store.Create(ctx, id, createdAt)
		if errors.Is(err, statex.ErrSessionExists) {
			continue
		}
		if err != nil {
			return contractx.SessionState{}, err
		}
		logx.Ctx(ctx).Info().Str("session_id", id).Msg("session created")
		return statex.NewSessionState(id, createdAt), nil
	}
	return contractx.SessionState{}, fmt.Errorf("%w: could not allocate a unique session id", contractx.ErrUpstreamUnavailable)
}

// begin scopes ctx to the call timeout and a session logger. The returned func maps err
// onto the declared kind and records the outcome.
func (s *Service) begin(ctx context.Context, op string, sessionID string) (context.Context, func(err error, declared error) error) {
	start := s.now()

	var cancel context.CancelFunc = func() {}
	if s.cfg.CallTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
	}

	ctx = logx.Ctx(ctx).With().Str("op", op).Logger().WithContext(ctx)
	if id := strings.TrimSpace(sessionID); id != "" {
		ctx = logx.WithSession(ctx, id)
	}

	return ctx, func(err error, declared error) error {
		defer cancel()

		err = normalizeError(err, declared)
		elapsed := s.now().Sub(start)
		kind := contractx.Kind(err)
		s.metrics.Record(ctx, op, kind, elapsed)

		if err != nil {
			logx.Ctx(ctx).Warn().Err(err).Str("kind", kind).Dur("duration", elapsed).Msg("gateway operation failed")
		} else {
			logx.Ctx(ctx).Debug().Dur("duration", elapsed).Msg("gateway operation finished")
		}
		return err
	}
}

// normalizeError folds anything outside the taxonomy, bare context errors included,
// into the operation's declared kind.
func normalizeError(err error, declared error) error {
	if err == nil {
		return nil
	}
	switch contractx.Kind(err) {
	case "internal", "validation":
		return fmt.Errorf("%w: %w", declared, err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, ev contractx.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("event", ev.Type).Msg("event publish failed")
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, contractx.Event) error {
	return nil
}
