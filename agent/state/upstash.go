package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var _ Store = (*UpstashRedisStore)(nil)

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore keeps each session as two keys: a meta string and an exchange list.
// RPUSH hands out the sequence number, so concurrent appends never share one.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	Token     string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true" default:"sparkpath:session:"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultStoreKeyPrefix,
		ttl:        defaultStoreTTL,
	}
	if p := strings.TrimSpace(cfg.KeyPrefix); p != "" {
		store.keyPrefix = p
	}
	if cfg.TTL != 0 {
		store.ttl = cfg.TTL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashRedisStore) Create(ctx context.Context, sessionID string, createdAt time.Time) error {
	metaKey, _, err := s.redisKeys(sessionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(sessionMeta{SessionID: sessionID, CreatedAt: createdAt.UTC()})
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	cmd := []any{"SET", metaKey, string(payload), "NX"}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	resp, err := s.exec(ctx, cmd)
	if err != nil {
		return err
	}
	if isNull(resp.Result) {
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	return nil
}

func (s *UpstashRedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	metaKey, _, err := s.redisKeys(sessionID)
	if err != nil {
		return false, err
	}

	resp, err := s.exec(ctx, []any{"EXISTS", metaKey})
	if err != nil {
		return false, err
	}

	var n int64
	if err := json.Unmarshal(resp.Result, &n); err != nil {
		return false, fmt.Errorf("%w: decode exists result: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return n > 0, nil
}

// appendScript pushes onto the exchange list only while the meta key exists, and
// refreshes both TTLs in the same step. It returns -1 for an unknown session.
const appendScript = `if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local n = redis.call('RPUSH', KEYS[2], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
  redis.call('EXPIRE', KEYS[2], ttl)
end
return n`

func (s *UpstashRedisStore) Append(ctx context.Context, sessionID string, ex contractx.Exchange) (int64, error) {
	metaKey, listKey, err := s.redisKeys(sessionID)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(normalizeExchange(sessionID, ex))
	if err != nil {
		return 0, fmt.Errorf("marshal exchange: %w", err)
	}

	var ttl int64
	if s.ttl > 0 {
		ttl = ttlSeconds(s.ttl)
	}

	resp, err := s.exec(ctx, []any{"EVAL", appendScript, 2, metaKey, listKey, string(payload), ttl})
	if err != nil {
		return 0, err
	}

	var seq int64
	if err := json.Unmarshal(resp.Result, &seq); err != nil {
		return 0, fmt.Errorf("%w: decode append result: %v", contractx.ErrUpstreamUnavailable, err)
	}
	if seq < 0 {
		return 0, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}
	return seq, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (contractx.SessionState, error) {
	metaKey, listKey, err := s.redisKeys(sessionID)
	if err != nil {
		return contractx.SessionState{}, err
	}

	resp, err := s.exec(ctx, []any{"GET", metaKey})
	if err != nil {
		return contractx.SessionState{}, err
	}
	if isNull(resp.Result) {
		return contractx.SessionState{}, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}

	var encoded string
	if err := json.Unmarshal(resp.Result, &encoded); err != nil {
		return contractx.SessionState{}, fmt.Errorf("%w: decode session meta: %v", contractx.ErrUpstreamUnavailable, err)
	}
	var meta sessionMeta
	if err := json.Unmarshal([]byte(encoded), &meta); err != nil {
		return contractx.SessionState{}, fmt.Errorf("%w: unmarshal session meta: %v", contractx.ErrUpstreamUnavailable, err)
	}

	resp, err = s.exec(ctx, []any{"LRANGE", listKey, 0, -1})
	if err != nil {
		return contractx.SessionState{}, err
	}

	var items []string
	if !isNull(resp.Result) {
		if err := json.Unmarshal(resp.Result, &items); err != nil {
			return contractx.SessionState{}, fmt.Errorf("%w: decode exchange list: %v", contractx.ErrUpstreamUnavailable, err)
		}
	}

	st := NewSessionState(sessionID, meta.CreatedAt)
	for i, item := range items {
		var ex contractx.Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			return contractx.SessionState{}, fmt.Errorf("%w: unmarshal exchange %d: %v", contractx.ErrUpstreamUnavailable, i+1, err)
		}
		ex.Seq = int64(i + 1)
		st.Exchanges = append(st.Exchanges, ex)
	}

	return st, nil
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	metaKey, listKey, err := s.redisKeys(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", metaKey, listKey})
	return err
}

func (s *UpstashRedisStore) redisKeys(sessionID string) (string, string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", "", err
	}
	base := strings.TrimSpace(s.keyPrefix) + sessionID
	return base + ":meta", base + ":exchanges", nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute redis request: %v", contractx.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read redis response: %v", contractx.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: redis http status=%d body=%s", contractx.ErrUpstreamUnavailable, resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode redis response: %v", contractx.ErrUpstreamUnavailable, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: redis: %s", contractx.ErrUpstreamUnavailable, parsed.Error)
	}
	return &parsed, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
