// Package remote routes queries to a managed multi-agent runtime over REST. The runtime
// keeps its own per-session memory, so history is not resent.
package remote

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

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	llmx "github.com/tanpawarit/sparkpath-gateway/agent/llm"
)

var _ contractx.Router = (*Client)(nil)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

type Client struct {
	baseURL    string
	apiKey     string
	agentID    string
	aliasID    string
	httpClient *http.Client
	now        func() time.Time
}

type invokeRequest struct {
	InputText   string `json:"inputText"`
	EnableTrace bool   `json:"enableTrace"`
	EndSession  bool   `json:"endSession"`
}

type invokeResponse struct {
	Completion string   `json:"completion"`
	Chunks     []string `json:"chunks"`
	Category   string   `json:"category"`
	AgentID    string   `json:"agentId"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// New targets the master agent from agents; the runtime dispatches to the category
// agents itself.
func New(cfg Config, agents llmx.AgentsConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("agent runtime base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid agent runtime url: %w", err)
	}
	if err := agents.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		agentID:    agents.AgentID(contractx.RoleMaster),
		aliasID:    agents.Alias(contractx.RoleMaster),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	if c.aliasID == "" {
		c.aliasID = "TSTALIASID"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Route(ctx context.Context, req contractx.RouteRequest) (contractx.AgentResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session id is required", contractx.ErrInvalidSession)
	}

	body, err := json.Marshal(invokeRequest{InputText: req.Text})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("marshal invoke request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/agents/%s/aliases/%s/sessions/%s/text",
		c.baseURL,
		url.PathEscape(c.agentID),
		url.PathEscape(c.aliasID),
		url.PathEscape(req.SessionID),
	)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("build invoke request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: invoke agent: %v", contractx.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: read agent response: %v", contractx.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.AgentResponse{}, statusError(resp.StatusCode, raw)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: decode agent response: %v", contractx.ErrUpstreamUnavailable, err)
	}

	text := parsed.Completion
	if text == "" {
		text = strings.Join(parsed.Chunks, "")
	}

	category, ok := contractx.ParseCategory(parsed.Category)
	if !ok {
		log.Ctx(ctx).Warn().Str("category", parsed.Category).Msg("agent runtime returned unknown category tag")
		category = contractx.CategoryNone
	}

	agentID := strings.TrimSpace(parsed.AgentID)
	if agentID == "" {
		agentID = c.agentID
	}

	return contractx.AgentResponse{
		Text:       strings.TrimSpace(text),
		Category:   category,
		AgentID:    agentID,
		ReceivedAt: c.now().UTC(),
	}, nil
}

func statusError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		msg = parsed.Message
	}

	retryable := status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	if retryable {
		return fmt.Errorf("%w: agent runtime status=%d: %s", contractx.ErrUpstreamUnavailable, status, msg)
	}
	return fmt.Errorf("%w: %w: agent runtime status=%d: %s", contractx.ErrUpstreamUnavailable, contractx.ErrNonRetryable, status, msg)
}
