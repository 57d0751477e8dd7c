package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanpawarit/sparkpath-gateway/agent/agents/labs"
	assetx "github.com/tanpawarit/sparkpath-gateway/agent/asset"
	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	"github.com/tanpawarit/sparkpath-gateway/agent/gateway"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
)

type stubRouter struct {
	err error
}

func (s stubRouter) Route(ctx context.Context, req contractx.RouteRequest) (contractx.AgentResponse, error) {
	if s.err != nil {
		return contractx.AgentResponse{}, s.err
	}
	return contractx.AgentResponse{Text: "reply to " + req.Text, Category: contractx.CategorySkillMapping}, nil
}

type stubSpeech struct {
	ttsErr error
}

func (s stubSpeech) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "transcribed words", nil
}

func (s stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.ttsErr != nil {
		return nil, s.ttsErr
	}
	return []byte("mp3:" + text), nil
}

type stubLabs struct{}

func (stubLabs) RoleOptions(ctx context.Context, p labs.Profile) (labs.RoleOptions, error) {
	return labs.RoleOptions{Roles: []labs.RoleOption{{RoleName: "Editor"}}, Fallback: true}, nil
}

func (stubLabs) DaySimulation(ctx context.Context, role string, fitReason string) (labs.Simulation, error) {
	if role == "" {
		return labs.Simulation{}, fmt.Errorf("%w: role is required", contractx.ErrValidation)
	}
	return labs.Simulation{Scenes: []labs.Scene{{ShortTitle: role}}}, nil
}

func (stubLabs) SparkIdentity(ctx context.Context, in labs.IdentityInput) (labs.IdentityResult, error) {
	return labs.IdentityResult{SparkArchetypes: []labs.Archetype{{Name: "Story Weaver"}}}, nil
}

func (stubLabs) ConfidenceReframe(ctx context.Context, in labs.ConfidenceInput) (labs.ConfidenceResult, error) {
	return labs.ConfidenceResult{GeneralBoost: "keep going"}, nil
}

func newTestServer(t *testing.T, router contractx.Router, sp stubSpeech) *httptest.Server {
	t.Helper()

	gw, err := gateway.New(statex.NewMemoryStore(), router, assetx.NewMemoryStore(), gateway.Config{}, gateway.WithSpeech(sp, sp))
	require.NoError(t, err)

	srv, err := New(gw, stubLabs{}, Config{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	st := decode[contractx.SessionState](t, resp)
	require.NotEmpty(t, st.SessionID)
	return st.SessionID
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestSessionQueryFlow(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})
	sid := createSession(t, ts)

	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/"+sid+"/queries", "application/json", []byte(`{"text":"what skills do I need?"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ar := decode[contractx.AgentResponse](t, resp)
	assert.Equal(t, "reply to what skills do I need?", ar.Text)
	assert.Equal(t, contractx.CategorySkillMapping, ar.Category)

	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions/"+sid, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[contractx.SessionState](t, resp)
	require.Len(t, st.Exchanges, 1)
	assert.Equal(t, int64(1), st.Exchanges[0].Seq)

	resp = do(t, http.MethodPost, ts.URL+"/v1/sessions/"+sid+"/reset", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEqual(t, sid, decode[contractx.SessionState](t, resp).SessionID)

	resp = do(t, http.MethodDelete, ts.URL+"/v1/sessions/"+sid, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions/"+sid, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", decode[errorBody](t, resp).Kind)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t, stubRouter{err: fmt.Errorf("%w: 503", contractx.ErrUpstreamUnavailable)}, stubSpeech{})
	sid := createSession(t, ts)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"blank query", http.MethodPost, "/v1/sessions/" + sid + "/queries", `{"text":"  "}`, http.StatusBadRequest, "invalid_query"},
		{"bad json", http.MethodPost, "/v1/sessions/" + sid + "/queries", `{`, http.StatusBadRequest, "validation"},
		{"unknown session", http.MethodPost, "/v1/sessions/ghost/queries", `{"text":"hi"}`, http.StatusBadRequest, "invalid_session"},
		{"upstream down", http.MethodPost, "/v1/sessions/" + sid + "/queries", `{"text":"hi"}`, http.StatusBadGateway, "upstream_unavailable"},
		{"missing asset", http.MethodGet, "/v1/assets/sparkpath/" + sid + "/audio/nope.wav", "", http.StatusNotFound, "asset_not_found"},
		{"empty transcription", http.MethodPost, "/v1/transcriptions", "", http.StatusBadRequest, "transcription_failed"},
		{"empty speech", http.MethodPost, "/v1/speech", `{"text":""}`, http.StatusBadRequest, "synthesis_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, ts.URL+tc.path, "application/json", []byte(tc.body))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.kind, decode[errorBody](t, resp).Kind)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(fmt.Errorf("%w: %w", contractx.ErrUpstreamUnavailable, context.DeadlineExceeded)))
	assert.Equal(t, http.StatusConflict, statusFor(statex.ErrSessionExists))
	assert.Equal(t, http.StatusBadGateway, statusFor(contractx.ErrStorageWriteFailed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestAssetRoutes(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})
	sid := createSession(t, ts)

	blob := []byte("%PDF-1.7 portfolio")
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/"+sid+"/assets?kind=document", "application/pdf", blob)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ref := decode[contractx.AssetReference](t, resp)
	assert.True(t, strings.HasSuffix(ref.Key, ".pdf"))

	resp = do(t, http.MethodGet, ts.URL+"/v1/assets/"+ref.Key, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	var got bytes.Buffer
	_, err := got.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, blob, got.Bytes())

	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions/"+sid+"/assets", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[map[string][]contractx.AssetReference](t, resp)["assets"]
	require.Len(t, listed, 1)
	assert.Equal(t, ref.Key, listed[0].Key)

	resp = do(t, http.MethodPost, ts.URL+"/v1/sessions/"+sid+"/assets?kind=video", "video/mp4", blob)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/v1/assets/"+ref.Key, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/v1/assets/"+ref.Key, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSpeechRoutes(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})

	resp := do(t, http.MethodPost, ts.URL+"/v1/transcriptions", "audio/wav", []byte("RIFF....WAVE"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "transcribed words", decode[map[string]string](t, resp)["text"])

	resp = do(t, http.MethodPost, ts.URL+"/v1/speech", "application/json", []byte(`{"text":"hello"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gateway.SpeechMIME, resp.Header.Get("Content-Type"))
	var got bytes.Buffer
	_, err := got.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "mp3:hello", got.String())
}

func TestVoiceTurnRoute(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})
	sid := createSession(t, ts)

	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/"+sid+"/voice", "audio/wav", []byte("RIFF....WAVE"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[voiceTurnResponse](t, resp)
	assert.Equal(t, "transcribed words", out.Transcript)
	assert.Equal(t, "reply to transcribed words", out.Response.Text)
	assert.Equal(t, []byte("mp3:reply to transcribed words"), out.Audio)
	assert.Empty(t, out.SpeechError)
}

func TestVoiceTurnRouteSpeechFailure(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{ttsErr: errors.New("tts offline")})
	sid := createSession(t, ts)

	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/"+sid+"/voice", "audio/wav", []byte("RIFF....WAVE"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[voiceTurnResponse](t, resp)
	assert.Equal(t, "reply to transcribed words", out.Response.Text)
	assert.Equal(t, "synthesis_failed", out.SpeechError)
	assert.Empty(t, out.Audio)
}

func TestLabRoutes(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})

	resp := do(t, http.MethodPost, ts.URL+"/v1/labs/roles", "application/json", []byte(`{"interests":["Dance"]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	roles := decode[labs.RoleOptions](t, resp)
	assert.True(t, roles.Fallback)
	assert.Equal(t, "Editor", roles.Roles[0].RoleName)

	resp = do(t, http.MethodPost, ts.URL+"/v1/labs/day", "application/json", []byte(`{"role":"Stage Manager"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Stage Manager", decode[labs.Simulation](t, resp).Scenes[0].ShortTitle)

	resp = do(t, http.MethodPost, ts.URL+"/v1/labs/day", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/labs/identity", "application/json", []byte(`{"sliders":{"solo_team":4}}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Story Weaver", decode[labs.IdentityResult](t, resp).SparkArchetypes[0].Name)

	resp = do(t, http.MethodPost, ts.URL+"/v1/labs/confidence", "application/json", []byte(`{"weaknesses":["shy"]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "keep going", decode[labs.ConfidenceResult](t, resp).GeneralBoost)
}

func TestLabsNotMountedWithoutLabs(t *testing.T) {
	gw, err := gateway.New(statex.NewMemoryStore(), stubRouter{}, assetx.NewMemoryStore(), gateway.Config{})
	require.NoError(t, err)
	srv, err := New(gw, nil, Config{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/labs/roles", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, stubRouter{}, stubSpeech{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://sparkpath.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
