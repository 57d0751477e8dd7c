package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	"github.com/tanpawarit/sparkpath-gateway/agent/gateway"
)

type submitQueryRequest struct {
	Text     string                    `json:"text"`
	AudioRef *contractx.AssetReference `json:"audio_ref,omitempty"`
}

type voiceTurnResponse struct {
	gateway.VoiceTurnResult
	Audio       []byte `json:"audio,omitempty"`
	SpeechError string `json:"speech_error,omitempty"`
}

type speechRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.gw.CreateSession(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.gw.LoadSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.gw.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.gw.ResetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, st)
}

func (s *Server) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req submitQueryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var (
		resp contractx.AgentResponse
		err  error
	)
	if req.AudioRef != nil {
		resp, err = s.gw.SubmitQueryWithAudio(r.Context(), req.Text, sessionID, req.AudioRef)
	} else {
		resp, err = s.gw.SubmitQuery(r.Context(), req.Text, sessionID)
	}
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// handleVoiceTurn takes the raw recording as the body. A reply that was recorded but
// could not be spoken is still a 200, with speech_error set.
func (s *Server) handleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	audio, err := s.readBody(w, r)
	if err != nil {
		Error(w, r, err)
		return
	}

	res, err := s.gw.VoiceTurn(r.Context(), audio, chi.URLParam(r, "sessionID"))
	if err != nil && strings.TrimSpace(res.Response.Text) == "" {
		Error(w, r, err)
		return
	}

	out := voiceTurnResponse{VoiceTurnResult: res, Audio: res.Audio}
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("voice reply not synthesized")
		out.SpeechError = contractx.Kind(err)
	}
	JSON(w, http.StatusOK, out)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, err := s.readBody(w, r)
	if err != nil {
		Error(w, r, err)
		return
	}
	if len(audio) == 0 {
		JSON(w, http.StatusBadRequest, errorBody{
			Error: "audio body is empty",
			Kind:  contractx.Kind(contractx.ErrTranscriptionFailed),
		})
		return
	}

	text, err := s.gw.TranscribeAudio(r.Context(), audio)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		JSON(w, http.StatusBadRequest, errorBody{
			Error: "text is empty",
			Kind:  contractx.Kind(contractx.ErrSynthesisFailed),
		})
		return
	}

	audio, err := s.gw.SynthesizeSpeech(r.Context(), req.Text)
	if err != nil {
		Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", gateway.SpeechMIME)
	w.Header().Set("Content-Length", fmt.Sprint(len(audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// handleSaveAsset stores the raw body. The kind comes from ?kind= and the MIME type
// from Content-Type.
func (s *Server) handleSaveAsset(w http.ResponseWriter, r *http.Request) {
	blob, err := s.readBody(w, r)
	if err != nil {
		Error(w, r, err)
		return
	}

	kind := contractx.AssetKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = contractx.AssetDocument
	}
	if !kind.Valid() {
		Error(w, r, fmt.Errorf("%w: unknown asset kind %q", contractx.ErrValidation, kind))
		return
	}

	ref, err := s.gw.SaveAsset(r.Context(), blob, chi.URLParam(r, "sessionID"), kind, r.Header.Get("Content-Type"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, ref)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	refs, err := s.gw.ListAssets(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"assets": refs})
}

func (s *Server) handleLoadAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.gw.LoadAsset(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		Error(w, r, err)
		return
	}

	mimeType := asset.Ref.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", fmt.Sprint(len(asset.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Data)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := s.gw.DeleteAsset(r.Context(), chi.URLParam(r, "*")); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
