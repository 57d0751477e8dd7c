package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

// SpeechMIME is the format SynthesizeSpeech returns.
const SpeechMIME = "audio/mpeg"

type VoiceTurnResult struct {
	Transcript    string                    `json:"transcript"`
	Response      contractx.AgentResponse   `json:"response"`
	Audio         []byte                    `json:"-"`
	AudioMIMEType string                    `json:"audio_mime_type,omitempty"`
	InputRef      *contractx.AssetReference `json:"input_ref,omitempty"`
	ReplyRef      *contractx.AssetReference `json:"reply_ref,omitempty"`
}

// VoiceTurn transcribes audio, submits the transcript and speaks the reply.
//
// Failures before the exchange is recorded leave nothing behind: an archived input clip
// is removed again. Once recorded, a synthesis failure still returns the text reply
// alongside an ErrSynthesisFailed error.
func (s *Service) VoiceTurn(ctx context.Context, audio []byte, sessionID string) (VoiceTurnResult, error) {
	var res VoiceTurnResult
	sessionID = strings.TrimSpace(sessionID)

	if s.cfg.ArchiveVoiceInput && len(audio) > 0 {
		ref, err := s.SaveAsset(ctx, audio, sessionID, contractx.AssetAudio, DetectAudioMIME(audio))
		if err != nil {
			return res, err
		}
		res.InputRef = &ref
	}

	transcript, err := s.TranscribeAudio(ctx, audio)
	if err != nil {
		s.discard(ctx, res.InputRef)
		return VoiceTurnResult{}, err
	}
	res.Transcript = transcript

	resp, err := s.SubmitQueryWithAudio(ctx, transcript, sessionID, res.InputRef)
	if err != nil {
		s.discard(ctx, res.InputRef)
		return VoiceTurnResult{}, err
	}
	res.Response = resp

	reply, err := s.SynthesizeSpeech(ctx, resp.Text)
	if err != nil {
		return res, err
	}
	res.Audio = reply
	res.AudioMIMEType = SpeechMIME

	if s.cfg.ArchiveVoiceReply {
		ref, err := s.SaveAsset(ctx, reply, sessionID, contractx.AssetAudio, SpeechMIME)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("reply audio archive failed")
		} else {
			res.ReplyRef = &ref
		}
	}
	return res, nil
}

func (s *Service) discard(ctx context.Context, ref *contractx.AssetReference) {
	if ref == nil {
		return
	}
	if err := s.DeleteAsset(context.WithoutCancel(ctx), ref.Key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("asset_key", ref.Key).Msg("discard of archived input failed")
	}
}

// DetectAudioMIME sniffs the container of a recording. Unknown content is treated as
// WAV, the browser recorder's format.
func DetectAudioMIME(audio []byte) string {
	ct := http.DetectContentType(audio)
	switch {
	case strings.HasPrefix(ct, "audio/wave"):
		return "audio/wav"
	case strings.HasPrefix(ct, "audio/mpeg"):
		return "audio/mpeg"
	case strings.HasPrefix(ct, "application/ogg"), strings.HasPrefix(ct, "audio/ogg"):
		return "audio/ogg"
	case strings.HasPrefix(ct, "video/webm"), strings.HasPrefix(ct, "audio/webm"):
		return "audio/webm"
	case strings.HasPrefix(ct, "audio/"):
		return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return "audio/wav"
}
