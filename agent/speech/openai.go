package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	openrouterx "github.com/tanpawarit/sparkpath-gateway/pkg/openrouter"
)

const maxSpeechBytes = 16 << 20

var (
	_ Transcriber = (*OpenAI)(nil)
	_ Synthesizer = (*OpenAI)(nil)
)

// OpenAI talks to the OpenAI audio endpoints (or any compatible server).
type OpenAI struct {
	client *openaisdk.Client
	cfg    Config
}

func NewOpenAI(cfg Config, opts ...option.RequestOption) (*OpenAI, error) {
	opts = append([]option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}, opts...)
	client := openrouterx.NewClient(openrouterx.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}, opts...)
	if client == nil {
		return nil, errors.New("speech api key is required")
	}
	return &OpenAI{client: client, cfg: cfg}, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: audio is empty", contractx.ErrTranscriptionFailed)
	}
	if d, ok := WAVDuration(audio); ok && o.cfg.MinDuration > 0 && d < o.cfg.MinDuration {
		return "", fmt.Errorf("%w: recording is %s, shorter than %s", contractx.ErrTranscriptionFailed, d, o.cfg.MinDuration)
	}

	if mimeType == "" {
		mimeType = "audio/wav"
	}
	params := openaisdk.AudioTranscriptionNewParams{
		File:  openaisdk.File(bytes.NewReader(audio), "audio"+extensionFor(mimeType), mimeType),
		Model: openaisdk.AudioModel(o.cfg.STTModel),
	}
	if lang := strings.TrimSpace(o.cfg.Language); lang != "" {
		params.Language = openaisdk.String(lang)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrTranscriptionFailed, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", contractx.ErrTranscriptionFailed)
	}
	log.Ctx(ctx).Debug().Int("audio_bytes", len(audio)).Int("chars", len(text)).Msg("audio transcribed")
	return text, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is empty", contractx.ErrSynthesisFailed)
	}

	params := openaisdk.AudioSpeechNewParams{
		Input:          text,
		Model:          openaisdk.SpeechModel(o.cfg.TTSModel),
		Voice:          openaisdk.AudioSpeechNewParamsVoice(o.cfg.Voice),
		ResponseFormat: openaisdk.AudioSpeechNewParamsResponseFormatMP3,
	}
	if o.cfg.Speed > 0 {
		params.Speed = openaisdk.Float(o.cfg.Speed)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", contractx.ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio stream", contractx.ErrSynthesisFailed)
	}
	return audio, nil
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	default:
		return ".wav"
	}
}
