// Package speech forwards audio to remote speech-to-text and text to remote
// text-to-speech. No recognition or synthesis happens locally.
package speech

import (
	"context"
	"time"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	STTModel    string        `envconfig:"STT_MODEL" split_words:"true" default:"whisper-1"`
	TTSModel    string        `envconfig:"TTS_MODEL" split_words:"true" default:"tts-1"`
	Voice       string        `envconfig:"VOICE" split_words:"true" default:"alloy"`
	Language    string        `envconfig:"LANGUAGE" split_words:"true" default:"en"`
	Speed       float64       `envconfig:"SPEED" split_words:"true" default:"1.0"`
	MinDuration time.Duration `envconfig:"MIN_DURATION" split_words:"true" default:"500ms"`
	MaxRetries  int           `envconfig:"MAX_RETRIES" split_words:"true" default:"0"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}
