package gateway

import (
	"time"

	nodex "github.com/tanpawarit/sparkpath-gateway/agent/nodes"
	"github.com/tanpawarit/sparkpath-gateway/pkg/retry"
)

type Config struct {
	CallTimeout          time.Duration `envconfig:"CALL_TIMEOUT" split_words:"true" default:"30s"`
	RetryMaxTries        uint          `envconfig:"RETRY_MAX_TRIES" split_words:"true" default:"1"`
	RetryInitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" split_words:"true" default:"200ms"`
	RetryMaxInterval     time.Duration `envconfig:"RETRY_MAX_INTERVAL" split_words:"true" default:"2s"`
	AssetPrefix          string        `envconfig:"ASSET_PREFIX" split_words:"true" default:"sparkpath"`
	ArchiveVoiceInput    bool          `envconfig:"ARCHIVE_VOICE_INPUT" split_words:"true" default:"false"`
	ArchiveVoiceReply    bool          `envconfig:"ARCHIVE_VOICE_REPLY" split_words:"true" default:"false"`
	// PurgeOnReset deletes the old history when a session is reset.
	PurgeOnReset bool `envconfig:"PURGE_ON_RESET" split_words:"true" default:"false"`
}

func (c Config) retryPolicy() retry.Policy {
	tries := c.RetryMaxTries
	if tries == 0 {
		tries = 1
	}
	return retry.Policy{
		MaxTries:        tries,
		InitialInterval: c.RetryInitialInterval,
		MaxInterval:     c.RetryMaxInterval,
		Retryable:       nodex.Retryable,
	}
}
