package state

import (
	"context"
	"errors"
	"time"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

// ErrSessionExists is returned by Create when the id is already registered.
var ErrSessionExists = errors.New("session already exists")

const (
	defaultStoreKeyPrefix = "sparkpath:session:"
	defaultStoreTTL       = 24 * time.Hour
	maxResponseSizeBytes  = 2 << 20
)

// Store is the remote key-value session store. Implementations assign Exchange.Seq on
// append and keep exchanges in append order.
type Store interface {
	Create(ctx context.Context, sessionID string, createdAt time.Time) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Append(ctx context.Context, sessionID string, ex contractx.Exchange) (int64, error)
	Load(ctx context.Context, sessionID string) (contractx.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
}
