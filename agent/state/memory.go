package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*contractx.SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*contractx.SessionState)}
}

func (m *MemoryStore) Create(_ context.Context, sessionID string, createdAt time.Time) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	st := NewSessionState(sessionID, createdAt)
	m.sessions[sessionID] = &st
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, sessionID string) (bool, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[sessionID]
	return ok, nil
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, ex contractx.Exchange) (int64, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}
	ex = normalizeExchange(sessionID, ex)
	ex.Seq = int64(len(st.Exchanges) + 1)
	st.Exchanges = append(st.Exchanges, ex)
	return ex.Seq, nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (contractx.SessionState, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return contractx.SessionState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[sessionID]
	if !ok {
		return contractx.SessionState{}, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}
	out := *st
	out.Exchanges = append([]contractx.Exchange(nil), st.Exchanges...)
	if out.Exchanges == nil {
		out.Exchanges = []contractx.Exchange{}
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}
