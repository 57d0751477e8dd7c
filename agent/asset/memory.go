package asset

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, mimeType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", contractx.ErrStorageWriteFailed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = Object{Data: append([]byte(nil), data...), MimeType: mimeType}
	return "mem://" + key, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", contractx.ErrAssetNotFound, key)
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
