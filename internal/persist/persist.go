// Package persist stores the shop's JSON documents in a key-value backend.
package persist

import (
	"context"
	"maps"
	"sync"
)

type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, body []byte) error
	Close() error
}

// LoadAll reads every key that exists. Keys that fail to load are returned in
// the error map and left out of the documents.
func LoadAll(ctx context.Context, b Backend, keys []string) (map[string][]byte, map[string]error) {
	docs := make(map[string][]byte, len(keys))
	var failed map[string]error
	for _, key := range keys {
		body, ok, err := b.Load(ctx, key)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[key] = err
			continue
		}
		if ok {
			docs[key] = body
		}
	}
	return docs, failed
}

type Noop struct{}

func (Noop) Load(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Save(context.Context, string, []byte) error         { return nil }
func (Noop) Close() error                                       { return nil }

// Memory keeps documents in process. Useful in tests and as a stand-in when no
// external store is configured.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), body...), true, nil
}

func (m *Memory) Save(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Snapshot copies every stored document.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.docs)
}
