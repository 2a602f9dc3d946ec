package storage

import (
	"context"
	"sync"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

// Memory is an in-process Store for tests and for running without Redis.
// It stores the same serialized layout the Redis backend writes.
type Memory struct {
	mu   sync.RWMutex
	key  string
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory store keyed by key.
func NewMemory(key string) *Memory {
	return &Memory{
		key:  key,
		data: make(map[string][]byte),
	}
}

// SaveRecord persists the record under the fixed key.
func (m *Memory) SaveRecord(_ context.Context, rec sources.PriceRecord) error {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[m.key] = payload
	m.mu.Unlock()
	return nil
}

// LoadRecord returns the persisted record, or ok=false on cold start.
func (m *Memory) LoadRecord(_ context.Context) (sources.PriceRecord, bool, error) {
	m.mu.RLock()
	payload, ok := m.data[m.key]
	m.mu.RUnlock()
	if !ok {
		return sources.PriceRecord{}, false, nil
	}

	rec, err := DecodeRecord(payload)
	if err != nil {
		return sources.PriceRecord{}, false, err
	}
	return rec, true, nil
}
