package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Memory is a process-local Cache. It backs tests and single-node setups
// that run without Redis.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Now is the clock; swap it in tests to step through TTLs.
	Now func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (m *Memory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: buf, expiresAt: m.Now().Add(ttl)}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string, out any) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && m.Now().After(e.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(e.value, out)
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return 0, ErrMiss
	}
	d := e.expiresAt.Sub(m.Now())
	if d <= 0 {
		delete(m.entries, key)
		return 0, ErrMiss
	}
	return d, nil
}
