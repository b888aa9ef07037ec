package cache

import (
	"context"
	"sync"
	"time"

	"github.com/knowgraph/kgstore/graph"
)

type memoryEntry struct {
	rows      []graph.Row
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired entries are evicted lazily on read.
// Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// now is swapped in tests for deterministic expiry.
	now func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached rows for key, evicting the entry if its TTL has
// elapsed.
func (m *Memory) Get(ctx context.Context, key string) ([]graph.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.rows, true, nil
}

// Put stores rows under key with the given TTL.
func (m *Memory) Put(ctx context.Context, key string, rows []graph.Row, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{rows: rows, expiresAt: m.now().Add(ttl)}
	return nil
}

// InvalidateTokens evicts entries whose key mentions any token or matches
// the generic wildcard query shape.
func (m *Memory) InvalidateTokens(ctx context.Context, tokens []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for key := range m.entries {
		if staleKey(key, tokens) {
			delete(m.entries, key)
			evicted++
		}
	}
	return evicted, nil
}

// Clear evicts every entry.
func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := m.now()
	for _, entry := range m.entries {
		if !now.After(entry.expiresAt) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-process cache.
func (m *Memory) Close() error { return nil }

var _ Cache = (*Memory)(nil)
