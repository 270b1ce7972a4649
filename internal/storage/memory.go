package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used as the degradation path when
// the backing database is unreachable. Keys expire lazily on read; nothing
// survives process exit.
type MemoryStore struct {
	mu     sync.Mutex
	keys   map[string]memoryEntry
	lists  map[string][]string
	nowFn  func() time.Time
	closed bool
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		keys:  make(map[string]memoryEntry),
		lists: make(map[string][]string),
		nowFn: time.Now,
	}
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.keys[key]
	if !ok {
		return false, nil
	}

	if m.nowFn().After(entry.expiresAt) {
		delete(m.keys, key)

		return false, nil
	}

	return true, nil
}

func (m *MemoryStore) SetWithTTL(_ context.Context, key string, ttl time.Duration, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[key] = memoryEntry{value: value, expiresAt: m.nowFn().Add(ttl)}

	return nil
}

func (m *MemoryStore) ListAppend(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[key] = append(m.lists[key], value)

	return nil
}

func (m *MemoryStore) ListTrim(_ context.Context, key string, start, stop int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[key]

	from, to, ok := resolveRange(start, stop, len(list))
	if !ok {
		delete(m.lists, key)

		return nil
	}

	trimmed := make([]string, to-from)
	copy(trimmed, list[from:to])
	m.lists[key] = trimmed

	return nil
}

func (m *MemoryStore) ListRange(_ context.Context, key string, start, stop int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[key]

	from, to, ok := resolveRange(start, stop, len(list))
	if !ok {
		return nil, nil
	}

	out := make([]string, to-from)
	copy(out, list[from:to])

	return out, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.keys = make(map[string]memoryEntry)
	m.lists = make(map[string][]string)
}
