package store

import (
	"context"
	"sync"

	"github.com/Mediquereminder/medique-sub000/pkg/interfaces"
	"github.com/Mediquereminder/medique-sub000/pkg/logger"
)

// Memory is an in-memory KVStore. Each key has its own lock so that Update
// cycles on one collection serialize without blocking the others. It backs
// the default configuration and the test suites.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	locks  map[string]*sync.Mutex
	logger *logger.Logger
}

// NewMemory creates an empty in-memory store
func NewMemory(log *logger.Logger) *Memory {
	return &Memory{
		data:   make(map[string][]byte),
		locks:  make(map[string]*sync.Mutex),
		logger: log,
	}
}

var _ interfaces.KVStore = (*Memory)(nil)

// keyLock returns the mutex owning write access for a key
func (m *Memory) keyLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.locks[key] = l
	return l
}

// Get returns the value stored under key, or nil if the key is absent
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores value under key, replacing any previous value
func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[key] = stored
	m.mu.Unlock()

	return nil
}

// Update runs fn against the current value of key and stores the result,
// holding the key's lock for the whole read-modify-write cycle. If fn
// returns an error nothing is written.
func (m *Memory) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	return m.Put(ctx, key, next)
}

// Close releases the store. A memory store has nothing to release.
func (m *Memory) Close() error {
	return nil
}
