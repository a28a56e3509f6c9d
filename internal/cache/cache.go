package cache

import (
	"context"
	"encoding/json"
	"sync"
)

// Keys of the values kept in the cache.
const (
	KeyCurrentUser   = "currentUser"
	KeyAttendance    = "attendance"
	KeyUsers         = "users"
	KeyNotifications = "notifications"
)

// Cache is a key/value store of JSON documents. Each call reads or writes one key atomically.
type Cache interface {
	// Get decodes the value stored under key into dst. ok is false when the key is absent.
	Get(ctx context.Context, key string, dst any) (ok bool, err error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Memory is a process-local cache for tests and the in-memory backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *Memory) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}
