// Package storage provides the durable key/value namespace that history and
// preferences are persisted under.
package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
)

// ErrNotFound is returned by Get when a key has never been written or was removed.
var ErrNotFound = stderrors.New("storage: key not found")

// Store is a flat byte-valued key/value namespace.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend selected in cfg.
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported storage driver: %s", cfg.Driver), nil)
	}
}

// MemoryStore keeps values in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
