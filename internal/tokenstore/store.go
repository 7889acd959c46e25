// Package tokenstore provides the persistent key-value storage that backs the
// cached authorization token. Implementations play the role a browser's local
// storage plays for a single-page app: a small, process-wide record that
// survives restarts.
package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store is a string key-value store. Implementations are safe for concurrent use
// by multiple goroutines; multi-key sequences are not atomic.
type Store interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config selects and configures a Store backend
type Config struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path,omitempty"`
	Redis   RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig holds Redis connection settings for the redis backend
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
}

// Open builds the Store described by cfg. An empty backend means memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		path := cfg.Path
		if path == "" {
			path = DefaultFilePath("default")
		}
		return NewFile(path), nil
	case BackendRedis:
		return NewRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}

// Memory is an in-process Store
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
