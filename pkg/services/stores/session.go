package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/liut/parley/pkg/settings"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore 会话数据的键值存储
type SessionStore interface {
	// Load returns ErrSessionNotFound for unknown or expired keys
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// NewSessionStore builds the backend named in cfg
func NewSessionStore(cfg *settings.Config) (SessionStore, error) {
	switch cfg.SessionBackend {
	case settings.BackendMemory:
		return NewMemoryStore(cfg.SessionLifetime), nil
	case settings.BackendRedis:
		return NewRedisStore(SgtRC(), cfg.SessionLifetime), nil
	case settings.BackendFile, "":
		return NewFileStore(cfg.SessionDir, cfg.SessionLifetime)
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}
