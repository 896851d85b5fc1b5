package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type fileStore struct {
	dir      string
	lifetime time.Duration
}

// NewFileStore keeps one file per session under dir
func NewFileStore(dir string, lifetime time.Duration) (SessionStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &fileStore{dir: dir, lifetime: lifetime}, nil
}

func (s *fileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".json")
}

func (s *fileStore) Load(ctx context.Context, key string) ([]byte, error) {
	name := s.path(key)
	fi, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.lifetime > 0 && time.Since(fi.ModTime()) > s.lifetime {
		logger().Debugw("session expired", "key", key, "mtime", fi.ModTime())
		_ = os.Remove(name)
		return nil, ErrSessionNotFound
	}
	return os.ReadFile(name)
}

// Save writes to a temp file then renames, so a reader never sees a partial file
func (s *fileStore) Save(ctx context.Context, key string, data []byte) error {
	name := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".sess-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), name)
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
