package vmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	PreferencesBackendFile   = "file"
	PreferencesBackendRedis  = "redis"
	PreferencesBackendSQLite = "sqlite"
)

// KeyValueStore is the raw storage behind Preferences. Get reports false
// for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// OpenKeyValueStore opens the backend selected by config.PreferencesBackend.
func OpenKeyValueStore(ctx context.Context, config *Config) (KeyValueStore, error) {
	switch config.PreferencesBackend {
	case PreferencesBackendFile, "":
		return OpenFileStore(config.PreferencesPath)
	case PreferencesBackendRedis:
		return OpenRedisStore(ctx, config.RedisUrl)
	case PreferencesBackendSQLite:
		return OpenSQLiteStore(ctx, config.SqlitePath)
	default:
		return nil, fmt.Errorf("unknown preferences backend: %s", config.PreferencesBackend)
	}
}

// FileStore keeps every key in one JSON document, rewritten on each change.
// Values must be JSON themselves and are stored as is.
type FileStore struct {
	path   string
	values map[string]json.RawMessage
	mutex  *sync.Mutex
}

func OpenFileStore(path string) (*FileStore, error) {
	store := &FileStore{
		path:   path,
		values: make(map[string]json.RawMessage),
		mutex:  new(sync.Mutex),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &store.values); err != nil {
			return nil, fmt.Errorf("failed to parse preferences %s: %w", path, err)
		}
	}

	return store, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("preference %s is not JSON", key)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.values[key] = append(json.RawMessage(nil), value...)
	return s.save()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.save()
}

func (s *FileStore) Close() error {
	return nil
}

//write to a temp file and rename so a crash never leaves half a document
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	return os.Rename(tmp, s.path)
}
