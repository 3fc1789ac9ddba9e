package vmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// same contract for every backend
func checkKeyValueStore(t *testing.T, store KeyValueStore) {
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Errorf("Expected not found, got found=%t err=%v", found, err)
		return
	}

	if err := store.Set(ctx, "key", []byte(`{"a":1}`)); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	value, found, err := store.Get(ctx, "key")
	if err != nil || !found || string(value) != `{"a":1}` {
		t.Errorf("Expected stored value, got %q found=%t err=%v", value, found, err)
		return
	}

	if err := store.Set(ctx, "key", []byte("2")); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	value, _, _ = store.Get(ctx, "key")
	if string(value) != "2" {
		t.Errorf("Expected overwritten value 2, got %q", value)
		return
	}

	if err := store.Delete(ctx, "key"); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if _, found, _ := store.Get(ctx, "key"); found {
		t.Errorf("Expected key to be deleted")
		return
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
		return
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "vmd.json")

	store, err := OpenFileStore(path)
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	checkKeyValueStore(t, store)

	if err := store.Set(context.Background(), "persisted", []byte(`"yes"`)); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	value, found, err := reopened.Get(context.Background(), "persisted")
	if err != nil || !found || string(value) != `"yes"` {
		t.Errorf("Expected value to survive reopening, got %q found=%t err=%v", value, found, err)
		return
	}

	// values are kept as plain JSON in the document
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if !strings.Contains(string(data), `"persisted": "yes"`) {
		t.Errorf("Expected readable preferences file, got %s", data)
		return
	}

	if err := store.Set(context.Background(), "raw", []byte("not json")); err == nil {
		t.Errorf("Expected error for a non JSON value, got nil")
		return
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmd.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}

	if _, err := OpenFileStore(path); err == nil {
		t.Errorf("Expected error for a corrupt file, got nil")
		return
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "vmd.db"))
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	defer store.Close()

	checkKeyValueStore(t, store)
}

func TestRedisStore(t *testing.T) {
	redisUrl := os.Getenv("VMD_TEST_REDIS_URL")
	if len(redisUrl) == 0 {
		Log.Infof("No VMD_TEST_REDIS_URL env variable found, skipping test")
		return
	}

	store, err := OpenRedisStore(context.Background(), redisUrl)
	if err != nil {
		t.Errorf("Unexpected Error: %v", err)
		return
	}
	defer store.Close()

	checkKeyValueStore(t, store)
}

func TestOpenKeyValueStoreUnknownBackend(t *testing.T) {
	config := DefaultConfig()
	config.PreferencesBackend = "etcd"

	if _, err := OpenKeyValueStore(context.Background(), config); err == nil {
		t.Errorf("Expected error for an unknown backend, got nil")
		return
	}
}
