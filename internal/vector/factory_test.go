package vector

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/config"
)

func TestNewStoreSQLite(t *testing.T) {
	cfg := config.VectorConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "vectors.db"),
	}
	store, err := NewStore(cfg, 384, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore(sqlite) error = %v", err)
	}
	defer store.Close()

	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("NewStore(sqlite) = %T, want *SQLiteStore", store)
	}
}

func TestNewStoreDefaultsToSQLite(t *testing.T) {
	cfg := config.VectorConfig{
		SQLitePath: filepath.Join(t.TempDir(), "vectors.db"),
	}
	store, err := NewStore(cfg, 384, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("NewStore() = %T, want *SQLiteStore", store)
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	cfg := config.VectorConfig{Backend: "pinecone"}
	_, err := NewStore(cfg, 384, zap.NewNop())
	if err == nil {
		t.Fatal("NewStore(pinecone) expected error, got nil")
	}
}
