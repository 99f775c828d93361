package backend

import (
	"fmt"
	"log/slog"

	"fleetledger/internal/config"
	"fleetledger/internal/ledger"
	"fleetledger/internal/ledger/memory"
	"fleetledger/internal/storage"
)

// Type selects the ledger persistence backend.
type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains a ready ledger store and its optional cleanup function.
type Result struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Open builds the ledger store the config asks for. The sqlite backend runs
// pending migrations before returning.
func Open(cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend: nil config")
	}

	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("backend: invalid type %q", cfg.DataBackend)
	}

	switch backendType {
	case SQLite:
		return openSQLite(cfg.SQLiteDBPath)
	default:
		return openMemory()
	}
}

func openSQLite(dbPath string) (*Result, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("backend: sqlite requires a database path")
	}

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("backend: open sqlite %s: %w", dbPath, err)
	}

	slog.Info("Initialized sqlite backend", "db_path", dbPath)

	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func openMemory() (*Result, error) {
	slog.Info("Initialized memory backend")

	return &Result{Store: memory.New(), Cleanup: nil}, nil
}
