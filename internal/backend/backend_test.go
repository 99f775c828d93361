package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fleetledger/internal/config"
	"fleetledger/internal/core"
)

func TestOpenMemory(t *testing.T) {
	result, err := Open(&config.Config{DataBackend: "memory"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if result.Store == nil {
		t.Fatal("Store is nil")
	}
	if result.Cleanup != nil {
		t.Fatal("memory backend should need no cleanup")
	}
}

func TestOpenSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	result, err := Open(&config.Config{DataBackend: "sqlite", SQLiteDBPath: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	})

	ref, err := result.Store.AppendRecord(context.Background(), core.FinancialRecord{
		ID:         "rec-1",
		Kind:       core.KindEarning,
		Amount:     core.Money{Cents: 4500},
		OccurredOn: "2024-03-01",
		Classifier: "Online",
		OwnerID:    "drv-1",
	})
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	if ref == "" {
		t.Fatal("empty storage ref")
	}

	records, err := result.Store.ListRecords(context.Background(), core.KindEarning, core.FilterSpec{OwnerID: "drv-1"})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec-1" {
		t.Fatalf("records = %+v, want rec-1", records)
	}
}

func TestOpenInvalid(t *testing.T) {
	if _, err := Open(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("want error for unknown backend")
	}
	if _, err := Open(nil); err == nil {
		t.Fatal("want error for nil config")
	}
	if _, err := Open(&config.Config{DataBackend: "sqlite"}); err == nil {
		t.Fatal("want error for sqlite without path")
	}
}
