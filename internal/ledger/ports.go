// Package ledger declares the outbound ports the HTTP layer and services
// depend on. Implementations live in ledger/memory (dev and tests) and in
// internal/storage (SQLite).
package ledger

import (
	"context"
	"errors"

	"fleetledger/internal/core"
	"fleetledger/internal/statement"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrStatementNotFound = errors.New("statement not found")
)

// Driver is a fleet driver records are attributed to.
type Driver struct {
	ID      string
	Name    string
	Vehicle string
}

type (
	RecordWriter interface {
		// AppendRecord stores a validated record and returns its storage ref.
		AppendRecord(ctx context.Context, r core.FinancialRecord) (ref string, err error)
	}

	RecordLister interface {
		// ListRecords returns records of a kind matching spec, oldest first.
		ListRecords(ctx context.Context, kind core.RecordKind, spec core.FilterSpec) ([]core.FinancialRecord, error)
	}

	RecordDeleter interface {
		DeleteRecord(ctx context.Context, id string) error
	}

	// SummaryReader provides aggregated totals. SQLite answers this with
	// SQL as a fast path; semantics always match core.Aggregate.
	SummaryReader interface {
		ReadSummary(ctx context.Context, kind core.RecordKind, spec core.FilterSpec) (core.AggregationResult, error)
	}

	DriverStore interface {
		PutDriver(ctx context.Context, d Driver) error
		GetDriver(ctx context.Context, id string) (Driver, error)
		ListDrivers(ctx context.Context) ([]Driver, error)
	}

	// StatementStore persists formatted statements so the export worker
	// can pick them up after the HTTP request has returned.
	StatementStore interface {
		SaveStatement(ctx context.Context, doc statement.Document) error
		GetStatement(ctx context.Context, id string) (statement.Document, error)
		// ListPendingExports returns ids of statements not yet exported,
		// the backstop for lost queue messages.
		ListPendingExports(ctx context.Context, limit int) ([]string, error)
		MarkExported(ctx context.Context, id string) error
		MarkExportError(ctx context.Context, id string) error
	}
)

// Store is the full surface a backend must provide.
type Store interface {
	RecordWriter
	RecordLister
	RecordDeleter
	SummaryReader
	DriverStore
	StatementStore
}
