// Package memory is the in-memory ledger backend used for development and
// tests. Everything is guarded by one mutex; the core functions it calls
// are pure, so no lock is held across anything slow.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fleetledger/internal/core"
	"fleetledger/internal/ledger"
	"fleetledger/internal/statement"
)

type exportState int

const (
	exportPending exportState = iota
	exportDone
	exportFailed
)

type Store struct {
	mu         sync.Mutex
	records    []core.FinancialRecord
	drivers    map[string]ledger.Driver
	statements map[string]statement.Document
	exports    map[string]exportState
	stmtOrder  []string
}

func New() *Store {
	return &Store{
		drivers:    make(map[string]ledger.Driver),
		statements: make(map[string]statement.Document),
		exports:    make(map[string]exportState),
	}
}

// Seed preloads drivers, handy for demos and tests.
func (s *Store) Seed(drivers ...ledger.Driver) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range drivers {
		s.drivers[d.ID] = d
	}
	return s
}

func (s *Store) AppendRecord(_ context.Context, r core.FinancialRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return fmt.Sprintf("mem:%d", len(s.records)), nil
}

func (s *Store) ListRecords(_ context.Context, kind core.RecordKind, spec core.FilterSpec) ([]core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKind := make([]core.FinancialRecord, 0, len(s.records))
	for _, r := range s.records {
		if kind == "" || r.Kind == kind {
			byKind = append(byKind, r)
		}
	}
	return core.Filter(byKind, spec), nil
}

func (s *Store) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ledger.ErrRecordNotFound
}

func (s *Store) ReadSummary(ctx context.Context, kind core.RecordKind, spec core.FilterSpec) (core.AggregationResult, error) {
	records, err := s.ListRecords(ctx, kind, spec)
	if err != nil {
		return core.AggregationResult{}, err
	}
	return core.Aggregate(records), nil
}

func (s *Store) PutDriver(_ context.Context, d ledger.Driver) error {
	if d.ID == "" {
		return ledger.ErrDriverNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = d
	return nil
}

func (s *Store) GetDriver(_ context.Context, id string) (ledger.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return ledger.Driver{}, ledger.ErrDriverNotFound
	}
	return d, nil
}

func (s *Store) ListDrivers(_ context.Context) ([]ledger.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) SaveStatement(_ context.Context, doc statement.Document) error {
	if doc.ID == "" {
		return ledger.ErrStatementNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.statements[doc.ID]; !exists {
		s.stmtOrder = append(s.stmtOrder, doc.ID)
	}
	s.statements[doc.ID] = doc
	s.exports[doc.ID] = exportPending
	return nil
}

func (s *Store) GetStatement(_ context.Context, id string) (statement.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.statements[id]
	if !ok {
		return statement.Document{}, ledger.ErrStatementNotFound
	}
	return doc, nil
}

func (s *Store) ListPendingExports(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, id := range s.stmtOrder {
		if s.exports[id] != exportPending {
			continue
		}
		out = append(out, id)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id string) error {
	return s.markExport(id, exportDone)
}

func (s *Store) MarkExportError(_ context.Context, id string) error {
	return s.markExport(id, exportFailed)
}

func (s *Store) markExport(id string, state exportState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statements[id]; !ok {
		return ledger.ErrStatementNotFound
	}
	s.exports[id] = state
	return nil
}

var _ ledger.Store = (*Store)(nil)
