package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetledger/internal/core"
	"fleetledger/internal/events"
	"fleetledger/internal/ledger"
	"fleetledger/internal/metrics"
	"fleetledger/internal/statement"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// ExportPublisher hands export requests to the queue. The AMQP client
// satisfies this; a nil publisher leaves statements for the worker backstop.
type ExportPublisher interface {
	PublishStatementExport(ctx context.Context, statementID string, formats []string) error
}

// StatementService builds, stores and queues driver statements, and answers
// period summaries.
type StatementService struct {
	store          ledger.Store
	bus            *events.Bus
	publisher      ExportPublisher
	commissionRate float64
}

func NewStatementService(store ledger.Store, bus *events.Bus, publisher ExportPublisher, commissionRate float64) *StatementService {
	return &StatementService{
		store:          store,
		bus:            bus,
		publisher:      publisher,
		commissionRate: commissionRate,
	}
}

// GenerateStatement builds a statement for one driver over [from, to] and
// persists it. Formats, when given, are queued for the export worker.
func (s *StatementService) GenerateStatement(ctx context.Context, ownerID, from, to string, formats []string) (statement.Document, error) {
	start := timeNow()

	owner := statement.Owner{ID: ownerID}
	driver, err := s.store.GetDriver(ctx, ownerID)
	switch {
	case err == nil:
		owner.Name = driver.Name
	case errors.Is(err, ledger.ErrDriverNotFound):
		// Statements for unregistered drivers keep the bare id.
	default:
		return statement.Document{}, fmt.Errorf("load driver: %w", err)
	}

	spec := core.FilterSpec{OwnerID: ownerID, DateFrom: from, DateTo: to}
	records, err := s.store.ListRecords(ctx, "", spec)
	if err != nil {
		metrics.ObserveStatementGenerate(metrics.ResultError, time.Since(start))
		return statement.Document{}, fmt.Errorf("list records: %w", err)
	}

	doc, err := statement.Format(records, core.Aggregate(records), owner)
	if err != nil {
		metrics.ObserveStatementGenerate(metrics.ResultError, time.Since(start))
		return statement.Document{}, err
	}
	doc.ID = uuid.NewString()
	doc.PeriodFrom = from
	doc.PeriodTo = to

	if err := s.store.SaveStatement(ctx, doc); err != nil {
		metrics.ObserveStatementGenerate(metrics.ResultError, time.Since(start))
		return statement.Document{}, fmt.Errorf("save statement: %w", err)
	}

	if s.bus != nil {
		s.bus.PublishStatementCreated(ctx, events.StatementCreated{
			StatementID: doc.ID,
			OwnerID:     ownerID,
		})
	}

	if len(formats) > 0 {
		if err := s.publishExport(ctx, doc.ID, formats); err != nil {
			// The statement is stored; the worker's pending scan will
			// pick it up if the queue is down.
			slog.ErrorContext(ctx, "Failed to publish export message",
				"statement_id", doc.ID, "error", err)
		}
	}

	metrics.ObserveStatementGenerate(metrics.ResultSuccess, time.Since(start))

	slog.InfoContext(ctx, "Statement generated",
		"statement_id", doc.ID,
		"driver_id", ownerID,
		"records", doc.RecordCount,
		"total_cents", doc.TotalCents)

	return doc, nil
}

// GetStatement loads a stored statement.
func (s *StatementService) GetStatement(ctx context.Context, id string) (statement.Document, error) {
	return s.store.GetStatement(ctx, id)
}

func (s *StatementService) publishExport(ctx context.Context, statementID string, formats []string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, relying on pending scan",
			"statement_id", statementID)
		return nil
	}
	return s.publisher.PublishStatementExport(ctx, statementID, formats)
}

// PeriodSummary is the aggregated view for one driver and period.
type PeriodSummary struct {
	From           string                 `json:"from"`
	To             string                 `json:"to"`
	Earnings       core.AggregationResult `json:"earnings"`
	Expenses       core.AggregationResult `json:"expenses"`
	AutoExpenses   core.AggregationResult `json:"auto_expenses"`
	NetIncomeCents int64                  `json:"net_income_cents"`
	NetIncome      string                 `json:"net_income"`
}

// Summarize aggregates a driver's records over the period ending at ref and
// applies the commission rule to gross earnings.
func (s *StatementService) Summarize(ctx context.Context, ownerID string, period core.Period, ref time.Time) (PeriodSummary, error) {
	from, to := period.Window(ref)
	spec := core.FilterSpec{OwnerID: ownerID, DateFrom: from, DateTo: to}

	earnings, err := s.store.ReadSummary(ctx, core.KindEarning, spec)
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("earnings summary: %w", err)
	}
	expenses, err := s.store.ReadSummary(ctx, core.KindExpense, spec)
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("expenses summary: %w", err)
	}
	autoExpenses, err := s.store.ReadSummary(ctx, core.KindAutoExpense, spec)
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("auto expenses summary: %w", err)
	}

	net := core.NetIncome(earnings.TotalCents, expenses.TotalCents+autoExpenses.TotalCents, s.commissionRate)

	return PeriodSummary{
		From:           from,
		To:             to,
		Earnings:       earnings,
		Expenses:       expenses,
		AutoExpenses:   autoExpenses,
		NetIncomeCents: net,
		NetIncome:      core.FormatAmount(net),
	}, nil
}
