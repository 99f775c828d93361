package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"fleetledger/internal/core"
	"fleetledger/internal/events"
	"fleetledger/internal/ingest"
	"fleetledger/internal/ledger"
	"fleetledger/internal/metrics"
	"fleetledger/internal/taxonomy"
)

// ErrUnknownClassifier is returned when a record names a classifier outside
// the taxonomy for its kind.
type ErrUnknownClassifier struct {
	Kind       core.RecordKind
	Classifier string
}

func (e ErrUnknownClassifier) Error() string {
	return fmt.Sprintf("unknown classifier %q for kind %s", e.Classifier, e.Kind)
}

// RecordService orchestrates record writes across the ledger store and the
// in-process event bus.
type RecordService struct {
	store ledger.Store
	tax   *taxonomy.Taxonomy
	bus   *events.Bus
}

func NewRecordService(store ledger.Store, tax *taxonomy.Taxonomy, bus *events.Bus) *RecordService {
	return &RecordService{store: store, tax: tax, bus: bus}
}

// CreateRecord validates and stores a single record. Missing IDs are
// assigned here so callers can omit them.
func (s *RecordService) CreateRecord(ctx context.Context, r core.FinancialRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	if !s.tax.Allowed(r.Kind, r.Classifier) {
		return "", ErrUnknownClassifier{Kind: r.Kind, Classifier: r.Classifier}
	}

	ref, err := s.store.AppendRecord(ctx, r)
	if err != nil {
		return "", fmt.Errorf("save record: %w", err)
	}

	metrics.IncRecordCreated(string(r.Kind))
	s.publishChanged(ctx, r, false)

	slog.InfoContext(ctx, "Record created",
		"record_id", r.ID,
		"kind", r.Kind,
		"classifier", r.Classifier,
		"driver_id", r.OwnerID,
		"amount_cents", r.Amount.Cents,
		"ref", ref)

	return r.ID, nil
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Stored   []string         `json:"stored"`
	Rejected []ingest.Rejected `json:"rejected,omitempty"`
}

// ImportRecords decodes a JSON payload of records and stores every decodable,
// taxonomy-valid entry. Per-record failures reject that record only, reported
// under its index in the submitted payload. A non-empty ownerScope rejects
// records attributed to anyone else.
func (s *RecordService) ImportRecords(ctx context.Context, kind core.RecordKind, ownerScope string, body io.Reader) (ImportResult, error) {
	records, rejected, err := ingest.DecodeRecords(kind, body)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Rejected: rejected}
	for _, d := range records {
		if ownerScope != "" && d.Record.OwnerID != ownerScope {
			result.Rejected = append(result.Rejected, ingest.Rejected{Index: d.Index, Reason: "record owner does not match caller"})
			continue
		}
		id, err := s.CreateRecord(ctx, d.Record)
		if err != nil {
			result.Rejected = append(result.Rejected, ingest.Rejected{Index: d.Index, Reason: err.Error()})
			continue
		}
		result.Stored = append(result.Stored, id)
	}

	metrics.AddRecordsRejected("import", len(result.Rejected))

	slog.InfoContext(ctx, "Import finished",
		"kind", kind,
		"stored", len(result.Stored),
		"rejected", len(result.Rejected))

	return result, nil
}

// ListRecords returns records of a kind matching spec, oldest first.
func (s *RecordService) ListRecords(ctx context.Context, kind core.RecordKind, spec core.FilterSpec) ([]core.FinancialRecord, error) {
	return s.store.ListRecords(ctx, kind, spec)
}

// DeleteRecord removes a record. A non-empty ownerScope restricts deletion
// to that driver's records; out-of-scope ids report not found rather than
// leaking their existence.
func (s *RecordService) DeleteRecord(ctx context.Context, id, ownerScope string) error {
	var deleted core.FinancialRecord
	if ownerScope != "" {
		owned, err := s.store.ListRecords(ctx, "", core.FilterSpec{OwnerID: ownerScope})
		if err != nil {
			return err
		}
		found := false
		for _, r := range owned {
			if r.ID == id {
				deleted = r
				found = true
				break
			}
		}
		if !found {
			return ledger.ErrRecordNotFound
		}
	}

	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return err
	}

	deleted.ID = id
	s.publishChanged(ctx, deleted, true)
	slog.InfoContext(ctx, "Record deleted", "record_id", id)
	return nil
}

// FeedToday splits a driver's records into today's entries and the rest.
func (s *RecordService) FeedToday(ctx context.Context, ownerID string) (core.DayPartition, error) {
	records, err := s.store.ListRecords(ctx, "", core.FilterSpec{OwnerID: ownerID})
	if err != nil {
		return core.DayPartition{}, err
	}
	return core.PartitionByDay(records, timeNow()), nil
}

func (s *RecordService) publishChanged(ctx context.Context, r core.FinancialRecord, deleted bool) {
	if s.bus == nil {
		return
	}
	s.bus.PublishRecordChanged(ctx, events.RecordChanged{
		RecordID:   r.ID,
		Kind:       r.Kind,
		OwnerID:    r.OwnerID,
		OccurredOn: r.OccurredOn,
		Deleted:    deleted,
	})
}
