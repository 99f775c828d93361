package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"fleetledger/internal/core"
	"fleetledger/internal/ledger"
	"fleetledger/internal/statement"
)

// SQLiteRepository persists drivers, records and statements. Summary
// queries run in SQL for speed; their semantics mirror core.Aggregate
// exactly (positive amounts only, classifiers with no rows absent).
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendRecord implements ledger.RecordWriter.
func (r *SQLiteRepository) AppendRecord(ctx context.Context, rec core.FinancialRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	const q = `INSERT INTO records (id, kind, amount_cents, occurred_on, classifier, owner_id, note)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q,
		rec.ID, string(rec.Kind), rec.Amount.Cents, rec.OccurredOn,
		rec.Classifier, rec.OwnerID, rec.Note); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", rec.ID,
		"kind", rec.Kind,
		"amount_cents", rec.Amount.Cents,
		"classifier", rec.Classifier,
		"owner_id", rec.OwnerID)

	return rec.ID, nil
}

// ListRecords implements ledger.RecordLister. Filter constraints map
// directly onto the WHERE clause; canonical dates compare correctly as
// text.
func (r *SQLiteRepository) ListRecords(ctx context.Context, kind core.RecordKind, spec core.FilterSpec) ([]core.FinancialRecord, error) {
	q := `SELECT id, kind, amount_cents, occurred_on, classifier, owner_id, note
	      FROM records WHERE deleted = 0`
	var args []any
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	if spec.OwnerID != "" {
		q += " AND owner_id = ?"
		args = append(args, spec.OwnerID)
	}
	if spec.Classifier != "" {
		q += " AND classifier = ?"
		args = append(args, spec.Classifier)
	}
	if spec.DateFrom != "" {
		q += " AND occurred_on >= ?"
		args = append(args, spec.DateFrom)
	}
	if spec.DateTo != "" {
		q += " AND occurred_on <= ?"
		args = append(args, spec.DateTo)
	}
	q += " ORDER BY occurred_on ASC, created_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.FinancialRecord
	for rows.Next() {
		var rec core.FinancialRecord
		var kindStr string
		if err := rows.Scan(&rec.ID, &kindStr, &rec.Amount.Cents, &rec.OccurredOn,
			&rec.Classifier, &rec.OwnerID, &rec.Note); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Kind = core.RecordKind(kindStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRecord implements ledger.RecordDeleter with a soft delete, so an
// accidental swipe in the app stays recoverable.
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE records SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return fmt.Errorf("soft delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrRecordNotFound
	}
	slog.InfoContext(ctx, "Record soft-deleted", "id", id)
	return nil
}

// ReadSummary implements ledger.SummaryReader in SQL.
func (r *SQLiteRepository) ReadSummary(ctx context.Context, kind core.RecordKind, spec core.FilterSpec) (core.AggregationResult, error) {
	q := `SELECT classifier, SUM(amount_cents), COUNT(*)
	      FROM records WHERE deleted = 0 AND amount_cents > 0`
	var args []any
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	if spec.OwnerID != "" {
		q += " AND owner_id = ?"
		args = append(args, spec.OwnerID)
	}
	if spec.Classifier != "" {
		q += " AND classifier = ?"
		args = append(args, spec.Classifier)
	}
	if spec.DateFrom != "" {
		q += " AND occurred_on >= ?"
		args = append(args, spec.DateFrom)
	}
	if spec.DateTo != "" {
		q += " AND occurred_on <= ?"
		args = append(args, spec.DateTo)
	}
	q += " GROUP BY classifier"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return core.AggregationResult{}, fmt.Errorf("read summary: %w", err)
	}
	defer rows.Close()

	agg := core.AggregationResult{
		AmountByClassifier: make(map[string]int64),
		CountByClassifier:  make(map[string]int),
	}
	for rows.Next() {
		var classifier string
		var cents int64
		var count int
		if err := rows.Scan(&classifier, &cents, &count); err != nil {
			return core.AggregationResult{}, fmt.Errorf("scan summary row: %w", err)
		}
		agg.AmountByClassifier[classifier] = cents
		agg.CountByClassifier[classifier] = count
		agg.TotalCents += cents
		agg.RecordCount += count
	}
	return agg, rows.Err()
}

// PutDriver implements ledger.DriverStore.
func (r *SQLiteRepository) PutDriver(ctx context.Context, d ledger.Driver) error {
	if d.ID == "" {
		return ledger.ErrDriverNotFound
	}
	const q = `INSERT INTO drivers (id, name, vehicle) VALUES (?, ?, ?)
	           ON CONFLICT(id) DO UPDATE SET name = excluded.name, vehicle = excluded.vehicle`
	if _, err := r.db.ExecContext(ctx, q, d.ID, d.Name, d.Vehicle); err != nil {
		return fmt.Errorf("upsert driver: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDriver(ctx context.Context, id string) (ledger.Driver, error) {
	var d ledger.Driver
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, vehicle FROM drivers WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Vehicle)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Driver{}, ledger.ErrDriverNotFound
	}
	if err != nil {
		return ledger.Driver{}, fmt.Errorf("get driver: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) ListDrivers(ctx context.Context) ([]ledger.Driver, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, vehicle FROM drivers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []ledger.Driver
	for rows.Next() {
		var d ledger.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Vehicle); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveStatement implements ledger.StatementStore. The full document is
// kept as JSON so the export worker reproduces exactly what the API
// returned, column copies exist for querying.
func (r *SQLiteRepository) SaveStatement(ctx context.Context, doc statement.Document) error {
	if doc.ID == "" {
		return ledger.ErrStatementNotFound
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal statement: %w", err)
	}
	const q = `INSERT INTO statements (id, owner_id, generated_on, total_cents, record_count, doc_json)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q,
		doc.ID, doc.OwnerID, doc.GeneratedOn, doc.TotalCents, doc.RecordCount, string(payload)); err != nil {
		return fmt.Errorf("insert statement: %w", err)
	}

	slog.InfoContext(ctx, "Statement saved",
		"id", doc.ID,
		"owner_id", doc.OwnerID,
		"total_cents", doc.TotalCents,
		"record_count", doc.RecordCount)
	return nil
}

func (r *SQLiteRepository) GetStatement(ctx context.Context, id string) (statement.Document, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT doc_json FROM statements WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return statement.Document{}, ledger.ErrStatementNotFound
	}
	if err != nil {
		return statement.Document{}, fmt.Errorf("get statement: %w", err)
	}

	var doc statement.Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return statement.Document{}, fmt.Errorf("unmarshal statement %s: %w", id, err)
	}
	return doc, nil
}

func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM statements WHERE export_status = 'pending' ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	return r.setExportStatus(ctx, id, "exported")
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	return r.setExportStatus(ctx, id, "error")
}

func (r *SQLiteRepository) setExportStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE statements SET export_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set export status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrStatementNotFound
	}
	return nil
}

var _ ledger.Store = (*SQLiteRepository)(nil)
