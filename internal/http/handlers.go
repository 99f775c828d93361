package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fleetledger/internal/auth"
	"fleetledger/internal/core"
	"fleetledger/internal/export"
	"fleetledger/internal/ledger"
	applog "fleetledger/internal/log"
	"fleetledger/internal/metrics"
	"fleetledger/internal/services"
	"fleetledger/internal/statement"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// logError reports handler failures through the structured logger.
func logError(ctx context.Context, msg string, err error, operation string, fields applog.LogFields) {
	if fields == nil {
		fields = applog.NewFields()
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, msg, err, applog.ComponentHTTP, operation, fields)
}

// ownerScope returns the driver id callers with the driver role are
// restricted to. Managers and unauthenticated local callers get no scope.
func ownerScope(r *http.Request) string {
	if auth.RoleFromContext(r.Context()) == auth.RoleDriver {
		return auth.DriverIDFromContext(r.Context())
	}
	return ""
}

type recordView struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	Classifier  string `json:"classifier"`
	DriverID    string `json:"driver_id"`
	Note        string `json:"note,omitempty"`
}

func toRecordView(r core.FinancialRecord) recordView {
	return recordView{
		ID:          r.ID,
		Kind:        string(r.Kind),
		Amount:      core.FormatAmount(r.Amount.Cents),
		AmountCents: r.Amount.Cents,
		Date:        r.OccurredOn,
		Classifier:  r.Classifier,
		DriverID:    r.OwnerID,
		Note:        r.Note,
	}
}

func toRecordViews(records []core.FinancialRecord) []recordView {
	views := make([]recordView, 0, len(records))
	for _, r := range records {
		views = append(views, toRecordView(r))
	}
	return views
}

type createRecordRequest struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Amount     json.RawMessage `json:"amount"`
	Date       string          `json:"date"`
	Classifier string          `json:"classifier"`
	DriverID   string          `json:"driver_id"`
	Note       string          `json:"note"`
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind := core.RecordKind(strings.TrimSpace(req.Kind))
	if !kind.IsValid() {
		writeError(w, http.StatusUnprocessableEntity, "kind must be earning, expense or auto_expense")
		return
	}

	cents, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	occurred := strings.TrimSpace(req.Date)
	if occurred == "" {
		occurred = core.Today()
	} else if occurred, err = core.NormalizeDate(occurred); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}

	ownerID := strings.TrimSpace(req.DriverID)
	if scope := ownerScope(r); scope != "" {
		if ownerID != "" && ownerID != scope {
			writeError(w, http.StatusForbidden, "cannot create records for another driver")
			return
		}
		ownerID = scope
	}

	rec := core.FinancialRecord{
		ID:         strings.TrimSpace(req.ID),
		Kind:       kind,
		Amount:     core.Money{Cents: cents},
		OccurredOn: occurred,
		Classifier: strings.TrimSpace(req.Classifier),
		OwnerID:    ownerID,
		Note:       strings.TrimSpace(req.Note),
	}

	id, err := s.records.CreateRecord(r.Context(), rec)
	if err != nil {
		var unknown services.ErrUnknownClassifier
		switch {
		case errors.As(err, &unknown):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrInvalidDate),
			errors.Is(err, core.ErrEmptyClassifier),
			errors.Is(err, core.ErrEmptyOwner):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			logError(r.Context(), "Record create failed", err, applog.OpCreate, nil)
			writeError(w, http.StatusInternalServerError, "failed to store record")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// parseAmount accepts JSON string or number amounts, same as bulk import.
func parseAmount(raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, core.ErrInvalidAmount
	}
	trimmed = strings.Trim(trimmed, `"`)
	return core.ParseAmountToCents(trimmed)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := core.RecordKind(strings.TrimSpace(q.Get("kind")))
	if kind != "" && !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown kind")
		return
	}

	spec := core.FilterSpec{
		OwnerID:    strings.TrimSpace(q.Get("driver_id")),
		Classifier: strings.TrimSpace(q.Get("classifier")),
	}
	var err error
	if from := strings.TrimSpace(q.Get("from")); from != "" {
		if spec.DateFrom, err = core.NormalizeDate(from); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if to := strings.TrimSpace(q.Get("to")); to != "" {
		if spec.DateTo, err = core.NormalizeDate(to); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}

	if scope := ownerScope(r); scope != "" {
		spec.OwnerID = scope
	}

	records, err := s.records.ListRecords(r.Context(), kind, spec)
	if err != nil {
		logError(r.Context(), "Record list failed", err, applog.OpList, nil)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": toRecordViews(records),
		"count":   len(records),
	})
}

func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	kind := core.RecordKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "kind query parameter must be earning, expense or auto_expense")
		return
	}

	result, err := s.records.ImportRecords(r.Context(), kind, ownerScope(r), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import payload: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}

	if err := s.records.DeleteRecord(r.Context(), id, ownerScope(r)); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		logError(r.Context(), "Record delete failed", err, applog.OpDelete, applog.LogFields{applog.FieldRecordID: id})
		writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ownerID := strings.TrimSpace(q.Get("driver_id"))
	if scope := ownerScope(r); scope != "" {
		ownerID = scope
	}
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing driver_id")
		return
	}

	period := core.Period(strings.TrimSpace(q.Get("period")))
	if period == "" {
		period = core.Weekly
	}
	if !period.IsValid() {
		writeError(w, http.StatusBadRequest, "period must be daily, weekly or monthly")
		return
	}

	cacheKey := ownerID + "|" + string(period)
	if summary, ok := s.summaryCache.Get(cacheKey); ok {
		metrics.IncCacheLookup("summary", true)
		writeJSON(w, http.StatusOK, summary)
		return
	}
	metrics.IncCacheLookup("summary", false)

	summary, err := s.statements.Summarize(r.Context(), ownerID, period, time.Now())
	if err != nil {
		logError(r.Context(), "Summary failed", err, applog.OpRead, applog.LogFields{applog.FieldDriverID: ownerID, "period": string(period)})
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	s.summaryCache.Set(cacheKey, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFeedToday(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("driver_id"))
	if scope := ownerScope(r); scope != "" {
		ownerID = scope
	}
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing driver_id")
		return
	}

	feed, err := s.records.FeedToday(r.Context(), ownerID)
	if err != nil {
		logError(r.Context(), "Feed failed", err, applog.OpRead, applog.LogFields{applog.FieldDriverID: ownerID})
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"today": toRecordViews(feed.Today),
		"other": toRecordViews(feed.Other),
	})
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		string(core.KindEarning):     s.tax.Classifiers(core.KindEarning),
		string(core.KindExpense):     s.tax.Classifiers(core.KindExpense),
		string(core.KindAutoExpense): s.tax.Classifiers(core.KindAutoExpense),
	})
}

type createStatementRequest struct {
	DriverID string   `json:"driver_id"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Formats  []string `json:"formats"`
}

func (s *Server) handleCreateStatement(w http.ResponseWriter, r *http.Request) {
	var req createStatementRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ownerID := strings.TrimSpace(req.DriverID)
	if scope := ownerScope(r); scope != "" {
		if ownerID != "" && ownerID != scope {
			writeError(w, http.StatusForbidden, "cannot generate statements for another driver")
			return
		}
		ownerID = scope
	}
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing driver_id")
		return
	}

	var err error
	from, to := strings.TrimSpace(req.From), strings.TrimSpace(req.To)
	if from != "" {
		if from, err = core.NormalizeDate(from); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if to != "" {
		if to, err = core.NormalizeDate(to); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}

	for _, format := range req.Formats {
		if format != export.FormatPDF && format != export.FormatXLSX {
			writeError(w, http.StatusBadRequest, "unsupported format "+format)
			return
		}
	}

	doc, err := s.statements.GenerateStatement(r.Context(), ownerID, from, to, req.Formats)
	if err != nil {
		if errors.Is(err, statement.ErrEmptyOwner) {
			writeError(w, http.StatusBadRequest, "missing driver_id")
			return
		}
		logError(r.Context(), "Statement generate failed", err, applog.OpCreate, applog.LogFields{applog.FieldDriverID: ownerID})
		writeError(w, http.StatusInternalServerError, "failed to generate statement")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// loadStatement fetches a statement and hides other drivers' statements from
// scoped callers behind a not-found.
func (s *Server) loadStatement(r *http.Request) (statement.Document, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return statement.Document{}, ledger.ErrStatementNotFound
	}
	doc, err := s.statements.GetStatement(r.Context(), id)
	if err != nil {
		return statement.Document{}, err
	}
	if scope := ownerScope(r); scope != "" && doc.OwnerID != scope {
		return statement.Document{}, ledger.ErrStatementNotFound
	}
	return doc, nil
}

func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loadStatement(r)
	if err != nil {
		if errors.Is(err, ledger.ErrStatementNotFound) {
			writeError(w, http.StatusNotFound, "statement not found")
			return
		}
		logError(r.Context(), "Statement fetch failed", err, applog.OpRead, nil)
		writeError(w, http.StatusInternalServerError, "failed to fetch statement")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadStatement(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loadStatement(r)
	if err != nil {
		if errors.Is(err, ledger.ErrStatementNotFound) {
			writeError(w, http.StatusNotFound, "statement not found")
			return
		}
		logError(r.Context(), "Statement fetch failed", err, applog.OpRead, nil)
		writeError(w, http.StatusInternalServerError, "failed to fetch statement")
		return
	}

	format := strings.TrimSpace(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatPDF
	}

	data, err := export.Build(format, &doc)
	if err != nil {
		if format != export.FormatPDF && format != export.FormatXLSX {
			writeError(w, http.StatusBadRequest, "unsupported format "+format)
			return
		}
		logError(r.Context(), "Statement render failed", err, applog.OpExport, applog.LogFields{applog.FieldStatementID: doc.ID, applog.FieldFormat: format})
		writeError(w, http.StatusInternalServerError, "failed to render statement")
		return
	}

	contentType := "application/pdf"
	if format == export.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="statement-`+doc.ID+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type driverView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Vehicle string `json:"vehicle,omitempty"`
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverView
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	d := ledger.Driver{
		ID:      strings.TrimSpace(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Vehicle: strings.TrimSpace(req.Vehicle),
	}
	if d.ID == "" || d.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "driver id and name are required")
		return
	}

	if err := s.drivers.PutDriver(r.Context(), d); err != nil {
		logError(r.Context(), "Driver store failed", err, applog.OpCreate, applog.LogFields{applog.FieldDriverID: d.ID})
		writeError(w, http.StatusInternalServerError, "failed to store driver")
		return
	}

	writeJSON(w, http.StatusCreated, driverView{ID: d.ID, Name: d.Name, Vehicle: d.Vehicle})
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.drivers.ListDrivers(r.Context())
	if err != nil {
		logError(r.Context(), "Driver list failed", err, applog.OpList, nil)
		writeError(w, http.StatusInternalServerError, "failed to list drivers")
		return
	}

	views := make([]driverView, 0, len(drivers))
	for _, d := range drivers {
		views = append(views, driverView{ID: d.ID, Name: d.Name, Vehicle: d.Vehicle})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"drivers": views,
		"count":   len(views),
	})
}
