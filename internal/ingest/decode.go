// Package ingest is the boundary adapter for the legacy fleet API. That
// backend returned a different envelope per endpoint (a bare array,
// {"data": [...]}, or a key named after the collection), spelled the
// classifier field "type" for earnings but "category" for expenses, and
// sent amounts as either strings or numbers. All of that variability is
// absorbed here so none of it leaks into internal/core.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fleetledger/internal/core"
)

// envelope keys tried, in order, when the payload is not a bare array.
var collectionKeys = []string{"data", "earnings", "expenses", "autoExpenses", "auto_expenses", "records"}

// Rejected describes a record that failed normalization. Bad records are
// collected, never propagated as batch failures: one malformed entry must
// not abort ingestion of the rest.
type Rejected struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Decoded pairs a normalized record with its position in the source payload,
// so rejections raised after decoding still name the entry the caller sent.
type Decoded struct {
	Index  int
	Record core.FinancialRecord
}

type rawRecord struct {
	ID          string          `json:"id"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	DriverID    string          `json:"driverId"`
	DriverIDAlt string          `json:"driver_id"`
	Note        string          `json:"note"`
	Notes       string          `json:"notes"`
}

// DecodeRecords normalizes one legacy response body into FinancialRecords
// of the given kind, each tagged with its payload index. Per-record failures
// land in the rejected list; only a structurally unreadable payload returns
// an error.
func DecodeRecords(kind core.RecordKind, r io.Reader) ([]Decoded, []Rejected, error) {
	if !kind.IsValid() {
		return nil, nil, core.ErrInvalidKind
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read payload: %w", err)
	}

	raws, err := extractArray(body)
	if err != nil {
		return nil, nil, err
	}

	records := make([]Decoded, 0, len(raws))
	var rejected []Rejected
	for i, raw := range raws {
		rec, err := normalize(kind, raw)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Reason: err.Error()})
			continue
		}
		records = append(records, Decoded{Index: i, Record: rec})
	}
	return records, rejected, nil
}

// extractArray locates the record array regardless of envelope shape.
func extractArray(body []byte) ([]rawRecord, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var raws []rawRecord
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}
		return raws, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	for _, key := range collectionKeys {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		var raws []rawRecord
		if err := json.Unmarshal(inner, &raws); err != nil {
			return nil, fmt.Errorf("decode %q array: %w", key, err)
		}
		return raws, nil
	}
	return nil, fmt.Errorf("no record collection found in envelope")
}

func normalize(kind core.RecordKind, raw rawRecord) (core.FinancialRecord, error) {
	amountStr, err := amountString(raw.Amount)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	cents, err := core.ParseAmountToCents(amountStr)
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("amount %q: %w", amountStr, err)
	}

	occurred, err := core.NormalizeDate(raw.Date)
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("date %q: %w", raw.Date, err)
	}

	// Earnings call it "type", expenses and auto-expenses "category".
	classifier := strings.TrimSpace(raw.Type)
	if classifier == "" {
		classifier = strings.TrimSpace(raw.Category)
	}
	if classifier == "" {
		return core.FinancialRecord{}, core.ErrEmptyClassifier
	}

	owner := strings.TrimSpace(raw.DriverID)
	if owner == "" {
		owner = strings.TrimSpace(raw.DriverIDAlt)
	}
	if owner == "" {
		return core.FinancialRecord{}, core.ErrEmptyOwner
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = uuid.NewString()
	}

	note := raw.Note
	if note == "" {
		note = raw.Notes
	}

	return core.FinancialRecord{
		ID:         id,
		Kind:       kind,
		Amount:     core.Money{Cents: cents},
		OccurredOn: occurred,
		Classifier: classifier,
		OwnerID:    owner,
		Note:       note,
	}, nil
}

// amountString accepts JSON string or number amounts.
func amountString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", core.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", core.ErrInvalidAmount
		}
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", core.ErrInvalidAmount
	}
	return strconv.FormatFloat(n, 'f', -1, 64), nil
}
