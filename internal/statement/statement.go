// Package statement turns an aggregated record collection into an
// exportable driver statement. Formatting here is pure data shaping;
// turning a Document into PDF/XLSX bytes lives in internal/export.
package statement

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fleetledger/internal/core"
)

// ErrEmptyOwner is returned when a statement is requested without an
// attributable driver. A statement belongs to exactly one driver.
var ErrEmptyOwner = errors.New("statement requires an owner id")

// Owner identifies the driver a statement is issued for.
type Owner struct {
	ID   string
	Name string
}

// Row is one statement line.
type Row struct {
	Date       string `json:"date"`
	Classifier string `json:"classifier"`
	Note       string `json:"note,omitempty"`
	Amount     string `json:"amount"`
	Cents      int64  `json:"-"`
}

// Document is the structured statement handed to export collaborators.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	GeneratedOn string `json:"generated_on"`
	OwnerID     string `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	PeriodFrom  string `json:"period_from,omitempty"`
	PeriodTo    string `json:"period_to,omitempty"`
	Rows        []Row  `json:"rows"`
	TotalCents  int64  `json:"total_cents"`
	TotalAmount string `json:"total_amount"`
	RecordCount int    `json:"record_count"`
}

// Format builds a Document from records and their aggregation. Rows are
// sorted by date descending with ties keeping original input order, so two
// same-day records render in the order they were listed. Performs no I/O.
func Format(records []core.FinancialRecord, agg core.AggregationResult, owner Owner) (Document, error) {
	if strings.TrimSpace(owner.ID) == "" {
		return Document{}, ErrEmptyOwner
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			Date:       r.OccurredOn,
			Classifier: r.Classifier,
			Note:       r.Note,
			Amount:     core.FormatAmount(r.Amount.Cents),
			Cents:      r.Amount.Cents,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date > rows[j].Date
	})

	title := owner.Name
	if title == "" {
		title = owner.ID
	}

	return Document{
		Title:       fmt.Sprintf("Driver statement - %s", title),
		GeneratedOn: core.CanonicalDate(time.Now()),
		OwnerID:     owner.ID,
		OwnerName:   owner.Name,
		Rows:        rows,
		TotalCents:  agg.TotalCents,
		TotalAmount: core.FormatAmount(agg.TotalCents),
		RecordCount: agg.RecordCount,
	}, nil
}
