package core

import (
	"errors"
	"strings"
)

const (
	KindEarning     RecordKind = "earning"
	KindExpense     RecordKind = "expense"
	KindAutoExpense RecordKind = "auto_expense"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

type (
	// RecordKind distinguishes the three structurally identical record
	// variants by their classifier vocabulary.
	RecordKind string

	// Period selects the implicit date window for a summary when the
	// caller supplies no explicit bounds.
	Period string

	Money struct {
		Cents int64
	}

	// FinancialRecord is the uniform shape for earnings, expenses and
	// auto-expenses. OccurredOn is always a canonical YYYY-MM-DD string.
	FinancialRecord struct {
		ID         string
		Kind       RecordKind
		Amount     Money
		OccurredOn string
		Classifier string
		OwnerID    string
		Note       string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidKind     = errors.New("invalid record kind")
	ErrEmptyClassifier = errors.New("empty classifier")
	ErrEmptyOwner      = errors.New("empty owner id")
)

func (k RecordKind) IsValid() bool {
	switch k {
	case KindEarning, KindExpense, KindAutoExpense:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (k RecordKind) String() string {
	return string(k)
}

func (p Period) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsValid reports whether the record carries a usable positive amount.
// Records failing this check are excluded from filtering and aggregation
// rather than treated as zero.
func (r FinancialRecord) IsValid() bool {
	return r.Amount.Cents > 0
}

func (r FinancialRecord) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if _, err := ParseCanonicalDate(r.OccurredOn); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(r.Classifier) == "" {
		return ErrEmptyClassifier
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if len(r.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}
