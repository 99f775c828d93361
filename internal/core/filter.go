package core

// FilterSpec narrows a record collection. Every field is optional; an
// empty field places no constraint on that dimension. Date bounds are
// canonical YYYY-MM-DD strings and compare lexically, which for this form
// is also chronological.
type FilterSpec struct {
	OwnerID    string
	Classifier string
	DateFrom   string
	DateTo     string
}

// Matches reports whether the record satisfies every present constraint.
// Records with a non-positive amount never match, before any field
// constraint is considered.
func (s FilterSpec) Matches(r FinancialRecord) bool {
	if !r.IsValid() {
		return false
	}
	if s.OwnerID != "" && r.OwnerID != s.OwnerID {
		return false
	}
	if s.Classifier != "" && r.Classifier != s.Classifier {
		return false
	}
	if s.DateFrom != "" && r.OccurredOn < s.DateFrom {
		return false
	}
	if s.DateTo != "" && r.OccurredOn > s.DateTo {
		return false
	}
	return true
}

// Filter returns the records matching spec, preserving input order. The
// output is always a subset of the input: nothing is fabricated or
// duplicated, and an empty result is a valid outcome, never an error.
// Invalid-amount records are excluded regardless of spec.
func Filter(records []FinancialRecord, spec FilterSpec) []FinancialRecord {
	out := make([]FinancialRecord, 0, len(records))
	for _, r := range records {
		if spec.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
