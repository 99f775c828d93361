package core

// AggregationResult summarizes a record collection. Amounts accumulate in
// integer cents, so repeated small additions never drift the way float64
// summation would. Classifiers with no valid records are absent from the
// maps rather than present with zero.
type AggregationResult struct {
	TotalCents         int64
	AmountByClassifier map[string]int64
	CountByClassifier  map[string]int
	RecordCount        int
}

// Total returns the grand total as Money.
func (a AggregationResult) Total() Money {
	return Money{Cents: a.TotalCents}
}

// Aggregate reduces records into per-classifier totals, a grand total and
// a count. Records with an invalid (non-positive) amount are skipped
// entirely: they contribute to no total, no classifier bucket and not to
// RecordCount. Summation is commutative, so the result is independent of
// input order. Pure function; the input is never mutated.
func Aggregate(records []FinancialRecord) AggregationResult {
	agg := AggregationResult{
		AmountByClassifier: make(map[string]int64),
		CountByClassifier:  make(map[string]int),
	}
	for _, r := range records {
		if !r.IsValid() {
			continue
		}
		agg.TotalCents += r.Amount.Cents
		agg.AmountByClassifier[r.Classifier] += r.Amount.Cents
		agg.CountByClassifier[r.Classifier]++
		agg.RecordCount++
	}
	return agg
}

// NetIncome applies the platform commission model: a driver keeps rate of
// gross earnings, minus expenses. The 0.30 default is a platform constant
// carried over from the legacy clients; it is configurable per deployment
// because nobody could say whether it was meant to vary per driver.
func NetIncome(earningsCents, expensesCents int64, rate float64) int64 {
	kept := float64(earningsCents) * rate
	// Round half-up to whole cents before subtracting.
	return int64(kept+0.5) - expensesCents
}
