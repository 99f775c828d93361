package core

import "time"

// DayPartition splits records into those occurring on a reference day and
// everything else. Used to build the daily transaction feed.
type DayPartition struct {
	Today []FinancialRecord
	Other []FinancialRecord
}

// PartitionByDay buckets records by whether their OccurredOn equals the
// reference day. The reference is canonicalized once; each record date is
// normalized before comparison so ISO-ish inputs still match. A record
// whose date is missing or unparsable goes to Other, never Today.
// Relative input order is preserved within each bucket, and every input
// record lands in exactly one bucket.
func PartitionByDay(records []FinancialRecord, ref time.Time) DayPartition {
	day := CanonicalDate(ref)
	p := DayPartition{
		Today: make([]FinancialRecord, 0, len(records)),
		Other: make([]FinancialRecord, 0, len(records)),
	}
	for _, r := range records {
		occurred, err := NormalizeDate(r.OccurredOn)
		if err == nil && occurred == day {
			p.Today = append(p.Today, r)
			continue
		}
		p.Other = append(p.Other, r)
	}
	return p
}
