package core

import "testing"

func sampleRecords() []FinancialRecord {
	return []FinancialRecord{
		{ID: "a", Kind: KindEarning, Amount: Money{Cents: 10000}, OccurredOn: "2024-03-01", Classifier: "Cash", OwnerID: "drv-1"},
		{ID: "b", Kind: KindEarning, Amount: Money{Cents: 5050}, OccurredOn: "2024-03-01", Classifier: "Online", OwnerID: "drv-1"},
		{ID: "c", Kind: KindEarning, Amount: Money{Cents: -1000}, OccurredOn: "2024-03-02", Classifier: "Cash", OwnerID: "drv-2"},
	}
}

func TestFilterByClassifier(t *testing.T) {
	records := sampleRecords()
	got := Filter(records, FilterSpec{Classifier: "Cash"})
	// The negative-amount Cash record never matches.
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected record a, got %+v", got)
	}
}

func TestFilterByOwnerAndDateRange(t *testing.T) {
	records := sampleRecords()

	got := Filter(records, FilterSpec{OwnerID: "drv-1"})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("owner filter: expected a, b; got %+v", got)
	}

	got = Filter(records, FilterSpec{DateFrom: "2024-03-02", DateTo: "2024-03-31"})
	if len(got) != 0 {
		t.Fatalf("date filter: c is invalid and must not match; got %+v", got)
	}

	// Bounds are inclusive.
	got = Filter(records, FilterSpec{DateFrom: "2024-03-01", DateTo: "2024-03-01"})
	if len(got) != 2 {
		t.Fatalf("inclusive bounds: expected 2, got %d", len(got))
	}
}

func TestFilterIsSubsetAndStable(t *testing.T) {
	records := sampleRecords()
	got := Filter(records, FilterSpec{})
	if len(got) != 2 {
		t.Fatalf("empty spec should match every valid record, got %d", len(got))
	}
	index := map[string]int{}
	for i, r := range records {
		index[r.ID] = i
	}
	last := -1
	for _, r := range got {
		i, ok := index[r.ID]
		if !ok {
			t.Fatalf("fabricated record %q", r.ID)
		}
		if i <= last {
			t.Fatalf("order not preserved at %q", r.ID)
		}
		last = i
	}
}

func TestFilterEmptyInputs(t *testing.T) {
	if got := Filter(nil, FilterSpec{Classifier: "Cash"}); len(got) != 0 {
		t.Fatalf("nil input should yield empty, got %+v", got)
	}
	if got := Filter(sampleRecords(), FilterSpec{OwnerID: "nobody"}); len(got) != 0 {
		t.Fatalf("no match should yield empty, got %+v", got)
	}
}

func TestFilterExcludesInvalidAmounts(t *testing.T) {
	records := []FinancialRecord{
		{ID: "ok", Amount: Money{Cents: 100}, OccurredOn: "2024-03-01", Classifier: "Cash", OwnerID: "drv-1"},
		{ID: "zero", Amount: Money{Cents: 0}, OccurredOn: "2024-03-01", Classifier: "Cash", OwnerID: "drv-1"},
		{ID: "neg", Amount: Money{Cents: -500}, OccurredOn: "2024-03-01", Classifier: "Cash", OwnerID: "drv-1"},
	}
	got := Filter(records, FilterSpec{OwnerID: "drv-1"})
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only the valid record, got %+v", got)
	}
}
