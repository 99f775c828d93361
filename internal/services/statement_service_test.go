package services

import (
	"context"
	"testing"
	"time"

	"fleetledger/internal/core"
	"fleetledger/internal/events"
	"fleetledger/internal/ledger"
	"fleetledger/internal/ledger/memory"
	"fleetledger/internal/taxonomy"
)

type fakePublisher struct {
	published map[string][]string
	err       error
}

func (f *fakePublisher) PublishStatementExport(_ context.Context, statementID string, formats []string) error {
	if f.err != nil {
		return f.err
	}
	if f.published == nil {
		f.published = make(map[string][]string)
	}
	f.published[statementID] = formats
	return nil
}

func seedLedger(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New().Seed(ledger.Driver{ID: "drv-1", Name: "Dana", Vehicle: "VAN-42"})

	svc := NewRecordService(store, taxonomy.Default(), nil)
	ctx := context.Background()

	records := []core.FinancialRecord{
		{Kind: core.KindEarning, Amount: core.Money{Cents: 10000}, OccurredOn: "2024-03-01", Classifier: "Cash", OwnerID: "drv-1"},
		{Kind: core.KindEarning, Amount: core.Money{Cents: 5050}, OccurredOn: "2024-03-02", Classifier: "Online", OwnerID: "drv-1"},
		{Kind: core.KindExpense, Amount: core.Money{Cents: 2000}, OccurredOn: "2024-03-02", Classifier: "Fuel", OwnerID: "drv-1"},
		{Kind: core.KindAutoExpense, Amount: core.Money{Cents: 1000}, OccurredOn: "2024-03-03", Classifier: "Petrol", OwnerID: "drv-1"},
		{Kind: core.KindEarning, Amount: core.Money{Cents: 9900}, OccurredOn: "2024-03-02", Classifier: "Cash", OwnerID: "drv-2"},
	}
	for _, r := range records {
		if _, err := svc.CreateRecord(ctx, r); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}
	return store
}

func TestGenerateStatement(t *testing.T) {
	store := seedLedger(t)
	bus := events.NewBus()
	pub := &fakePublisher{}
	svc := NewStatementService(store, bus, pub, 0.30)

	var created []events.StatementCreated
	bus.SubscribeStatementCreated(func(_ context.Context, e events.StatementCreated) {
		created = append(created, e)
	})

	doc, err := svc.GenerateStatement(context.Background(), "drv-1", "2024-03-01", "2024-03-02", []string{"pdf", "xlsx"})
	if err != nil {
		t.Fatalf("GenerateStatement: %v", err)
	}

	if doc.ID == "" {
		t.Fatal("statement has no id")
	}
	if doc.OwnerName != "Dana" {
		t.Errorf("OwnerName = %q, want Dana", doc.OwnerName)
	}
	// drv-1 has three records in range: two earnings and one expense.
	if doc.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", doc.RecordCount)
	}
	if doc.TotalCents != 17050 {
		t.Errorf("TotalCents = %d, want 17050", doc.TotalCents)
	}
	if doc.PeriodFrom != "2024-03-01" || doc.PeriodTo != "2024-03-02" {
		t.Errorf("period = %s..%s, want 2024-03-01..2024-03-02", doc.PeriodFrom, doc.PeriodTo)
	}

	stored, err := store.GetStatement(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetStatement: %v", err)
	}
	if stored.TotalCents != doc.TotalCents {
		t.Errorf("stored TotalCents = %d, want %d", stored.TotalCents, doc.TotalCents)
	}

	if formats := pub.published[doc.ID]; len(formats) != 2 {
		t.Errorf("published formats = %v, want [pdf xlsx]", formats)
	}
	if len(created) != 1 || created[0].StatementID != doc.ID {
		t.Errorf("created events = %+v, want one for %s", created, doc.ID)
	}
}

func TestGenerateStatementUnknownDriver(t *testing.T) {
	store := seedLedger(t)
	svc := NewStatementService(store, nil, nil, 0.30)

	doc, err := svc.GenerateStatement(context.Background(), "drv-2", "", "", nil)
	if err != nil {
		t.Fatalf("GenerateStatement: %v", err)
	}
	if doc.OwnerName != "" {
		t.Errorf("OwnerName = %q, want empty for unregistered driver", doc.OwnerName)
	}
	if doc.RecordCount != 1 {
		t.Errorf("RecordCount = %d, want 1", doc.RecordCount)
	}
}

func TestGenerateStatementPublishFailureIsNotFatal(t *testing.T) {
	store := seedLedger(t)
	pub := &fakePublisher{err: context.DeadlineExceeded}
	svc := NewStatementService(store, nil, pub, 0.30)

	doc, err := svc.GenerateStatement(context.Background(), "drv-1", "", "", []string{"pdf"})
	if err != nil {
		t.Fatalf("GenerateStatement: %v", err)
	}

	// The statement must still be stored and pending for the backstop scan.
	pending, err := store.ListPendingExports(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingExports: %v", err)
	}
	found := false
	for _, id := range pending {
		if id == doc.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("pending exports = %v, want to include %s", pending, doc.ID)
	}
}

func TestSummarize(t *testing.T) {
	store := seedLedger(t)
	svc := NewStatementService(store, nil, nil, 0.30)

	ref := time.Date(2024, 3, 3, 15, 0, 0, 0, time.Local)
	got, err := svc.Summarize(context.Background(), "drv-1", core.Weekly, ref)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if got.Earnings.TotalCents != 15050 {
		t.Errorf("Earnings.TotalCents = %d, want 15050", got.Earnings.TotalCents)
	}
	if got.Expenses.TotalCents != 2000 {
		t.Errorf("Expenses.TotalCents = %d, want 2000", got.Expenses.TotalCents)
	}
	if got.AutoExpenses.TotalCents != 1000 {
		t.Errorf("AutoExpenses.TotalCents = %d, want 1000", got.AutoExpenses.TotalCents)
	}

	// 15050 * 0.30 = 4515, minus 3000 in expenses.
	if got.NetIncomeCents != 1515 {
		t.Errorf("NetIncomeCents = %d, want 1515", got.NetIncomeCents)
	}
	if got.NetIncome != "15.15" {
		t.Errorf("NetIncome = %q, want 15.15", got.NetIncome)
	}
	if got.From != "2024-02-26" || got.To != "2024-03-03" {
		t.Errorf("window = %s..%s, want 2024-02-26..2024-03-03", got.From, got.To)
	}
}
