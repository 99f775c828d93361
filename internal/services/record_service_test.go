package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fleetledger/internal/core"
	"fleetledger/internal/events"
	"fleetledger/internal/ledger"
	"fleetledger/internal/ledger/memory"
	"fleetledger/internal/taxonomy"
)

func newRecordService(t *testing.T) (*RecordService, *memory.Store, *events.Bus) {
	t.Helper()
	store := memory.New()
	bus := events.NewBus()
	return NewRecordService(store, taxonomy.Default(), bus), store, bus
}

func validRecord() core.FinancialRecord {
	return core.FinancialRecord{
		Kind:       core.KindEarning,
		Amount:     core.Money{Cents: 4500},
		OccurredOn: "2024-03-01",
		Classifier: "Online",
		OwnerID:    "drv-1",
		Note:       "airport run",
	}
}

func TestCreateRecord(t *testing.T) {
	svc, store, bus := newRecordService(t)

	var published []events.RecordChanged
	bus.SubscribeRecordChanged(func(_ context.Context, e events.RecordChanged) {
		published = append(published, e)
	})

	id, err := svc.CreateRecord(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if id == "" {
		t.Fatal("CreateRecord returned empty id")
	}

	records, err := store.ListRecords(context.Background(), core.KindEarning, core.FilterSpec{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 1 || records[0].ID != id {
		t.Fatalf("stored records = %+v, want one with id %s", records, id)
	}

	if len(published) != 1 || published[0].RecordID != id || published[0].Deleted {
		t.Fatalf("published events = %+v, want one create for %s", published, id)
	}
}

func TestCreateRecordRejectsUnknownClassifier(t *testing.T) {
	svc, _, _ := newRecordService(t)

	r := validRecord()
	r.Classifier = "Tips"
	_, err := svc.CreateRecord(context.Background(), r)

	var unknown ErrUnknownClassifier
	if !errors.As(err, &unknown) {
		t.Fatalf("CreateRecord error = %v, want ErrUnknownClassifier", err)
	}
	if unknown.Classifier != "Tips" {
		t.Errorf("Classifier = %q, want Tips", unknown.Classifier)
	}
}

func TestCreateRecordRejectsInvalidAmount(t *testing.T) {
	svc, _, _ := newRecordService(t)

	r := validRecord()
	r.Amount.Cents = 0
	if _, err := svc.CreateRecord(context.Background(), r); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("CreateRecord error = %v, want ErrInvalidAmount", err)
	}
}

func TestImportRecords(t *testing.T) {
	svc, _, _ := newRecordService(t)

	body := strings.NewReader(`{"earnings": [
		{"amount": "45.00", "date": "2024-03-01", "type": "Online", "driverId": "drv-1"},
		{"amount": "12.50", "date": "2024-03-02", "type": "Cash", "driverId": "drv-1"},
		{"amount": "9.99", "date": "2024-03-02", "type": "Bogus", "driverId": "drv-1"},
		{"amount": "nope", "date": "2024-03-02", "type": "Cash", "driverId": "drv-1"}
	]}`)

	result, err := svc.ImportRecords(context.Background(), core.KindEarning, "", body)
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	if len(result.Stored) != 2 {
		t.Errorf("Stored = %v, want 2 ids", result.Stored)
	}
	if len(result.Rejected) != 2 {
		t.Errorf("Rejected = %+v, want 2 rejections", result.Rejected)
	}
}

func TestImportRecordsReportPayloadIndexes(t *testing.T) {
	svc, _, _ := newRecordService(t)

	// First entry fails at decode, second at taxonomy validation. Both
	// rejections must name the entry's position in the submitted payload.
	body := strings.NewReader(`{"earnings": [
		{"amount": "nope", "date": "2024-03-01", "type": "Cash", "driverId": "drv-1"},
		{"amount": "9.99", "date": "2024-03-02", "type": "Bogus", "driverId": "drv-1"},
		{"amount": "45.00", "date": "2024-03-02", "type": "Online", "driverId": "drv-1"}
	]}`)

	result, err := svc.ImportRecords(context.Background(), core.KindEarning, "", body)
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	if len(result.Stored) != 1 {
		t.Fatalf("Stored = %v, want 1 id", result.Stored)
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("Rejected = %+v, want 2 rejections", result.Rejected)
	}

	seen := map[int]string{}
	for _, rej := range result.Rejected {
		if prev, dup := seen[rej.Index]; dup {
			t.Fatalf("index %d rejected twice: %q and %q", rej.Index, prev, rej.Reason)
		}
		seen[rej.Index] = rej.Reason
	}
	if _, ok := seen[0]; !ok {
		t.Errorf("no rejection for payload index 0: %+v", result.Rejected)
	}
	if reason, ok := seen[1]; !ok || !strings.Contains(reason, "Bogus") {
		t.Errorf("payload index 1 should be rejected for its classifier: %+v", result.Rejected)
	}
}

func TestImportRecordsOwnerScope(t *testing.T) {
	svc, _, _ := newRecordService(t)

	body := strings.NewReader(`{"earnings": [
		{"amount": "45.00", "date": "2024-03-01", "type": "Online", "driverId": "drv-1"},
		{"amount": "12.50", "date": "2024-03-02", "type": "Cash", "driverId": "drv-2"}
	]}`)

	result, err := svc.ImportRecords(context.Background(), core.KindEarning, "drv-1", body)
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	if len(result.Stored) != 1 {
		t.Fatalf("Stored = %v, want 1 id", result.Stored)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Index != 1 {
		t.Fatalf("Rejected = %+v, want the second payload entry rejected", result.Rejected)
	}

	stored, err := svc.ListRecords(context.Background(), core.KindEarning, core.FilterSpec{OwnerID: "drv-1"})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(stored) != 1 || stored[0].OwnerID != "drv-1" {
		t.Fatalf("stored records = %+v, want one owned by drv-1", stored)
	}
}

func TestDeleteRecordOwnerScope(t *testing.T) {
	svc, _, _ := newRecordService(t)
	ctx := context.Background()

	mine := validRecord()
	mineID, err := svc.CreateRecord(ctx, mine)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	other := validRecord()
	other.OwnerID = "drv-2"
	otherID, err := svc.CreateRecord(ctx, other)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	// A driver cannot delete another driver's record.
	if err := svc.DeleteRecord(ctx, otherID, "drv-1"); !errors.Is(err, ledger.ErrRecordNotFound) {
		t.Fatalf("DeleteRecord foreign = %v, want ErrRecordNotFound", err)
	}

	// Their own record deletes fine.
	if err := svc.DeleteRecord(ctx, mineID, "drv-1"); err != nil {
		t.Fatalf("DeleteRecord own: %v", err)
	}

	// Managers pass an empty scope.
	if err := svc.DeleteRecord(ctx, otherID, ""); err != nil {
		t.Fatalf("DeleteRecord unscoped: %v", err)
	}
}

func TestFeedToday(t *testing.T) {
	svc, _, _ := newRecordService(t)
	ctx := context.Background()

	today := validRecord()
	today.OccurredOn = core.Today()
	if _, err := svc.CreateRecord(ctx, today); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	old := validRecord()
	old.OccurredOn = "2020-01-01"
	if _, err := svc.CreateRecord(ctx, old); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	feed, err := svc.FeedToday(ctx, "drv-1")
	if err != nil {
		t.Fatalf("FeedToday: %v", err)
	}
	if len(feed.Today) != 1 {
		t.Errorf("Today = %+v, want 1 record", feed.Today)
	}
	if len(feed.Other) != 1 {
		t.Errorf("Other = %+v, want 1 record", feed.Other)
	}
}
