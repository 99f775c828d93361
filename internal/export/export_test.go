package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"fleetledger/internal/statement"
)

func sampleDocument() *statement.Document {
	return &statement.Document{
		ID:          "stmt-1",
		Title:       "Driver statement - Dana",
		GeneratedOn: "2024-03-10",
		OwnerID:     "drv-1",
		OwnerName:   "Dana",
		PeriodFrom:  "2024-03-01",
		PeriodTo:    "2024-03-10",
		Rows: []statement.Row{
			{Date: "2024-03-02", Classifier: "Online", Note: "airport run", Amount: "45.00"},
			{Date: "2024-03-01", Classifier: "Cash", Note: "", Amount: "12.50"},
		},
		TotalCents:  5750,
		TotalAmount: "57.50",
		RecordCount: 2,
	}
}

func TestBuildStatementPDF(t *testing.T) {
	data, err := BuildStatementPDF(sampleDocument())
	if err != nil {
		t.Fatalf("BuildStatementPDF: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty PDF output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header: %q", data[:8])
	}
}

func TestBuildStatementXLSX(t *testing.T) {
	data, err := BuildStatementXLSX(sampleDocument())
	if err != nil {
		t.Fatalf("BuildStatementXLSX: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty XLSX output")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	total, err := f.GetCellValue("summary", "B8")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if total != "57.50" {
		t.Errorf("summary total = %q, want 57.50", total)
	}

	date, err := f.GetCellValue("records", "A2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if date != "2024-03-02" {
		t.Errorf("first row date = %q, want 2024-03-02", date)
	}
}

func TestBuild(t *testing.T) {
	doc := sampleDocument()

	if _, err := Build(FormatPDF, doc); err != nil {
		t.Errorf("Build(pdf): %v", err)
	}
	if _, err := Build(FormatXLSX, doc); err != nil {
		t.Errorf("Build(xlsx): %v", err)
	}
	if _, err := Build("csv", doc); err == nil {
		t.Error("Build(csv) should fail, format not supported")
	}
}
