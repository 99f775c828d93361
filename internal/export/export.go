package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"fleetledger/internal/statement"
)

// Supported export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Build renders a statement document in the requested format.
func Build(format string, doc *statement.Document) ([]byte, error) {
	switch format {
	case FormatPDF:
		return BuildStatementPDF(doc)
	case FormatXLSX:
		return BuildStatementXLSX(doc)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// BuildStatementPDF renders a driver statement as a PDF.
func BuildStatementPDF(doc *statement.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, doc.Title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Driver: %s", driverLabel(doc)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", doc.PeriodFrom, doc.PeriodTo))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", doc.GeneratedOn))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", doc.RecordCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total: %s", doc.TotalAmount))
	pdf.Ln(8)

	// Rows table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Classifier", "1", 0, "C", false, 0, "")
	pdf.CellFormat(75, 6, "Note", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range doc.Rows {
		pdf.CellFormat(30, 6, row.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, row.Classifier, "1", 0, "L", false, 0, "")
		pdf.CellFormat(75, 6, row.Note, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, row.Amount, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatementXLSX renders a driver statement as an XLSX workbook with a
// summary sheet and a rows sheet.
func BuildStatementXLSX(doc *statement.Document) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	rowsSheet := "records"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(rowsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", doc.Title)
	_ = f.SetCellValue(summarySheet, "A3", "Driver")
	_ = f.SetCellValue(summarySheet, "B3", driverLabel(doc))
	_ = f.SetCellValue(summarySheet, "A4", "Period From")
	_ = f.SetCellValue(summarySheet, "B4", doc.PeriodFrom)
	_ = f.SetCellValue(summarySheet, "A5", "Period To")
	_ = f.SetCellValue(summarySheet, "B5", doc.PeriodTo)
	_ = f.SetCellValue(summarySheet, "A6", "Generated")
	_ = f.SetCellValue(summarySheet, "B6", doc.GeneratedOn)
	_ = f.SetCellValue(summarySheet, "A7", "Records")
	_ = f.SetCellValue(summarySheet, "B7", doc.RecordCount)
	_ = f.SetCellValue(summarySheet, "A8", "Total")
	_ = f.SetCellValue(summarySheet, "B8", doc.TotalAmount)

	_ = f.SetCellValue(rowsSheet, "A1", "Date")
	_ = f.SetCellValue(rowsSheet, "B1", "Classifier")
	_ = f.SetCellValue(rowsSheet, "C1", "Note")
	_ = f.SetCellValue(rowsSheet, "D1", "Amount")
	for i, row := range doc.Rows {
		n := i + 2
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("A%d", n), row.Date)
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("B%d", n), row.Classifier)
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("C%d", n), row.Note)
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("D%d", n), row.Amount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func driverLabel(doc *statement.Document) string {
	if doc.OwnerName != "" {
		return doc.OwnerName
	}
	return doc.OwnerID
}
