package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Field is a labelled line on a receipt.
type Field struct {
	Label string
	Value string
}

// Receipt describes a single-page payment receipt.
type Receipt struct {
	Title  string
	Issuer string
	Fields []Field
	Footer string
}

// PDFExporter renders receipts into PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt lays the receipt out as a two-column table on an A4 page.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if len(r.Fields) == 0 {
		return nil, fmt.Errorf("receipt requires at least one field")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	if r.Issuer != "" {
		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(0, 10, r.Issuer, "", 1, "L", false, 0, "")
	}
	if r.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 9, strings.ToUpper(r.Title), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, f := range r.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 8, f.Label, "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(125, 8, f.Value, "1", 1, "", false, 0, "")
	}

	if r.Footer != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, r.Footer, "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
