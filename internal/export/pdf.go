package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Page layout constants (A4 portrait in mm).
const (
	pdfMarginLeft  = 15.0
	pdfMarginTop   = 15.0
	pdfMarginRight = 15.0
	pdfContentW    = 210.0 - pdfMarginLeft - pdfMarginRight
	pdfRowH        = 7.0
)

// QuotePDF writes the quote as a single A4 page.
func QuotePDF(w io.Writer, d QuoteDocument) error {
	if len(d.Estimate.SuggestedPrices) == 0 {
		return fmt.Errorf("quote %s has no suggested prices", d.Reference)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginRight)
	pdf.SetTitle(d.displayTitle(), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	renderHeader(pdf, tr, d)
	renderFilaments(pdf, tr, d)
	renderBreakdown(pdf, d)
	renderPrices(pdf, tr, d)
	if d.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(pdfContentW, 5, tr("Notes: "+d.Notes), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render quote pdf: %w", err)
	}
	return nil
}

func renderHeader(pdf *fpdf.Fpdf, tr func(string) string, d QuoteDocument) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pdfContentW, 10, tr(d.displayTitle()), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	meta := "Reference " + d.Reference
	if !d.CreatedAt.IsZero() {
		meta += "  |  " + d.CreatedAt.Format("2006-01-02 15:04")
	}
	pdf.CellFormat(pdfContentW, 5, meta, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pdfContentW, 8, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func renderFilaments(pdf *fpdf.Fpdf, tr func(string) string, d QuoteDocument) {
	sectionTitle(pdf, "Filaments")
	cols := []float64{pdfContentW * 0.5, pdfContentW * 0.25, pdfContentW * 0.25}

	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(cols[0], pdfRowH, "Material", "", 0, "L", true, 0, "")
	pdf.CellFormat(cols[1], pdfRowH, "Weight (g)", "", 0, "R", true, 0, "")
	pdf.CellFormat(cols[2], pdfRowH, fmt.Sprintf("%s/kg", d.Currency), "", 1, "R", true, 0, "")
	for _, f := range d.Request.Filaments {
		pdf.CellFormat(cols[0], pdfRowH, tr(f.Material), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], pdfRowH, fmt.Sprintf("%.1f", f.Weight), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], pdfRowH, fmt.Sprintf("%.2f", f.CostPerKg), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func renderBreakdown(pdf *fpdf.Fpdf, d QuoteDocument) {
	sectionTitle(pdf, "Cost breakdown")
	bd := d.Estimate.Breakdown
	lines := []struct {
		label string
		value float64
	}{
		{"Material", bd.MaterialCost},
		{"Labor", bd.LaborCost},
		{"Machine", bd.MachineCost},
		{"Hardware", bd.HardwareCost},
		{"Packaging", bd.PackagingCost},
		{"Landed cost", bd.BaseLanded},
		{"Buffered cost", bd.BufferedCost},
	}
	for _, l := range lines {
		pdf.CellFormat(pdfContentW*0.7, pdfRowH, l.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(pdfContentW*0.3, pdfRowH, fmt.Sprintf("%.2f %s", l.value, d.Currency), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func renderPrices(pdf *fpdf.Fpdf, tr func(string) string, d QuoteDocument) {
	sectionTitle(pdf, "Suggested prices")
	cols := []float64{pdfContentW * 0.4, pdfContentW * 0.2, pdfContentW * 0.2, pdfContentW * 0.2}

	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(cols[0], pdfRowH, "Tier", "", 0, "L", true, 0, "")
	pdf.CellFormat(cols[1], pdfRowH, "Margin", "", 0, "R", true, 0, "")
	pdf.CellFormat(cols[2], pdfRowH, "Price", "", 0, "R", true, 0, "")
	pdf.CellFormat(cols[3], pdfRowH, "With VAT", "", 1, "R", true, 0, "")

	for _, row := range d.tierRows() {
		style := ""
		if row.Name == d.Tier {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(cols[0], pdfRowH, tr(row.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], pdfRowH, fmt.Sprintf("%.1f%%", row.Margin), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], pdfRowH, fmt.Sprintf("%.2f", row.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], pdfRowH, fmt.Sprintf("%.2f", row.PriceVat), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(pdfContentW, 9, fmt.Sprintf("Total: %.2f %s", d.Total, d.Currency), "T", 1, "R", false, 0, "")
}
