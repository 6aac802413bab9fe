package export

import (
	"fmt"
	"strings"
)

// QuoteText renders a plain-text summary suitable for email bodies or chat.
func QuoteText(d QuoteDocument) string {
	var b strings.Builder
	bd := d.Estimate.Breakdown

	fmt.Fprintf(&b, "%s\n", d.displayTitle())
	fmt.Fprintf(&b, "Reference: %s\n", d.Reference)
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", d.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Total: %.2f %s (%s tier, VAT included)\n\n", d.Total, d.Currency, d.Tier)

	b.WriteString("Filaments:\n")
	for _, f := range d.Request.Filaments {
		fmt.Fprintf(&b, "- %s: %.1f g @ %.2f %s/kg\n", f.Material, f.Weight, f.CostPerKg, d.Currency)
	}

	b.WriteString("\nCost breakdown:\n")
	fmt.Fprintf(&b, "- Material: %.2f\n", bd.MaterialCost)
	fmt.Fprintf(&b, "- Labor: %.2f\n", bd.LaborCost)
	fmt.Fprintf(&b, "- Machine: %.2f\n", bd.MachineCost)
	fmt.Fprintf(&b, "- Hardware: %.2f\n", bd.HardwareCost)
	fmt.Fprintf(&b, "- Packaging: %.2f\n", bd.PackagingCost)
	fmt.Fprintf(&b, "- Landed cost: %.2f\n", bd.BaseLanded)
	fmt.Fprintf(&b, "- Buffered cost: %.2f\n", bd.BufferedCost)

	b.WriteString("\nSuggested prices:\n")
	for _, row := range d.tierRows() {
		fmt.Fprintf(&b, "- %s (%.0f%%): %.2f / %.2f with VAT\n", row.Name, row.Margin, row.Price, row.PriceVat)
	}

	b.WriteString("\nAssumptions:\n")
	fmt.Fprintf(&b, "- Print time: %.2f h\n", d.Estimate.PrinterMetrics.TotalPrintHours)
	fmt.Fprintf(&b, "- Machine rate: %.4f %s/h\n", d.Estimate.PrinterMetrics.HourlyRate, d.Currency)
	fmt.Fprintf(&b, "- VAT: %.2f%%\n", d.Request.VatRate)
	if d.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", d.Notes)
	}
	return b.String()
}
