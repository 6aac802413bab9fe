package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/printshop/internal/store"
)

const quotesSheet = "Quotes"

// QuotesXLSX writes the quote list as a single-sheet workbook.
func QuotesXLSX(w io.Writer, quotes []store.QuoteSummary, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), quotesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Reference", "Created", "Title", "Total (" + currency + ")"}
	if err := f.SetSheetRow(quotesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, q := range quotes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+2, err)
		}
		row := []any{q.Reference, q.CreatedAt.Format("2006-01-02 15:04:05"), q.Title, q.Total}
		if err := f.SetSheetRow(quotesSheet, cell, &row); err != nil {
			return fmt.Errorf("write quote row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(quotesSheet, "A", "A", 38); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
