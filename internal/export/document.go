// Package export renders saved quotes as PDF, spreadsheet and plain text documents.
package export

import (
	"sort"
	"time"

	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/store"
)

// QuoteDocument is everything a rendered quote shows.
type QuoteDocument struct {
	Reference string
	CreatedAt time.Time
	Title     string
	Notes     string
	Currency  string
	Tier      string
	Total     float64
	Request   pricing.EstimateRequest
	Estimate  pricing.Estimate
}

// FromQuote builds a document from a stored quote snapshot.
func FromQuote(q store.Quote, currency string) QuoteDocument {
	return QuoteDocument{
		Reference: q.Reference,
		CreatedAt: q.CreatedAt,
		Title:     q.Title,
		Notes:     q.Notes,
		Currency:  currency,
		Tier:      q.Tier,
		Total:     q.Total,
		Request:   q.Request,
		Estimate:  q.Estimate,
	}
}

type tierRow struct {
	Name string
	pricing.TierPrice
}

// tierRows orders tiers by price, then name, so documents are stable.
func (d QuoteDocument) tierRows() []tierRow {
	rows := make([]tierRow, 0, len(d.Estimate.SuggestedPrices))
	for name, p := range d.Estimate.SuggestedPrices {
		rows = append(rows, tierRow{Name: name, TierPrice: p})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Price != rows[j].Price {
			return rows[i].Price < rows[j].Price
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func (d QuoteDocument) displayTitle() string {
	if d.Title == "" {
		return "Quote " + d.Reference
	}
	return d.Title
}
