package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/printshop/internal/pricing"
)

// DefaultQuoteTier is the tier whose VAT-inclusive price becomes a quote's total.
const DefaultQuoteTier = "standard"

// NewQuote is the input of Quotes.Create.
type NewQuote struct {
	Title    string
	Notes    string
	Tier     string
	Request  pricing.EstimateRequest
	Estimate pricing.Estimate
}

// Quote is a saved estimate snapshot. Reading it never recalculates.
type Quote struct {
	ID        int64                   `json:"id"`
	Reference string                  `json:"reference"`
	CreatedAt time.Time               `json:"createdAt"`
	Title     string                  `json:"title"`
	Notes     string                  `json:"notes"`
	Tier      string                  `json:"tier"`
	Total     float64                 `json:"total"`
	Request   pricing.EstimateRequest `json:"request"`
	Estimate  pricing.Estimate        `json:"estimate"`
}

// QuoteSummary is one row of the quotes list.
type QuoteSummary struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"createdAt"`
	Title     string    `json:"title"`
	Total     float64   `json:"total"`
}

// Quotes is the saved quotes repository.
type Quotes struct {
	db  *sql.DB
	now func() time.Time
}

// NewQuotes returns a repository stamping created_at with now.
func NewQuotes(db *sql.DB, now func() time.Time) *Quotes {
	return &Quotes{db: db, now: now}
}

// Create stores the snapshot under a fresh reference. The total is the priceVat of
// the requested tier, falling back to the custom tier when the tier is unknown.
func (q *Quotes) Create(ctx context.Context, in NewQuote) (Quote, error) {
	tier := strings.TrimSpace(in.Tier)
	if tier == "" {
		tier = DefaultQuoteTier
	}
	price, ok := in.Estimate.SuggestedPrices[tier]
	if !ok {
		tier = pricing.CustomTier
		price = in.Estimate.SuggestedPrices[tier]
	}

	requestJSON, err := json.Marshal(in.Request)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote request: %w", err)
	}
	estimateJSON, err := json.Marshal(in.Estimate)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote estimate: %w", err)
	}

	quote := Quote{
		Reference: uuid.NewString(),
		CreatedAt: q.now().UTC().Truncate(time.Second),
		Title:     strings.TrimSpace(in.Title),
		Notes:     strings.TrimSpace(in.Notes),
		Tier:      tier,
		Total:     price.PriceVat,
		Request:   in.Request,
		Estimate:  in.Estimate,
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO quotes (reference, created_at, title, notes, tier, request_json, estimate_json, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, quote.Reference, formatTime(quote.CreatedAt), quote.Title, quote.Notes, quote.Tier,
		string(requestJSON), string(estimateJSON), quote.Total)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	if quote.ID, err = res.LastInsertId(); err != nil {
		return Quote{}, fmt.Errorf("insert quote id: %w", err)
	}
	return quote, nil
}

// Get returns a quote by id.
func (q *Quotes) Get(ctx context.Context, id int64) (Quote, error) {
	return q.getWhere(ctx, "id = ?", id)
}

// GetByReference returns a quote by its public reference.
func (q *Quotes) GetByReference(ctx context.Context, reference string) (Quote, error) {
	return q.getWhere(ctx, "reference = ?", reference)
}

func (q *Quotes) getWhere(ctx context.Context, where string, arg any) (Quote, error) {
	var (
		quote        Quote
		createdAt    string
		requestJSON  string
		estimateJSON string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, reference, created_at, COALESCE(title, ''), COALESCE(notes, ''), tier,
			request_json, estimate_json, total
		FROM quotes
		WHERE `+where, arg).Scan(
		&quote.ID,
		&quote.Reference,
		&createdAt,
		&quote.Title,
		&quote.Notes,
		&quote.Tier,
		&requestJSON,
		&estimateJSON,
		&quote.Total,
	)
	if err != nil {
		return Quote{}, notFound(err, "quote")
	}
	quote.CreatedAt = parseTime(createdAt)

	if err := json.Unmarshal([]byte(requestJSON), &quote.Request); err != nil {
		return Quote{}, fmt.Errorf("decode quote request: %w", err)
	}
	if err := json.Unmarshal([]byte(estimateJSON), &quote.Estimate); err != nil {
		return Quote{}, fmt.Errorf("decode quote estimate: %w", err)
	}
	return quote, nil
}

// List returns quotes newest first. A non-empty query filters on title and notes.
func (q *Quotes) List(ctx context.Context, query string) ([]QuoteSummary, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, reference, created_at, COALESCE(title, ''), total
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY created_at DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]QuoteSummary, 0)
	for rows.Next() {
		var (
			item      QuoteSummary
			createdAt string
		)
		if err := rows.Scan(&item.ID, &item.Reference, &createdAt, &item.Title, &item.Total); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.CreatedAt = parseTime(createdAt)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}
