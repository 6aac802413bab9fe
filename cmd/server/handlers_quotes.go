package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/printshop/internal/export"
	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/store"
)

type quoteRequest struct {
	Title   string                  `json:"title"`
	Notes   string                  `json:"notes"`
	Tier    string                  `json:"tier"`
	Request pricing.EstimateRequest `json:"request"`
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.Quotes.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var in quoteRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	est, err := s.estimate(r.Context(), &in.Request)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	quote, err := s.store.Quotes.Create(r.Context(), store.NewQuote{
		Title:    in.Title,
		Notes:    in.Notes,
		Tier:     in.Tier,
		Request:  in.Request,
		Estimate: est,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("quote saved",
		zap.Int64("quote_id", quote.ID),
		zap.String("reference", quote.Reference),
		zap.Float64("total", quote.Total))
	writeJSON(w, http.StatusCreated, quote)
}

// handleQuoteGet returns the stored snapshot; prices are never recalculated.
func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quoteFromURL(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	doc, err := s.quoteDocument(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.QuoteText(doc)))
}

func (s *server) handleQuotePDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.quoteDocument(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.QuotePDF(&buf, doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quote-%s.pdf"`, doc.Reference))
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleQuotesExport(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.Quotes.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	settings, err := s.store.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.QuotesXLSX(&buf, quotes, settings.Currency); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="quotes.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// quoteFromURL accepts either a numeric id or a quote reference.
func (s *server) quoteFromURL(r *http.Request) (store.Quote, error) {
	if raw := chi.URLParam(r, "id"); strings.Contains(raw, "-") {
		return s.store.Quotes.GetByReference(r.Context(), raw)
	}
	id, err := parseID(r, "quote")
	if err != nil {
		return store.Quote{}, err
	}
	return s.store.Quotes.Get(r.Context(), id)
}

func (s *server) quoteDocument(r *http.Request) (export.QuoteDocument, error) {
	quote, err := s.quoteFromURL(r)
	if err != nil {
		return export.QuoteDocument{}, err
	}
	settings, err := s.store.Settings.Get(r.Context())
	if err != nil {
		return export.QuoteDocument{}, err
	}
	return export.FromQuote(quote, settings.Currency), nil
}
