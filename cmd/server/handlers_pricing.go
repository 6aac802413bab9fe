package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Simplici0/printshop/internal/metrics"
	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/store"
)

type finalPriceRequest struct {
	Base   float64 `json:"base"`
	Margin float64 `json:"margin"`
	Tax    float64 `json:"tax"`
}

type finalPriceResponse struct {
	FinalPrice float64 `json:"finalPrice"`
}

func (s *server) handleFinalPrice(w http.ResponseWriter, r *http.Request) {
	var in finalPriceRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	price, err := pricing.CalculateFinalPrice(in.Base, in.Margin, in.Tax)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalPriceResponse{FinalPrice: price})
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req pricing.EstimateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	est, err := s.estimate(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.estimator.Tiers())
}

// estimate fills catalog prices into req and runs the estimator.
func (s *server) estimate(ctx context.Context, req *pricing.EstimateRequest) (pricing.Estimate, error) {
	if err := s.resolveFilaments(ctx, req.Filaments); err != nil {
		return pricing.Estimate{}, err
	}

	est, err := s.estimator.CalculateFullPrice(*req)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidInput) {
			s.metrics.ObserveEstimate(metrics.ResultInvalid)
		}
		return pricing.Estimate{}, err
	}
	s.metrics.ObserveEstimate(metrics.ResultOK)
	return est, nil
}

// resolveFilaments fills costPerKg (and the label, when empty) from the catalog
// for filaments that reference a material and carry no explicit cost.
func (s *server) resolveFilaments(ctx context.Context, filaments []pricing.FilamentInput) error {
	for i := range filaments {
		f := &filaments[i]
		if f.MaterialID <= 0 || f.CostPerKg != 0 {
			continue
		}

		m, err := s.material(ctx, f.MaterialID)
		if errors.Is(err, store.ErrNotFound) {
			return badRequest(fmt.Sprintf("unknown material %d", f.MaterialID))
		}
		if err != nil {
			return err
		}
		if !m.Active {
			return badRequest(fmt.Sprintf("material %d is inactive", f.MaterialID))
		}

		f.CostPerKg = m.CostPerKg
		if f.Material == "" {
			f.Material = m.Name
		}
	}
	return nil
}

// material reads through the cache.
func (s *server) material(ctx context.Context, id int64) (store.Material, error) {
	if m, ok := s.materials.Get(ctx, id); ok {
		return m, nil
	}
	m, err := s.store.Materials.Get(ctx, id)
	if err != nil {
		return store.Material{}, err
	}
	s.materials.Set(ctx, m)
	return m, nil
}
