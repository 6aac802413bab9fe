package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/printshop/internal/store"
)

type materialRequest struct {
	Name      string  `json:"name"`
	CostPerKg float64 `json:"costPerKg"`
	Notes     string  `json:"notes"`
	Active    *bool   `json:"active,omitempty"`
}

func (in materialRequest) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return badRequest("name is required")
	}
	if !(in.CostPerKg > 0) {
		return badRequest("costPerKg must be > 0")
	}
	return nil
}

func parseID(r *http.Request, what string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + what + " id")
	}
	return id, nil
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	materials, err := s.store.Materials.List(r.Context(), r.URL.Query().Get("active") == "1")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleMaterialGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "material")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.material(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleMaterialCreate(w http.ResponseWriter, r *http.Request) {
	var in materialRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.store.Materials.Create(r.Context(), store.Material{
		Name:      strings.TrimSpace(in.Name),
		CostPerKg: in.CostPerKg,
		Notes:     strings.TrimSpace(in.Notes),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *server) handleMaterialUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "material")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in materialRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	m := store.Material{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		CostPerKg: in.CostPerKg,
		Notes:     strings.TrimSpace(in.Notes),
		Active:    in.Active == nil || *in.Active,
	}
	if err := s.store.Materials.Update(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.materials.Invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, m)
}
