package main

import (
	"net/http"

	"github.com/Simplici0/printshop/internal/store"
)

func (s *server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleSettingsTemplate returns an estimate request prefilled with the shop defaults.
func (s *server) handleSettingsTemplate(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings.Template())
}

func (s *server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var in store.PricingSettings
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}

	if err := s.store.Settings.Update(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
