package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/printshop/internal/cache"
	"github.com/Simplici0/printshop/internal/metrics"
	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/store"
)

type server struct {
	auth      *authService
	store     *store.Store
	estimator *pricing.Estimator
	materials cache.Materials
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func (s *server) routes(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Post("/api/login", s.handleLogin)
	r.Post("/api/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/api/me", s.handleMe)

		r.Post("/api/pricing/final", s.handleFinalPrice)
		r.Post("/api/pricing/estimate", s.handleEstimate)
		r.Get("/api/pricing/tiers", s.handleTiers)

		r.Get("/api/settings", s.handleSettingsGet)
		r.Get("/api/settings/template", s.handleSettingsTemplate)
		r.Get("/api/materials", s.handleMaterialsList)
		r.Get("/api/materials/{id}", s.handleMaterialGet)

		r.Get("/api/quotes", s.handleQuotesList)
		r.Post("/api/quotes", s.handleQuoteCreate)
		r.Get("/api/quotes/export.xlsx", s.handleQuotesExport)
		r.Get("/api/quotes/{id}", s.handleQuoteGet)
		r.Get("/api/quotes/{id}/pdf", s.handleQuotePDF)
		r.Get("/api/quotes/{id}/text", s.handleQuoteText)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Put("/api/settings", s.handleSettingsUpdate)
			r.Post("/api/materials", s.handleMaterialCreate)
			r.Put("/api/materials/{id}", s.handleMaterialUpdate)
		})
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
