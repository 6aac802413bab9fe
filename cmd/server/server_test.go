package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Simplici0/printshop/internal/cache"
	"github.com/Simplici0/printshop/internal/db"
	"github.com/Simplici0/printshop/internal/metrics"
	"github.com/Simplici0/printshop/internal/migrations"
	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/store"
)

const (
	adminEmail    = "admin@example.com"
	customerEmail = "customer@example.com"
	testPassword  = "s3cret-pass"
)

type testEnv struct {
	srv     *server
	handler http.Handler
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Up(ctx, database))

	st := store.New(database)
	_, err = st.Users.Create(ctx, adminEmail, testPassword, store.RoleAdmin)
	require.NoError(t, err)
	_, err = st.Users.Create(ctx, customerEmail, testPassword, store.RoleCustomer)
	require.NoError(t, err)

	estimator, err := pricing.NewEstimator(pricing.DefaultTiers())
	require.NoError(t, err)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	srv := &server{
		auth:      newAuthService(st.Users, "test-secret"),
		store:     st,
		estimator: estimator,
		materials: cache.Noop{},
		metrics:   m,
		logger:    zap.NewNop(),
	}
	return &testEnv{srv: srv, handler: srv.routes(nil)}
}

func (e *testEnv) sessionCookie(email string) *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: e.srv.auth.createSessionValue(email)}
}

// do sends body (JSON-encoded unless nil) as the given user; an empty email
// sends no session cookie.
func (e *testEnv) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.AddCookie(e.sessionCookie(email))
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out errorResponse
	decodeBody(t, rec, &out)
	return out.Error
}

func sampleRequest() pricing.EstimateRequest {
	return pricing.EstimateRequest{
		Filaments: []pricing.FilamentInput{
			{Material: "PLA", CostPerKg: 20, Weight: 150},
			{Material: "PETG", CostPerKg: 25, Weight: 40},
		},
		PrintHours:    5,
		PrintMins:     30,
		LaborMins:     30,
		HardwareCost:  1.5,
		PackagingCost: 0.6,
		VatRate:       23,
		LaborRate:     20,
		Efficiency:    1.1,
		PrinterCost:   800,
		UpfrontCost:   100,
		Maintenance:   100,
		PrinterLife:   2,
		Uptime:        50,
		PowerW:        200,
		EnergyRate:    0.25,
		BufferFactor:  1.2,
		CustomMargin:  10,
	}
}

func TestHealthz(t *testing.T) {
	env := newTestServer(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: adminEmail, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie not set")
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	env.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var user store.User
	decodeBody(t, me, &user)
	assert.Equal(t, adminEmail, user.Email)
	assert.Equal(t, store.RoleAdmin, user.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: adminEmail, Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorMessage(t, rec))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/pricing/final", "", finalPriceRequest{Base: 100})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorMessage(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "forged.0.00"})
	forged := httptest.NewRecorder()
	env.handler.ServeHTTP(forged, req)
	assert.Equal(t, http.StatusUnauthorized, forged.Code)
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/materials", customerEmail, materialRequest{Name: "ABS", CostPerKg: 18})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/materials", adminEmail, materialRequest{Name: "ABS", CostPerKg: 18})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestFinalPrice(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/pricing/final", customerEmail, finalPriceRequest{Base: 100, Margin: 20, Tax: 23})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out finalPriceResponse
	decodeBody(t, rec, &out)
	assert.InDelta(t, 147.60, out.FinalPrice, 1e-9)

	rec = env.do(t, http.MethodPost, "/api/pricing/final", customerEmail, finalPriceRequest{Base: -1, Margin: 20, Tax: 23})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid base price", errorMessage(t, rec))
}

func TestEstimate(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/pricing/estimate", customerEmail, sampleRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est pricing.Estimate
	decodeBody(t, rec, &est)
	assert.InDelta(t, 20.88, est.Breakdown.BufferedCost, 1e-9)
	assert.InDelta(t, 35.95, est.SuggestedPrices["standard"].PriceVat, 1e-9)
	assert.InDelta(t, 28.25, est.SuggestedPrices[pricing.CustomTier].PriceVat, 1e-9)
}

func TestHugeInputsAreRejectedWithJSONError(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/pricing/final", customerEmail, finalPriceRequest{Base: 1e308, Margin: 100, Tax: 23})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "value out of range", errorMessage(t, rec))

	req := sampleRequest()
	req.Filaments[0].Weight = 1e308
	rec = env.do(t, http.MethodPost, "/api/pricing/estimate", customerEmail, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "value out of range", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/quotes", customerEmail, quoteRequest{Title: "big", Request: req})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "value out of range", errorMessage(t, rec))
}

func TestWriteJSONReportsEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"price": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", errorMessage(t, rec))
}

func TestEstimateValidationErrors(t *testing.T) {
	env := newTestServer(t)

	cases := []struct {
		name   string
		mutate func(*pricing.EstimateRequest)
		want   string
	}{
		{"no filaments", func(r *pricing.EstimateRequest) { r.Filaments = nil }, "at least one filament is required"},
		{"uptime", func(r *pricing.EstimateRequest) { r.Uptime = 0 }, "invalid uptime (1–100)"},
		{"printer life", func(r *pricing.EstimateRequest) { r.PrinterLife = 0 }, "invalid printer lifetime"},
		{"buffer", func(r *pricing.EstimateRequest) { r.BufferFactor = 0.5 }, "buffer factor must be >= 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRequest()
			tc.mutate(&req)

			rec := env.do(t, http.MethodPost, "/api/pricing/estimate", customerEmail, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, errorMessage(t, rec))
		})
	}
}

func TestEstimateMalformedJSON(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/pricing/estimate", strings.NewReader("{"))
	req.AddCookie(env.sessionCookie(customerEmail))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", errorMessage(t, rec))
}

func TestTiers(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/pricing/tiers", customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tiers pricing.Tiers
	decodeBody(t, rec, &tiers)
	assert.Equal(t, pricing.DefaultTiers(), tiers)
}

func TestEstimateResolvesCatalogMaterial(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/materials", adminEmail, materialRequest{Name: "PETG black", CostPerKg: 25})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mat store.Material
	decodeBody(t, rec, &mat)

	req := pricing.EstimateRequest{
		Filaments:    []pricing.FilamentInput{{MaterialID: mat.ID, Weight: 100}},
		Efficiency:   1,
		PrinterLife:  3,
		Uptime:       50,
		BufferFactor: 1,
	}
	rec = env.do(t, http.MethodPost, "/api/pricing/estimate", customerEmail, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est pricing.Estimate
	decodeBody(t, rec, &est)
	assert.InDelta(t, 2.5, est.Breakdown.MaterialCost, 1e-9)

	req.Filaments[0].MaterialID = 999
	rec = env.do(t, http.MethodPost, "/api/pricing/estimate", customerEmail, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown material 999", errorMessage(t, rec))

	inactive := false
	path := fmt.Sprintf("/api/materials/%d", mat.ID)
	rec = env.do(t, http.MethodPut, path, adminEmail, materialRequest{Name: "PETG black", CostPerKg: 25, Active: &inactive})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req.Filaments[0].MaterialID = mat.ID
	rec = env.do(t, http.MethodPost, "/api/pricing/estimate", customerEmail, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, fmt.Sprintf("material %d is inactive", mat.ID), errorMessage(t, rec))
}

func TestMaterialValidationAndNotFound(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/materials", adminEmail, materialRequest{Name: " ", CostPerKg: 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/materials", adminEmail, materialRequest{Name: "PLA", CostPerKg: 0})
	assert.Equal(t, "costPerKg must be > 0", errorMessage(t, rec))

	rec = env.do(t, http.MethodGet, "/api/materials/42", customerEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/materials/abc", customerEmail, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid material id", errorMessage(t, rec))
}

func TestSettingsUpdate(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/settings", customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings store.PricingSettings
	decodeBody(t, rec, &settings)

	settings.Uptime = 0
	rec = env.do(t, http.MethodPut, "/api/settings", adminEmail, settings)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "uptime must be between 1 and 100", errorMessage(t, rec))

	settings.Uptime = 75
	settings.LaborRate = 30
	rec = env.do(t, http.MethodPut, "/api/settings", adminEmail, settings)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/settings/template", customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tmpl pricing.EstimateRequest
	decodeBody(t, rec, &tmpl)
	assert.InDelta(t, 75, tmpl.Uptime, 1e-9)
	assert.InDelta(t, 30, tmpl.LaborRate, 1e-9)
}

func TestQuoteLifecycle(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/quotes", customerEmail, quoteRequest{
		Title:   "Keychains",
		Notes:   "deliver friday",
		Request: sampleRequest(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var quote store.Quote
	decodeBody(t, rec, &quote)
	assert.Equal(t, store.DefaultQuoteTier, quote.Tier)
	assert.InDelta(t, 35.95, quote.Total, 1e-9)
	require.NotEmpty(t, quote.Reference)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/quotes/%d", quote.ID), customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byID store.Quote
	decodeBody(t, rec, &byID)
	assert.Equal(t, quote.Estimate, byID.Estimate)

	rec = env.do(t, http.MethodGet, "/api/quotes/"+quote.Reference, customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/quotes/%d/text", quote.ID), customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reference: "+quote.Reference)
	assert.Contains(t, rec.Body.String(), "Keychains")

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/quotes/%d/pdf", quote.ID), customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = env.do(t, http.MethodGet, "/api/quotes?q=keychain", customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.QuoteSummary
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, quote.ID, list[0].ID)

	rec = env.do(t, http.MethodGet, "/api/quotes/export.xlsx", customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Quotes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, quote.Reference, rows[1][0])

	rec = env.do(t, http.MethodGet, "/api/quotes/999", customerEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuoteCreateRejectsInvalidRequest(t *testing.T) {
	env := newTestServer(t)

	req := sampleRequest()
	req.Filaments = nil
	rec := env.do(t, http.MethodPost, "/api/quotes", customerEmail, quoteRequest{Title: "x", Request: req})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "at least one filament is required", errorMessage(t, rec))

	rec = env.do(t, http.MethodGet, "/api/quotes", customerEmail, nil)
	var list []store.QuoteSummary
	decodeBody(t, rec, &list)
	assert.Empty(t, list)
}

func TestSessionValueExpires(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &authService{sessionSecret: []byte("k"), now: func() time.Time { return now }}

	value := a.createSessionValue(adminEmail)
	email, ok := a.verifySessionValue(value)
	require.True(t, ok)
	assert.Equal(t, adminEmail, email)

	other := &authService{sessionSecret: []byte("other"), now: a.now}
	_, ok = other.verifySessionValue(value)
	assert.False(t, ok, "signature from another secret")

	now = now.Add(sessionTTL + time.Second)
	_, ok = a.verifySessionValue(value)
	assert.False(t, ok, "expired")
}
