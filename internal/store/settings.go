package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Simplici0/printshop/internal/pricing"
)

// PricingSettings are the shop-wide defaults offered to the estimate form.
type PricingSettings struct {
	LaborRate    float64 `json:"laborRate"`
	VatRate      float64 `json:"vatRate"`
	Efficiency   float64 `json:"efficiency"`
	PrinterCost  float64 `json:"printerCost"`
	UpfrontCost  float64 `json:"upfrontCost"`
	Maintenance  float64 `json:"maintenance"`
	PrinterLife  float64 `json:"printerLife"`
	Uptime       float64 `json:"uptime"`
	PowerW       float64 `json:"powerW"`
	EnergyRate   float64 `json:"energyRate"`
	BufferFactor float64 `json:"bufferFactor"`
	Currency     string  `json:"currency"`
}

// Template returns an estimate request prefilled with these defaults and no filaments.
func (p PricingSettings) Template() pricing.EstimateRequest {
	return pricing.EstimateRequest{
		LaborRate:    p.LaborRate,
		VatRate:      p.VatRate,
		Efficiency:   p.Efficiency,
		PrinterCost:  p.PrinterCost,
		UpfrontCost:  p.UpfrontCost,
		Maintenance:  p.Maintenance,
		PrinterLife:  p.PrinterLife,
		Uptime:       p.Uptime,
		PowerW:       p.PowerW,
		EnergyRate:   p.EnergyRate,
		BufferFactor: p.BufferFactor,
	}
}

// Validate applies the same bounds the estimator enforces.
func (p PricingSettings) Validate() error {
	switch {
	case p.Uptime < 1 || p.Uptime > 100:
		return fmt.Errorf("uptime must be between 1 and 100")
	case p.PrinterLife <= 0:
		return fmt.Errorf("printerLife must be > 0")
	case p.BufferFactor < 1:
		return fmt.Errorf("bufferFactor must be >= 1")
	case strings.TrimSpace(p.Currency) == "":
		return fmt.Errorf("currency is required")
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"laborRate", p.LaborRate},
		{"vatRate", p.VatRate},
		{"efficiency", p.Efficiency},
		{"printerCost", p.PrinterCost},
		{"upfrontCost", p.UpfrontCost},
		{"maintenance", p.Maintenance},
		{"powerW", p.PowerW},
		{"energyRate", p.EnergyRate},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%s must be >= 0", f.name)
		}
	}
	return nil
}

// Settings is the pricing_settings singleton repository.
type Settings struct {
	db *sql.DB
}

// Ensure inserts the singleton row with column defaults when it is missing.
func (s *Settings) Ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO pricing_settings (id) VALUES (1)
		ON CONFLICT(id) DO NOTHING
	`); err != nil {
		return fmt.Errorf("insert default pricing_settings: %w", err)
	}
	return nil
}

// Get returns the singleton, creating it first if needed.
func (s *Settings) Get(ctx context.Context) (PricingSettings, error) {
	if err := s.Ensure(ctx); err != nil {
		return PricingSettings{}, err
	}

	var p PricingSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT labor_rate, vat_rate, efficiency, printer_cost, upfront_cost, maintenance,
			printer_life, uptime, power_w, energy_rate, buffer_factor, currency
		FROM pricing_settings
		WHERE id = 1
	`).Scan(
		&p.LaborRate,
		&p.VatRate,
		&p.Efficiency,
		&p.PrinterCost,
		&p.UpfrontCost,
		&p.Maintenance,
		&p.PrinterLife,
		&p.Uptime,
		&p.PowerW,
		&p.EnergyRate,
		&p.BufferFactor,
		&p.Currency,
	)
	if err != nil {
		return PricingSettings{}, notFound(err, "pricing_settings")
	}
	return p, nil
}

// Update overwrites the singleton.
func (s *Settings) Update(ctx context.Context, p PricingSettings) error {
	if err := s.Ensure(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE pricing_settings
		SET
			labor_rate = ?,
			vat_rate = ?,
			efficiency = ?,
			printer_cost = ?,
			upfront_cost = ?,
			maintenance = ?,
			printer_life = ?,
			uptime = ?,
			power_w = ?,
			energy_rate = ?,
			buffer_factor = ?,
			currency = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		p.LaborRate,
		p.VatRate,
		p.Efficiency,
		p.PrinterCost,
		p.UpfrontCost,
		p.Maintenance,
		p.PrinterLife,
		p.Uptime,
		p.PowerW,
		p.EnergyRate,
		p.BufferFactor,
		p.Currency,
	)
	if err != nil {
		return fmt.Errorf("update pricing_settings: %w", err)
	}
	return nil
}
