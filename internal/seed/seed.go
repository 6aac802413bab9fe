package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/printshop/internal/store"
)

const (
	defaultMaterialName      = "PLA (generic)"
	defaultMaterialCostPerKg = 20.0
	defaultCurrency          = "EUR"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	Currency      string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	steps := []func(context.Context, *sql.Tx, Config, *Stats) error{
		seedAdmin,
		ensureMaterial,
		ensurePricingSettings,
	}
	for _, step := range steps {
		if err := step(ctx, tx, cfg, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	return stats, nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, cfg.AdminEmail).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := store.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`,
		cfg.AdminEmail, hash, store.RoleAdmin); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureMaterial(ctx context.Context, tx *sql.Tx, _ Config, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM materials WHERE name = ? LIMIT 1)`, defaultMaterialName).Scan(&exists); err != nil {
		return fmt.Errorf("check default material existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO materials (name, cost_per_kg, notes, active)
		VALUES (?, ?, ?, ?)
	`, defaultMaterialName, defaultMaterialCostPerKg, "", true); err != nil {
		return fmt.Errorf("insert default material: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensurePricingSettings(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pricing_settings WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check pricing settings existence: %w", err)
	}
	if exists {
		return nil
	}

	currency := cfg.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pricing_settings (
			id,
			labor_rate,
			vat_rate,
			efficiency,
			printer_life,
			uptime,
			buffer_factor,
			currency
		)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`, 20, 23, 1.1, 3, 50, 1.1, currency); err != nil {
		return fmt.Errorf("insert pricing settings singleton: %w", err)
	}
	stats.Inserts++
	return nil
}
