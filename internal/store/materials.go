package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Material is a filament in the catalog.
type Material struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	CostPerKg float64 `json:"costPerKg"`
	Notes     string  `json:"notes"`
	Active    bool    `json:"active"`
}

// Materials is the materials catalog repository.
type Materials struct {
	db *sql.DB
}

// List returns materials newest first, optionally only active ones.
func (m *Materials) List(ctx context.Context, activeOnly bool) ([]Material, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, cost_per_kg, COALESCE(notes, ''), active
		FROM materials
		WHERE (? = 0 OR active)
		ORDER BY id DESC
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	materials := make([]Material, 0)
	for rows.Next() {
		var mat Material
		if err := rows.Scan(&mat.ID, &mat.Name, &mat.CostPerKg, &mat.Notes, &mat.Active); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, mat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return materials, nil
}

// Get returns one material by id.
func (m *Materials) Get(ctx context.Context, id int64) (Material, error) {
	var mat Material
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, cost_per_kg, COALESCE(notes, ''), active
		FROM materials
		WHERE id = ?
	`, id).Scan(&mat.ID, &mat.Name, &mat.CostPerKg, &mat.Notes, &mat.Active)
	if err != nil {
		return Material{}, notFound(err, "material")
	}
	return mat, nil
}

// Create inserts an active material and returns it with its id.
func (m *Materials) Create(ctx context.Context, mat Material) (Material, error) {
	res, err := m.db.ExecContext(ctx, `
		INSERT INTO materials (name, cost_per_kg, notes, active)
		VALUES (?, ?, ?, TRUE)
	`, mat.Name, mat.CostPerKg, mat.Notes)
	if err != nil {
		return Material{}, fmt.Errorf("insert material: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Material{}, fmt.Errorf("insert material id: %w", err)
	}
	mat.ID = id
	mat.Active = true
	return mat, nil
}

// Update overwrites a material. It returns ErrNotFound for an unknown id.
func (m *Materials) Update(ctx context.Context, mat Material) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE materials
		SET
			name = ?,
			cost_per_kg = ?,
			notes = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, mat.Name, mat.CostPerKg, mat.Notes, mat.Active, mat.ID)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("material %d: %w", mat.ID, ErrNotFound)
	}
	return nil
}
