// Package store persists users, the materials catalog, pricing defaults and
// saved quotes in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const timeLayout = "2006-01-02 15:04:05"

// Store bundles the repositories sharing one database handle.
type Store struct {
	Users     *Users
	Materials *Materials
	Settings  *Settings
	Quotes    *Quotes
}

// New wires every repository to db.
func New(db *sql.DB) *Store {
	return &Store{
		Users:     &Users{db: db},
		Materials: &Materials{db: db},
		Settings:  &Settings{db: db},
		Quotes:    NewQuotes(db, time.Now),
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts both the layout we write and what the driver hands back
// for DATETIME columns.
func parseTime(raw string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
