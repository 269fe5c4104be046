package main

import (
	"database/sql"
	"fmt"
)

// ensureCanvasSchema creates the persistence tables if they are missing.
// One pixels table covers every namespace, keyed by (size, x, y).
func ensureCanvasSchema(canvasDB *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cooldowns (
			user_id TEXT PRIMARY KEY,
			cooldown_end TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pixels (
			size INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			color TEXT NOT NULL,
			user_id TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (size, x, y)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pixels_timestamp ON pixels(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_pixels_user_id ON pixels(user_id)`,
	}

	for _, query := range queries {
		if _, err := canvasDB.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Expired cooldowns are useless after a restart.
	if _, err := canvasDB.Exec(`DELETE FROM cooldowns WHERE cooldown_end < CURRENT_TIMESTAMP`); err != nil {
		return fmt.Errorf("failed to clear expired cooldowns: %w", err)
	}

	return nil
}
