package main

import (
	"log"
	"time"

	"pixelrelay/types"
)

// Persistence is write-through and best-effort: the in-memory store stays
// authoritative, sqlite only survives restarts. A relay constructed with a
// nil DB (unit tests, ephemeral deployments) skips all of it.

func (r *Relay) persistWrite(size int, pixel types.Pixel, cooldownEnd time.Time) {
	if r.DB == nil {
		return
	}
	if _, err := r.DB.Exec(`
		INSERT INTO pixels (size, x, y, color, user_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(size, x, y) DO UPDATE SET
			color = excluded.color,
			user_id = excluded.user_id,
			timestamp = excluded.timestamp
	`, size, pixel.X, pixel.Y, pixel.Color, pixel.UserID, time.UnixMilli(pixel.Timestamp).UTC()); err != nil {
		log.Printf("failed to persist pixel (%d,%d): %v", pixel.X, pixel.Y, err)
	}
	if _, err := r.DB.Exec(`
		INSERT INTO cooldowns (user_id, cooldown_end)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET cooldown_end = excluded.cooldown_end
	`, pixel.UserID, cooldownEnd); err != nil {
		log.Printf("failed to persist cooldown for %s: %v", pixel.UserID, err)
	}
	r.persistUser(types.User{ID: pixel.UserID, Username: pixel.Username})
}

func (r *Relay) persistUser(user types.User) {
	if r.DB == nil {
		return
	}
	now := time.Now().UTC()
	if _, err := r.DB.Exec(`
		INSERT INTO users (id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			updated_at = excluded.updated_at
	`, user.ID, user.Username, now, now); err != nil {
		log.Printf("failed to persist user %s: %v", user.ID, err)
	}
}

// Hydrate loads persisted state into the in-memory components. Called once
// at startup before the relay serves traffic.
func (r *Relay) Hydrate() error {
	if r.DB == nil {
		return nil
	}

	rows, err := r.DB.Query(`SELECT id, username FROM users`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			continue
		}
		r.Users.Upsert(id, username)
	}
	rows.Close()

	rows, err = r.DB.Query(`SELECT user_id, cooldown_end FROM cooldowns`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var userID string
		var end time.Time
		if err := rows.Scan(&userID, &end); err != nil {
			continue
		}
		r.Gate.Restore(userID, end.UTC())
	}
	rows.Close()

	for _, size := range types.CanvasSizes {
		if err := r.hydrateCanvas(size); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) hydrateCanvas(size int) error {
	rows, err := r.DB.Query(`
		SELECT x, y, color, user_id FROM pixels
		WHERE size = ? AND color != ?
	`, size, types.DefaultColor)
	if err != nil {
		return err
	}
	defer rows.Close()

	var sparse []types.SparsePixel
	userIDs := make(map[string]struct{})
	for rows.Next() {
		var x, y int
		var color, userID string
		if err := rows.Scan(&x, &y, &color, &userID); err != nil {
			continue
		}
		sparse = append(sparse, types.SparsePixel{X: x, Y: y, Color: color})
		userIDs[userID] = struct{}{}
	}
	if len(sparse) == 0 {
		return nil
	}

	if err := r.Store.Load(size, sparse); err != nil {
		return err
	}
	ids := make([]string, 0, len(userIDs))
	for id := range userIDs {
		ids = append(ids, id)
	}
	r.Stats.Seed(size, len(sparse), ids)
	log.Printf("hydrated canvas %dx%d: %d pixels, %d users", size, size, len(sparse), len(ids))
	return nil
}
