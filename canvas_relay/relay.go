package main

import (
	"database/sql"
	"fmt"
	"time"

	"pixelrelay/types"
)

// CooldownError is returned when a write is rejected by the cooldown gate.
// It carries the authoritative end time so clients can resynchronize their
// local cooldown display to server time.
type CooldownError struct {
	End time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active until %s", e.End.Format(time.RFC3339))
}

// Relay owns every server-side component of the synchronization core. One
// instance is constructed per process and torn down with it; nothing lives
// in package globals.
type Relay struct {
	Store  *PixelStore
	Gate   *CooldownGate
	Log    *ChangeLog
	Users  *UserRegistry
	Stats  *StatsTracker
	Hub    *BroadcastHub
	DB     *sql.DB
	Bridge *RedisBridge
}

type RelayConfig struct {
	CooldownWindow time.Duration
	DB             *sql.DB
}

func NewRelay(cfg RelayConfig) *Relay {
	return &Relay{
		Store: NewPixelStore(),
		Gate:  NewCooldownGate(cfg.CooldownWindow),
		Log:   NewChangeLog(changeLogCapacity),
		Users: NewUserRegistry(),
		Stats: NewStatsTracker(),
		Hub:   NewBroadcastHub(),
		DB:    cfg.DB,
	}
}

// PlacePixel is the single commit path for both transports: validate,
// reserve the cooldown, apply to the store, then log, persist and fan out.
// The broadcast only ever happens after the write has been applied.
func (r *Relay) PlacePixel(req types.PlacePixelRequest) (types.Pixel, error) {
	if !types.IsValidSize(req.Size) {
		return types.Pixel{}, ErrUnknownSize
	}
	if err := r.Store.Validate(req.Size, req.X, req.Y); err != nil {
		return types.Pixel{}, err
	}
	if req.Color == "" {
		req.Color = types.DefaultColor
	}

	allowed, end := r.Gate.CheckAndReserve(req.UserID)
	if !allowed {
		return types.Pixel{}, &CooldownError{End: end}
	}

	user := r.Users.Upsert(req.UserID, req.Username)
	newlyPainted, err := r.Store.Set(req.Size, req.X, req.Y, req.Color)
	if err != nil {
		return types.Pixel{}, err
	}
	r.Stats.RecordWrite(req.Size, req.UserID, newlyPainted)

	pixel := types.Pixel{
		X:         req.X,
		Y:         req.Y,
		Color:     req.Color,
		UserID:    req.UserID,
		Username:  user.Username,
		Timestamp: time.Now().UTC().UnixMilli(),
	}
	r.Log.Append(req.Size, pixel)
	r.persistWrite(req.Size, pixel, end)

	r.broadcastCommit(req.Size, pixel)
	if r.Bridge != nil {
		r.Bridge.PublishPixel(req.Size, pixel)
	}
	return pixel, nil
}

// broadcastCommit fans a committed write out to the namespace along with
// the refreshed aggregates.
func (r *Relay) broadcastCommit(size int, pixel types.Pixel) {
	r.Hub.Publish(size, types.WSMessage{Type: "pixel_update", Data: pixel})
	r.Hub.Publish(size, types.WSMessage{Type: "stats_update", Data: r.Stats.Stats(size)})
	r.Hub.Publish(size, types.WSMessage{
		Type: "recent_changes",
		Data: r.Log.Recent(size, changeLogCapacity, r.Users.ResolveName),
	})
}

// Snapshot builds the canvas payload for initial sync, using the sparse
// encoding of non-default cells.
func (r *Relay) Snapshot(size int) (types.Canvas, error) {
	sparse, err := r.Store.Diff(size)
	if err != nil {
		return types.Canvas{}, err
	}
	return types.Canvas{
		SparsePixels:  sparse,
		Size:          size,
		LastUpdate:    time.Now().UTC(),
		Stats:         r.Stats.Stats(size),
		RecentChanges: r.Log.Recent(size, changeLogCapacity, r.Users.ResolveName),
	}, nil
}

// UpdateUsername changes a user's display name. Future change-log reads
// resolve to the new name; historical broadcast payloads are not rewritten.
func (r *Relay) UpdateUsername(userID, username string) types.User {
	user := r.Users.Upsert(userID, username)
	r.persistUser(user)
	return user
}
