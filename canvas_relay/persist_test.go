package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pixelrelay/db"
	"pixelrelay/types"
)

func newPersistentRelay(t *testing.T, dbPath string, cooldown time.Duration) *Relay {
	t.Helper()

	canvasDB, err := db.InitSQLite(dbPath)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { canvasDB.Close() })
	if err := ensureCanvasSchema(canvasDB); err != nil {
		t.Fatalf("ensure canvas schema: %v", err)
	}

	relay := NewRelay(RelayConfig{CooldownWindow: cooldown, DB: canvasDB})
	if err := relay.Hydrate(); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return relay
}

func tempDBPath(t *testing.T) string {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "canvas-relay-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return filepath.Join(tempDir, "canvas.sqlite")
}

func TestPersistAndHydratePixels(t *testing.T) {
	dbPath := tempDBPath(t)

	first := newPersistentRelay(t, dbPath, time.Hour)
	if _, err := first.PlacePixel(types.PlacePixelRequest{
		X: 2, Y: 3, Color: "#FF0000", UserID: "u-1", Username: "ada", Size: 8,
	}); err != nil {
		t.Fatalf("PlacePixel: %v", err)
	}
	if _, err := first.PlacePixel(types.PlacePixelRequest{
		X: 4, Y: 4, Color: "#00FF00", UserID: "u-2", Username: "grace", Size: 16,
	}); err != nil {
		t.Fatalf("PlacePixel: %v", err)
	}

	second := newPersistentRelay(t, dbPath, time.Hour)

	grid8, _ := second.Store.Get(8)
	if grid8[3][2] != "#FF0000" {
		t.Errorf("8x8 cell (2,3) = %s after restart", grid8[3][2])
	}
	grid16, _ := second.Store.Get(16)
	if grid16[4][4] != "#00FF00" {
		t.Errorf("16x16 cell (4,4) = %s after restart", grid16[4][4])
	}

	stats := second.Stats.Stats(8)
	if stats.TotalPixels != 1 || stats.UniqueUsers != 1 {
		t.Errorf("hydrated 8x8 stats = %+v", stats)
	}
}

func TestHydrateRestoresCooldowns(t *testing.T) {
	dbPath := tempDBPath(t)

	first := newPersistentRelay(t, dbPath, time.Hour)
	first.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, Color: "#000000", UserID: "u-1", Size: 8})

	second := newPersistentRelay(t, dbPath, time.Hour)
	if canPlace, end := second.Gate.Peek("u-1"); canPlace || !end.After(time.Now()) {
		t.Errorf("cooldown not restored: canPlace=%v end=%v", canPlace, end)
	}
}

func TestHydrateDropsExpiredCooldowns(t *testing.T) {
	dbPath := tempDBPath(t)

	first := newPersistentRelay(t, dbPath, 10*time.Millisecond)
	first.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, Color: "#000000", UserID: "u-1", Size: 8})
	time.Sleep(20 * time.Millisecond)

	second := newPersistentRelay(t, dbPath, time.Hour)
	if canPlace, _ := second.Gate.Peek("u-1"); !canPlace {
		t.Error("expired cooldown survived a restart")
	}
}

func TestHydrateRestoresUsernames(t *testing.T) {
	dbPath := tempDBPath(t)

	first := newPersistentRelay(t, dbPath, time.Hour)
	first.PlacePixel(types.PlacePixelRequest{X: 1, Y: 1, Color: "#000000", UserID: "u-1", Username: "before", Size: 8})
	first.UpdateUsername("u-1", "after")

	second := newPersistentRelay(t, dbPath, time.Hour)
	if got := second.Users.ResolveName("u-1"); got != "after" {
		t.Errorf("resolved name after restart = %s, want after", got)
	}
	recent := second.Log.Recent(8, changeLogCapacity, second.Users.ResolveName)
	// The change log itself is not persisted; only live state is.
	if len(recent) != 0 {
		t.Errorf("change log should start empty after restart, got %d records", len(recent))
	}
}

func TestLastWriteWinsInPersistence(t *testing.T) {
	dbPath := tempDBPath(t)

	first := newPersistentRelay(t, dbPath, time.Millisecond)
	first.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, Color: "#111111", UserID: "u-1", Size: 8})
	time.Sleep(5 * time.Millisecond)
	first.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, Color: "#222222", UserID: "u-2", Size: 8})

	second := newPersistentRelay(t, dbPath, time.Hour)
	grid, _ := second.Store.Get(8)
	if grid[0][0] != "#222222" {
		t.Errorf("cell (0,0) = %s after restart, want the last write", grid[0][0])
	}
}
