package main

import (
	"errors"
	"testing"
	"time"

	"pixelrelay/types"
)

func newTestRelay() *Relay {
	return NewRelay(RelayConfig{CooldownWindow: 50 * time.Millisecond})
}

func TestPlacePixelAppliesWrite(t *testing.T) {
	relay := newTestRelay()

	pixel, err := relay.PlacePixel(types.PlacePixelRequest{
		X: 2, Y: 3, Color: "#FF0000", UserID: "u-1", Username: "ada", Size: 8,
	})
	if err != nil {
		t.Fatalf("PlacePixel: %v", err)
	}
	if pixel.X != 2 || pixel.Y != 3 || pixel.Color != "#FF0000" || pixel.Username != "ada" {
		t.Errorf("committed pixel = %+v", pixel)
	}
	if pixel.Timestamp == 0 {
		t.Error("committed pixel has no timestamp")
	}

	grid, _ := relay.Store.Get(8)
	if grid[3][2] != "#FF0000" {
		t.Errorf("store cell (2,3) = %s, want #FF0000", grid[3][2])
	}

	stats := relay.Stats.Stats(8)
	if stats.TotalPixels != 1 || stats.UniqueUsers != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := relay.Log.Len(8); got != 1 {
		t.Errorf("change log length = %d, want 1", got)
	}
}

func TestPlacePixelRejectsDuringCooldown(t *testing.T) {
	relay := newTestRelay()

	req := types.PlacePixelRequest{X: 0, Y: 0, Color: "#000000", UserID: "u-1", Size: 8}
	if _, err := relay.PlacePixel(req); err != nil {
		t.Fatalf("first PlacePixel: %v", err)
	}

	req.X = 1
	_, err := relay.PlacePixel(req)
	var cooldownErr *CooldownError
	if !errors.As(err, &cooldownErr) {
		t.Fatalf("second PlacePixel error = %v, want CooldownError", err)
	}
	if !cooldownErr.End.After(time.Now()) {
		t.Errorf("cooldown end %v should be in the future", cooldownErr.End)
	}

	// The rejected write left no trace.
	grid, _ := relay.Store.Get(8)
	if grid[0][1] != types.DefaultColor {
		t.Error("rejected write reached the store")
	}
	if got := relay.Log.Len(8); got != 1 {
		t.Errorf("change log length = %d after rejection, want 1", got)
	}
}

func TestPlacePixelInvalidInputReservesNothing(t *testing.T) {
	relay := newTestRelay()

	_, err := relay.PlacePixel(types.PlacePixelRequest{X: 99, Y: 0, UserID: "u-1", Size: 8})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("out-of-bounds error = %v", err)
	}
	_, err = relay.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, UserID: "u-1", Size: 77})
	if !errors.Is(err, ErrUnknownSize) {
		t.Fatalf("unknown size error = %v", err)
	}

	// Neither failure consumed the user's cooldown.
	if _, err := relay.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, Color: "#000000", UserID: "u-1", Size: 8}); err != nil {
		t.Errorf("valid write after invalid attempts: %v", err)
	}
}

func TestPlacePixelBroadcastsCommit(t *testing.T) {
	relay := newTestRelay()
	out := make(chan types.WSMessage, subscriberQueueSize)
	sub := relay.Hub.Subscribe(8, out, nil)
	t.Cleanup(func() { relay.Hub.Unsubscribe(sub) })
	drain(out)

	if _, err := relay.PlacePixel(types.PlacePixelRequest{X: 1, Y: 1, Color: "#00FF00", UserID: "u-1", Size: 8}); err != nil {
		t.Fatalf("PlacePixel: %v", err)
	}

	var sawPixel, sawStats, sawRecent bool
	for _, msg := range drain(out) {
		switch msg.Type {
		case "pixel_update":
			sawPixel = true
			pixel, ok := msg.Data.(types.Pixel)
			if !ok || pixel.X != 1 || pixel.Y != 1 {
				t.Errorf("pixel_update payload = %+v", msg.Data)
			}
			if sawStats || sawRecent {
				t.Error("pixel_update must precede the aggregate events")
			}
		case "stats_update":
			sawStats = true
		case "recent_changes":
			sawRecent = true
		}
	}
	if !sawPixel || !sawStats || !sawRecent {
		t.Errorf("missing commit events: pixel=%v stats=%v recent=%v", sawPixel, sawStats, sawRecent)
	}
}

func TestPlacePixelDefaultsEmptyColor(t *testing.T) {
	relay := newTestRelay()
	pixel, err := relay.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, UserID: "u-1", Size: 8})
	if err != nil {
		t.Fatalf("PlacePixel: %v", err)
	}
	if pixel.Color != types.DefaultColor {
		t.Errorf("color = %s, want default", pixel.Color)
	}
}

func TestSnapshot(t *testing.T) {
	relay := newTestRelay()
	relay.PlacePixel(types.PlacePixelRequest{X: 5, Y: 6, Color: "#123456", UserID: "u-1", Username: "ada", Size: 16})

	canvas, err := relay.Snapshot(16)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if canvas.Size != 16 {
		t.Errorf("size = %d", canvas.Size)
	}
	if len(canvas.SparsePixels) != 1 || canvas.SparsePixels[0] != (types.SparsePixel{X: 5, Y: 6, Color: "#123456"}) {
		t.Errorf("sparse pixels = %+v", canvas.SparsePixels)
	}
	if len(canvas.RecentChanges) != 1 || canvas.RecentChanges[0].Username != "ada" {
		t.Errorf("recent changes = %+v", canvas.RecentChanges)
	}

	if _, err := relay.Snapshot(99); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("Snapshot(99) error = %v, want ErrUnknownSize", err)
	}
}

func TestUpdateUsernameVisibleInLaterReads(t *testing.T) {
	relay := newTestRelay()
	relay.PlacePixel(types.PlacePixelRequest{X: 0, Y: 0, Color: "#000000", UserID: "u-1", Username: "before", Size: 8})

	relay.UpdateUsername("u-1", "after")

	recent := relay.Log.Recent(8, changeLogCapacity, relay.Users.ResolveName)
	if recent[0].Username != "after" {
		t.Errorf("recent username = %s, want rename applied", recent[0].Username)
	}
}

func TestResolveNamePlaceholder(t *testing.T) {
	users := NewUserRegistry()
	if got := users.ResolveName("abcdef1234"); got != "User1234" {
		t.Errorf("placeholder = %s, want User1234", got)
	}
	users.Upsert("u-1", "ada")
	if got := users.ResolveName("u-1"); got != "ada" {
		t.Errorf("resolved name = %s, want ada", got)
	}
}
