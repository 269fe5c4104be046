package main

import (
	"log"
	"time"

	"pixelrelay/types"
)

// handleMessage applies one inbound event. Authoritative data always wins
// over any optimistic local guess, and applying the same update twice is
// harmless.
func (a *SyncAgent) handleMessage(wsMsg types.WSMessage) {
	if a.cfg.OnEvent != nil {
		a.cfg.OnEvent(wsMsg)
	}

	switch wsMsg.Type {
	case "connected":
		// Subscription acknowledged; the snapshot is already on its way.

	case "canvas_data", "canvas_update":
		canvas, err := types.DecodeData[types.Canvas](wsMsg.Data)
		if err != nil {
			log.Println("Error decoding canvas payload:", err)
			return
		}
		a.mu.Lock()
		a.view.load(canvas)
		a.stats = canvas.Stats
		a.recent = canvas.RecentChanges
		a.stale = false
		a.mu.Unlock()

	case "pixel_update":
		pixel, err := types.DecodeData[types.Pixel](wsMsg.Data)
		if err != nil {
			log.Println("Error decoding pixel update:", err)
			return
		}
		a.mu.Lock()
		a.view.apply(pixel.X, pixel.Y, pixel.Color)
		a.mu.Unlock()

	case "stats_update":
		stats, err := types.DecodeData[types.Stats](wsMsg.Data)
		if err != nil {
			return
		}
		a.mu.Lock()
		a.stats = stats
		a.mu.Unlock()

	case "recent_changes":
		changes, err := types.DecodeData[[]types.Pixel](wsMsg.Data)
		if err != nil {
			return
		}
		a.mu.Lock()
		a.recent = changes
		a.mu.Unlock()

	case "online_count":
		count, err := types.DecodeData[types.OnlineCount](wsMsg.Data)
		if err != nil {
			return
		}
		a.mu.Lock()
		a.online = count.Count
		a.mu.Unlock()

	case "cooldown_active":
		data, err := types.DecodeData[types.CooldownActive](wsMsg.Data)
		if err != nil {
			return
		}
		// The server's clock is authoritative for the cooldown display.
		a.mu.Lock()
		a.cooldownEnd = data.CooldownEnd
		a.mu.Unlock()
		a.resolvePending(placeResult{err: &RejectedError{
			Reason:      "cooldown active",
			CooldownEnd: data.CooldownEnd,
		}})
		a.resync()

	case "cooldown_status":
		info, err := types.DecodeData[types.CooldownInfo](wsMsg.Data)
		if err != nil {
			return
		}
		a.mu.Lock()
		if info.CanPlace {
			a.cooldownEnd = time.Time{}
		} else {
			a.cooldownEnd = info.CooldownEnd
		}
		a.mu.Unlock()

	case "pixel_placed":
		placed, err := types.DecodeData[types.PixelPlaced](wsMsg.Data)
		if err != nil {
			return
		}
		a.resolvePending(placeResult{pixel: placed.Pixel})

	case "username_updated":
		// Acknowledged; nothing to reconcile locally.

	case "error":
		data, err := types.DecodeData[types.WireError](wsMsg.Data)
		if err != nil {
			return
		}
		if a.resolvePending(placeResult{err: &RejectedError{Reason: data.Message}}) {
			a.resync()
			return
		}
		log.Println("Server error:", data.Message)

	default:
		log.Println("Unknown message type:", wsMsg.Type)
	}
}
