package main

import (
	"sync"
	"time"
)

const defaultCooldownWindow = 5 * time.Second

// CooldownGate enforces at most one accepted write per user per window.
// Check-and-reserve is atomic per user: two concurrent requests can never
// both see "no cooldown".
type CooldownGate struct {
	window time.Duration
	mu     sync.Mutex
	ends   map[string]time.Time
}

func NewCooldownGate(window time.Duration) *CooldownGate {
	if window <= 0 {
		window = defaultCooldownWindow
	}
	return &CooldownGate{
		window: window,
		ends:   make(map[string]time.Time),
	}
}

// CheckAndReserve reserves a new cooldown window if none is active and
// returns (true, new end). If a cooldown is active it returns (false,
// existing end). Expired entries are evicted lazily on the way through.
func (g *CooldownGate) CheckAndReserve(userID string) (bool, time.Time) {
	now := time.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	if end, ok := g.ends[userID]; ok && now.Before(end) {
		return false, end
	}
	end := now.Add(g.window)
	g.ends[userID] = end
	return true, end
}

// Peek reports the current cooldown state without reserving anything.
func (g *CooldownGate) Peek(userID string) (bool, time.Time) {
	now := time.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	end, ok := g.ends[userID]
	if !ok || !now.Before(end) {
		if ok {
			delete(g.ends, userID)
		}
		return true, time.Time{}
	}
	return false, end
}

// Restore seeds a persisted cooldown, dropping it if already expired.
func (g *CooldownGate) Restore(userID string, end time.Time) {
	if !time.Now().UTC().Before(end) {
		return
	}
	g.mu.Lock()
	g.ends[userID] = end
	g.mu.Unlock()
}
