package main

import (
	"sync"
	"time"

	"pixelrelay/types"
)

const recentWriteWindow = time.Hour

type namespaceStats struct {
	mu           sync.Mutex
	paintedCells int
	users        map[string]struct{}
	recentWrites []time.Time
}

// StatsTracker keeps per-namespace aggregate counters for stats_update
// broadcasts: painted cell count, unique writers, and writes in the last
// hour.
type StatsTracker struct {
	stats map[int]*namespaceStats
}

func NewStatsTracker() *StatsTracker {
	stats := make(map[int]*namespaceStats, len(types.CanvasSizes))
	for _, size := range types.CanvasSizes {
		stats[size] = &namespaceStats{users: make(map[string]struct{})}
	}
	return &StatsTracker{stats: stats}
}

func (t *StatsTracker) RecordWrite(size int, userID string, newlyPainted bool) {
	ns, ok := t.stats[size]
	if !ok {
		return
	}
	now := time.Now().UTC()
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if newlyPainted {
		ns.paintedCells++
	}
	ns.users[userID] = struct{}{}
	ns.recentWrites = append(ns.recentWrites, now)
	ns.trimRecent(now)
}

// Seed restores counters from persisted state at startup.
func (t *StatsTracker) Seed(size, paintedCells int, userIDs []string) {
	ns, ok := t.stats[size]
	if !ok {
		return
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.paintedCells = paintedCells
	for _, id := range userIDs {
		ns.users[id] = struct{}{}
	}
}

func (t *StatsTracker) Stats(size int) types.Stats {
	ns, ok := t.stats[size]
	if !ok {
		return types.Stats{}
	}
	now := time.Now().UTC()
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.trimRecent(now)
	return types.Stats{
		TotalPixels:     ns.paintedCells,
		UniqueUsers:     len(ns.users),
		PixelsPlacedNow: len(ns.recentWrites),
	}
}

func (ns *namespaceStats) trimRecent(now time.Time) {
	cutoff := now.Add(-recentWriteWindow)
	trimmed := ns.recentWrites[:0]
	for _, ts := range ns.recentWrites {
		if ts.After(cutoff) {
			trimmed = append(trimmed, ts)
		}
	}
	ns.recentWrites = trimmed
}
