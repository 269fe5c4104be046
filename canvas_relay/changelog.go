package main

import (
	"sync"

	"pixelrelay/types"
)

const changeLogCapacity = 20

// UsernameResolver maps a user id to its current display name. Change
// records store only the id; names are resolved when the log is read, so
// a rename shows up in every subsequent read without rewriting history.
type UsernameResolver func(userID string) string

type namespaceLog struct {
	mu      sync.Mutex
	records []types.Pixel
}

// ChangeLog is a bounded most-recent-first buffer of accepted writes, one
// buffer per canvas namespace.
type ChangeLog struct {
	capacity int
	logs     map[int]*namespaceLog
}

func NewChangeLog(capacity int) *ChangeLog {
	if capacity <= 0 {
		capacity = changeLogCapacity
	}
	logs := make(map[int]*namespaceLog, len(types.CanvasSizes))
	for _, size := range types.CanvasSizes {
		logs[size] = &namespaceLog{}
	}
	return &ChangeLog{capacity: capacity, logs: logs}
}

// Append prepends a record, evicting the oldest once the buffer is full.
func (l *ChangeLog) Append(size int, record types.Pixel) {
	log, ok := l.logs[size]
	if !ok {
		return
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	log.records = append([]types.Pixel{record}, log.records...)
	if len(log.records) > l.capacity {
		log.records = log.records[:l.capacity]
	}
}

// Recent returns up to limit records, most recent first, with usernames
// resolved through the supplied resolver.
func (l *ChangeLog) Recent(size, limit int, resolve UsernameResolver) []types.Pixel {
	log, ok := l.logs[size]
	if !ok {
		return []types.Pixel{}
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	if limit <= 0 || limit > len(log.records) {
		limit = len(log.records)
	}
	out := make([]types.Pixel, limit)
	copy(out, log.records[:limit])
	if resolve != nil {
		for i := range out {
			out[i].Username = resolve(out[i].UserID)
		}
	}
	return out
}

func (l *ChangeLog) Len(size int) int {
	log, ok := l.logs[size]
	if !ok {
		return 0
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return len(log.records)
}
