package main

import (
	"sync"
	"time"

	"pixelrelay/types"
)

// UserRegistry tracks the current display name for each opaque user id.
// Identity itself is owned elsewhere; the relay only needs (id, username)
// at the moment of a write and at log-read time.
type UserRegistry struct {
	mu    sync.Mutex
	users map[string]types.User
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{users: make(map[string]types.User)}
}

func (r *UserRegistry) Upsert(userID, username string) types.User {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		user = types.User{ID: userID, CreatedAt: now}
	}
	if username != "" {
		user.Username = username
	}
	user.UpdatedAt = now
	r.users[userID] = user
	return user
}

func (r *UserRegistry) Get(userID string) (types.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	return user, ok
}

// ResolveName returns the user's current display name, or a stable
// placeholder derived from the id for users the registry never saw.
func (r *UserRegistry) ResolveName(userID string) string {
	r.mu.Lock()
	user, ok := r.users[userID]
	r.mu.Unlock()
	if ok && user.Username != "" {
		return user.Username
	}
	suffix := userID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "User" + suffix
}
