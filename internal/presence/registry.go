// Package presence tracks the transient online/offline state of users.
// Entries are independent per user and recomputed as offline on restart;
// the persisted account record is written through separately and is only
// eventually consistent with this registry.
package presence

import (
	"sync"
	"time"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type Entry struct {
	Status   string
	LastSeen time.Time
}

type Registry struct {
	mu      sync.RWMutex
	entries map[int]Entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int]Entry),
	}
}

// SetOnline marks the user online. Last-writer-wins under concurrent
// calls for the same user; per-user serialization is the caller's job.
func (r *Registry) SetOnline(userId int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.entries[userId]
	entry.Status = StatusOnline
	r.entries[userId] = entry
}

// SetOffline marks the user offline and records when they were last seen.
func (r *Registry) SetOffline(userId int, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[userId] = Entry{
		Status:   StatusOffline,
		LastSeen: at,
	}
}

// Get returns the user's entry, defaulting to offline if never seen.
func (r *Registry) Get(userId int) Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.entries[userId]; ok {
		return entry
	}

	return Entry{Status: StatusOffline}
}
