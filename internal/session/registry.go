package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry keeps one Controller per client session. Idle entries expire and
// the least recently used entry is evicted when the registry is full.
// Removed controllers are closed.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	idleTTL time.Duration
	maxSize int
	now     func() time.Time
}

type registryEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// NewRegistry creates a registry. Zero values fall back to a 24h TTL and 10000 sessions.
func NewRegistry(idleTTL time.Duration, maxSize int) *Registry {
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Registry{
		entries: make(map[string]*registryEntry),
		idleTTL: idleTTL,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Add stores c under id, replacing and closing any previous controller with that id
func (r *Registry) Add(id string, c *Controller) {
	var closing []*Controller

	r.mu.Lock()
	if old, ok := r.entries[id]; ok {
		closing = append(closing, old.controller)
		delete(r.entries, id)
	}
	if len(r.entries) >= r.maxSize {
		if victim := r.oldestLocked(); victim != "" {
			closing = append(closing, r.entries[victim].controller)
			delete(r.entries, victim)
			log.Info().Str("session_id", victim).Msg("Session evicted")
		}
	}
	r.entries[id] = &registryEntry{controller: c, lastSeen: r.now()}
	r.mu.Unlock()

	for _, old := range closing {
		old.Close()
	}
}

// Get returns the controller for id and marks it as used
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	if r.now().Sub(entry.lastSeen) > r.idleTTL {
		delete(r.entries, id)
		r.mu.Unlock()
		entry.controller.Close()
		return nil, false
	}
	entry.lastSeen = r.now()
	r.mu.Unlock()
	return entry.controller, true
}

// Remove drops and closes the controller for id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		entry.controller.Close()
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes idle sessions and returns how many were dropped
func (r *Registry) Sweep() int {
	var expired []*Controller

	r.mu.Lock()
	now := r.now()
	for id, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			expired = append(expired, entry.controller)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is cancelled
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Info().Int("removed", n).Msg("Expired sessions swept")
			}
		}
	}
}

func (r *Registry) oldestLocked() string {
	var (
		victim string
		oldest time.Time
	)
	for id, entry := range r.entries {
		if victim == "" || entry.lastSeen.Before(oldest) {
			victim = id
			oldest = entry.lastSeen
		}
	}
	return victim
}
