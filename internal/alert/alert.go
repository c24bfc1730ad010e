// Package alert implements the Alert Store: a mutex-protected bounded
// ring buffer of the most recent alerts.
//
// Grounded on octoreflex/internal/budget/token_bucket.go's mutex +
// fixed-capacity-with-defensive-panic-constructor shape, repurposed
// from a token count to a ring of alert records. UUIDs are minted with
// github.com/google/uuid's NewV7, resolving spec.md §9's open question
// on alert-id uniqueness (the human-readable "alert-<ts>-<counter>"
// display form is kept alongside it, see model.Alert.ID/UUID).
package alert

import (
	"sync"

	"github.com/google/uuid"

	"github.com/octoreflex/shadowguard/internal/model"
)

// Capacity is the fixed ring size mandated by spec.md §4.J.
const Capacity = 100

// Store is a thread-safe, fixed-capacity FIFO ring of alerts.
type Store struct {
	mu      sync.Mutex
	entries []model.Alert
	byID    map[string]int // id -> index into entries, rebuilt on evict
	start   int            // index of the oldest entry when full
	size    int
}

// New returns an empty Store at the fixed capacity.
func New() *Store {
	return &Store{
		entries: make([]model.Alert, Capacity),
		byID:    make(map[string]int, Capacity),
	}
}

// Add appends alert, evicting the oldest entry first if the store is
// full (FIFO eviction, spec.md §4.J / §8).
func (s *Store) Add(a model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := (s.start + s.size) % Capacity
	if s.size == Capacity {
		evicted := s.entries[s.start]
		delete(s.byID, evicted.ID)
		s.start = (s.start + 1) % Capacity
	} else {
		s.size++
	}
	s.entries[idx] = a
	s.byID[a.ID] = idx
}

// List returns a snapshot of all stored alerts in insertion order.
func (s *Store) List() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Alert, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.entries[(s.start+i)%Capacity]
	}
	return out
}

// Len returns the number of alerts currently stored (never > Capacity).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// ByID returns the alert with the given id, if still present in the ring.
func (s *Store) ByID(id string) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return model.Alert{}, false
	}
	return s.entries[idx], true
}

// NewUUID mints a UUIDv7 for a new alert, time-ordered and globally
// unique across restarts.
func NewUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system clock/random source is
		// unavailable; fall back to a random v4 rather than panic.
		return uuid.New().String()
	}
	return id.String()
}
