package notification

import (
	"sync"
	"time"
)

// Registry owns one Store per signed-in user
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	now    func() time.Time
}

// NewRegistry creates an empty Registry. A nil clock uses time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		stores: make(map[string]*Store),
		now:    now,
	}
}

// Open returns the user's store, creating it when the session begins
func (r *Registry) Open(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = NewStore(r.now)
		r.stores[userID] = s
	}
	return s
}

// Lookup returns the user's store if their session is open
func (r *Registry) Lookup(userID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[userID]
	return s, ok
}

// Drop discards the user's store; notifications do not outlive the session
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userID)
}

func (r *Registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
