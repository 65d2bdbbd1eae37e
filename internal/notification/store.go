// Package notification holds the per-session in-app notification list.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// Draft is a notification before it is given an id and timestamp
type Draft struct {
	Kind      model.NotificationKind
	Title     string
	Message   string
	ActionURL string
	Priority  model.Priority
}

// Store is an ordered, newest-first list of notifications with an unread counter.
// Among unread entries (title, message) is unique. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	items  []model.Notification
	unread int
	now    func() time.Time
}

// NewStore creates an empty Store. A nil clock uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Add inserts d at the head of the list. If an unread entry with the same
// title and message exists, its timestamp is refreshed instead and Add
// reports false.
func (s *Store) Add(d Draft) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range s.items {
		n := &s.items[i]
		if !n.IsRead && n.Title == d.Title && n.Message == d.Message {
			n.CreatedAt = now
			return *n, false
		}
	}

	n := newNotification(d, now)
	s.items = append([]model.Notification{n}, s.items...)
	s.unread++
	return n, true
}

func newNotification(d Draft, now time.Time) model.Notification {
	priority := d.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	return model.Notification{
		ID:        uuid.NewString(),
		Kind:      d.Kind,
		Title:     d.Title,
		Message:   d.Message,
		CreatedAt: now,
		ActionURL: d.ActionURL,
		Priority:  priority,
	}
}

// MarkRead marks one notification read. Unknown ids and already-read entries are no-ops.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			if s.items[i].IsRead {
				return false
			}
			s.items[i].IsRead = true
			s.unread--
			return true
		}
	}
	return false
}

// MarkAllRead marks every notification read
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].IsRead = true
	}
	s.unread = 0
}

// Remove deletes one notification
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.items {
		if n.ID == id {
			if !n.IsRead {
				s.unread--
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every notification
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.unread = 0
}

// Compact drops entries whose (title, message) already appeared earlier in
// the list, keeps the first occurrence, and recounts unread entries.
// It returns the number of removed entries.
func (s *Store) Compact() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ title, message string }
	seen := make(map[key]struct{}, len(s.items))
	kept := s.items[:0]
	unread := 0
	for _, n := range s.items {
		k := key{n.Title, n.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, n)
		if !n.IsRead {
			unread++
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	s.unread = unread
	return removed
}

// List returns a copy of the notifications, newest first
func (s *Store) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the number of unread notifications
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}
