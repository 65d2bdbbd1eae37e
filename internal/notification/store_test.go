package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore() *Store {
	c := &stepClock{t: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
	return NewStore(c.now)
}

func TestStore_AddNewestFirst(t *testing.T) {
	s := newTestStore()

	first, created := s.Add(Info("a", "one"))
	require.True(t, created)
	second, _ := s.Add(Info("b", "two"))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 2, s.UnreadCount())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_DedupRefreshesTimestamp(t *testing.T) {
	s := newTestStore()
	draft := MeasurementReminder([]string{"Blood pressure"}, "09:00")

	n1, created1 := s.Add(draft)
	n2, created2 := s.Add(draft)

	assert.True(t, created1)
	assert.False(t, created2)
	assert.Equal(t, n1.ID, n2.ID)
	assert.True(t, n2.CreatedAt.After(n1.CreatedAt))
	assert.Len(t, s.List(), 1)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestStore_ReadEntryDoesNotDedup(t *testing.T) {
	s := newTestStore()
	draft := Info("same", "message")

	n, _ := s.Add(draft)
	require.True(t, s.MarkRead(n.ID))
	_, created := s.Add(draft)

	assert.True(t, created)
	assert.Len(t, s.List(), 2)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestStore_MarkReadRemoveClear(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add(Info("a", "1"))
	b, _ := s.Add(Info("b", "2"))
	s.Add(Info("c", "3"))

	assert.True(t, s.MarkRead(a.ID))
	assert.False(t, s.MarkRead(a.ID), "marking twice must not decrement again")
	assert.False(t, s.MarkRead("missing"))
	assert.Equal(t, 2, s.UnreadCount())

	assert.True(t, s.Remove(b.ID))
	assert.Equal(t, 1, s.UnreadCount())
	assert.True(t, s.Remove(a.ID))
	assert.Equal(t, 1, s.UnreadCount())
	assert.False(t, s.Remove("missing"))

	s.MarkAllRead()
	assert.Equal(t, 0, s.UnreadCount())

	s.Clear()
	assert.Empty(t, s.List())
	assert.Equal(t, 0, s.UnreadCount())
}

func TestStore_CompactKeepsFirstOccurrence(t *testing.T) {
	s := newTestStore()
	old, _ := s.Add(Info("dup", "msg"))
	s.MarkRead(old.ID)
	newer, _ := s.Add(Info("dup", "msg"))
	s.Add(Info("other", "msg"))

	removed := s.Compact()

	assert.Equal(t, 1, removed)
	list := s.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.Contains(t, ids, newer.ID)
	assert.NotContains(t, ids, old.ID)
	assert.Equal(t, 2, s.UnreadCount())
}

// TestProperty_UnreadCountMatchesList checks the incremental counter against a recount
func TestProperty_UnreadCountMatchesList(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("unread count equals unread entries after any operation sequence", prop.ForAll(
		func(ops []int) bool {
			s := newTestStore()
			for i, op := range ops {
				list := s.List()
				switch op % 5 {
				case 0, 1:
					s.Add(Info(fmt.Sprintf("t%d", i%3), "m"))
				case 2:
					if len(list) > 0 {
						s.MarkRead(list[i%len(list)].ID)
					}
				case 3:
					if len(list) > 0 {
						s.Remove(list[i%len(list)].ID)
					}
				case 4:
					s.Compact()
				}

				unread := 0
				seen := map[string]bool{}
				for _, n := range s.List() {
					if n.IsRead {
						continue
					}
					unread++
					if seen[n.Title+"\x00"+n.Message] {
						return false
					}
					seen[n.Title+"\x00"+n.Message] = true
				}
				if unread != s.UnreadCount() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

func TestRegistry_OpenLookupDrop(t *testing.T) {
	r := NewRegistry(nil)

	_, ok := r.Lookup("user-a")
	assert.False(t, ok)

	a := r.Open("user-a")
	assert.Same(t, a, r.Open("user-a"))
	assert.NotSame(t, a, r.Open("user-b"))
	got, ok := r.Lookup("user-a")
	assert.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 2, r.size())

	r.Drop("user-a")
	assert.Equal(t, 1, r.size())
	_, ok = r.Lookup("user-a")
	assert.False(t, ok)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, n model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return p.err
}

func TestDispatcher_PublishesOnlyNewDangerWarnings(t *testing.T) {
	pub := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(NewRegistry(nil), zap.NewNop(), pub, failing)
	ctx := context.Background()
	d.Open("user-1")

	warning := DangerWarning("Blood pressure", "185/95 mmHg", "90-140/60-90 mmHg")
	d.Emit(ctx, "user-1", warning)
	d.Emit(ctx, "user-1", warning)
	d.Emit(ctx, "user-1", Info("hello", "world"))
	d.Wait()

	assert.Len(t, pub.sent, 1)
	assert.Len(t, failing.sent, 1)
	assert.Len(t, d.Store("user-1").List(), 2)

	d.Forget("user-1")
	assert.Empty(t, d.Store("user-1").List())
}

func TestDispatcher_UserWithoutSessionIsOnlyPublished(t *testing.T) {
	pub := &recordingPublisher{}
	registry := NewRegistry(nil)
	d := NewDispatcher(registry, zap.NewNop(), pub)
	ctx := context.Background()

	warning := DangerWarning("Heart rate", "130 bpm", "60-100 bpm")
	n := d.Emit(ctx, "user-1", warning)
	d.Emit(ctx, "user-1", Info("hello", "world"))
	d.Wait()

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, warning.Message, n.Message)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, n.ID, pub.sent[0].ID)
	assert.Zero(t, registry.size(), "no store is kept for a user without a session")
	assert.Empty(t, d.Store("user-1").List())
	assert.Zero(t, registry.size(), "reading does not open a session")
}

func TestBuilders(t *testing.T) {
	r := MeasurementReminder([]string{"Blood pressure", "Blood sugar"}, "09:00")
	assert.Equal(t, "Blood pressure, Blood sugar measurement time. (09:00)", r.Message)
	assert.Equal(t, model.PriorityHigh, r.Priority)
	assert.Equal(t, ActionRecord, r.ActionURL)

	w := DangerWarning("Heart rate", "130 bpm", "60-100 bpm")
	assert.Equal(t, model.NotificationWarning, w.Kind)
	assert.Equal(t, "Heart rate is 130 bpm, outside the normal range (60-100 bpm)", w.Message)

	sum := DailySummary([]string{"Weight"})
	assert.Equal(t, "Today's health summary", sum.Title)
	assert.Equal(t, model.PriorityMedium, sum.Priority)

	g := GoalAchieved("weight", "70 kg")
	assert.Equal(t, model.NotificationAchievement, g.Kind)
	assert.Equal(t, ActionDashboard, g.ActionURL)
}
