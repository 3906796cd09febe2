// Package notify holds the client-side notification state: the bounded set
// of popup alerts, the record of notifications already surfaced and the
// notification feed with its read state.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/pgportal/internal/model"
)

// DefaultBound is the maximum number of simultaneously visible alerts.
const DefaultBound = 5

// Event is a normalized notification waiting to be shown as an alert.
type Event struct {
	// NotificationID is empty for live events that carry no persistent id.
	NotificationID string
	Message        string
	Category       string
}

// Registry queues alerts and exposes a bounded visible window over them.
// Alerts are promoted into the window in arrival order.
type Registry struct {
	mu        sync.Mutex
	bound     int
	ttl       time.Duration
	queue     []model.Alert
	visible   []model.Alert
	dismissed map[string]struct{}
	now       func() time.Time
}

// NewRegistry creates a registry showing at most bound alerts at a time.
// Visible alerts older than ttl are removed by Sweep; a zero ttl disables
// sweeping.
func NewRegistry(bound int, ttl time.Duration) *Registry {
	if bound <= 0 {
		bound = DefaultBound
	}
	return &Registry{
		bound:     bound,
		ttl:       ttl,
		dismissed: make(map[string]struct{}),
		now:       time.Now,
	}
}

// Enqueue records e as a new alert and promotes queued alerts into the
// visible window. Events for a notification the user already dismissed are
// ignored and ok is false.
func (r *Registry) Enqueue(e Event) (alert model.Alert, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.NotificationID != "" {
		if _, seen := r.dismissed[e.NotificationID]; seen {
			return model.Alert{}, false
		}
	}

	alert = model.Alert{
		ID:             uuid.NewString(),
		NotificationID: e.NotificationID,
		Message:        e.Message,
		Category:       model.NormalizeCategory(e.Category),
		CreatedAt:      r.now(),
	}
	r.queue = append(r.queue, alert)
	r.promoteLocked(alert.CreatedAt)
	return alert, true
}

// Dismiss removes the alert with the given id, whether visible or queued,
// and fills the freed slot with the earliest queued alert.
func (r *Registry) Dismiss(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dismissLocked(id, r.now())
}

func (r *Registry) dismissLocked(id string, now time.Time) bool {
	removed, found := removeAlert(&r.visible, id)
	if !found {
		removed, found = removeAlert(&r.queue, id)
	}
	if !found {
		return false
	}

	r.dismissed[removed.ID] = struct{}{}
	if removed.NotificationID != "" {
		r.dismissed[removed.NotificationID] = struct{}{}
	}
	r.promoteLocked(now)
	return true
}

// DismissAll dismisses every visible and queued alert. Their notifications
// are not shown again.
func (r *Registry) DismissAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range [][]model.Alert{r.visible, r.queue} {
		for _, a := range list {
			r.dismissed[a.ID] = struct{}{}
			if a.NotificationID != "" {
				r.dismissed[a.NotificationID] = struct{}{}
			}
		}
	}
	r.queue = nil
	r.visible = nil
}

// ClearAll drops every alert and forgets dismissals. Used when the session
// ends.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = nil
	r.visible = nil
	r.dismissed = make(map[string]struct{})
}

// Sweep dismisses visible alerts shown for longer than the registry TTL and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	for _, a := range r.visible {
		if now.Sub(a.ShownAt) > r.ttl {
			stale = append(stale, a.ID)
		}
	}
	for _, id := range stale {
		r.dismissLocked(id, now)
	}
	return len(stale)
}

// Visible returns the alerts currently in the window, oldest first.
func (r *Registry) Visible() []model.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Alert, len(r.visible))
	copy(out, r.visible)
	return out
}

// Pending returns the number of queued alerts not yet visible.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Bound returns the visible window size.
func (r *Registry) Bound() int {
	return r.bound
}

func (r *Registry) promoteLocked(now time.Time) {
	for len(r.visible) < r.bound && len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		next.ShownAt = now
		r.visible = append(r.visible, next)
	}
}

func removeAlert(list *[]model.Alert, id string) (model.Alert, bool) {
	for i, a := range *list {
		if a.ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return a, true
		}
	}
	return model.Alert{}, false
}
