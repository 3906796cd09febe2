package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/nhle/pgportal/internal/model"
)

// ReadStateAPI is the portal surface the feed needs to change read state.
type ReadStateAPI interface {
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error
	UnreadCount(ctx context.Context) (int, error)
}

// Feed is the notification list shown in the notifications view together
// with the authoritative unread count.
type Feed struct {
	api ReadStateAPI

	mu     sync.Mutex
	items  []model.Notification
	hash   uint64
	unread int
}

// NewFeed creates an empty feed.
func NewFeed(api ReadStateAPI) *Feed {
	return &Feed{api: api}
}

// Replace swaps in ns when it differs structurally from the current list
// and reports whether anything changed.
func (f *Feed) Replace(ns []model.Notification) bool {
	h, err := hashList(ns)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil && f.items != nil && h == f.hash {
		return false
	}

	f.items = make([]model.Notification, len(ns))
	copy(f.items, ns)
	f.hash = h
	return true
}

func hashList(ns []model.Notification) (uint64, error) {
	return hashstructure.Hash(ns, hashstructure.FormatV2, nil)
}

// rehashLocked keeps the hash in step with local edits so the next
// Replace compares against what is on screen. f.mu must be held.
func (f *Feed) rehashLocked() {
	h, err := hashList(f.items)
	if err != nil {
		h = 0
	}
	f.hash = h
}

// Items returns a copy of the current list.
func (f *Feed) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Unread returns the last known unread count.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// SetUnread stores an unread count fetched from the portal.
func (f *Feed) SetUnread(n int) {
	if n < 0 {
		n = 0
	}
	f.mu.Lock()
	f.unread = n
	f.mu.Unlock()
}

// Clear empties the feed.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.hash = 0
	f.unread = 0
}

// MarkRead flags id as read locally, asks the portal to do the same and
// reverts on failure. The unread count is then re-fetched.
func (f *Feed) MarkRead(ctx context.Context, id string) error {
	return f.setRead(ctx, id, true)
}

// MarkUnread is the inverse of MarkRead.
func (f *Feed) MarkUnread(ctx context.Context, id string) error {
	return f.setRead(ctx, id, false)
}

func (f *Feed) setRead(ctx context.Context, id string, read bool) error {
	prev, ok := f.apply(id, read)
	if !ok {
		return fmt.Errorf("notification %s is not in the feed", id)
	}

	call := f.api.MarkUnread
	if read {
		call = f.api.MarkRead
	}
	if err := call(ctx, id); err != nil {
		f.restore(id, prev)
		return fmt.Errorf("updating notification %s: %w", id, err)
	}

	count, err := f.api.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("refreshing unread count: %w", err)
	}
	f.SetUnread(count)
	return nil
}

// apply updates the local copy and returns the previous state.
func (f *Feed) apply(id string, read bool) (model.Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		prev := f.items[i]
		if prev.Read == read {
			return prev, true
		}
		f.items[i].Read = read
		if read {
			now := time.Now()
			f.items[i].ReadAt = &now
			if f.unread > 0 {
				f.unread--
			}
		} else {
			f.items[i].ReadAt = nil
			f.unread++
		}
		f.rehashLocked()
		return prev, true
	}
	return model.Notification{}, false
}

func (f *Feed) restore(id string, prev model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		if f.items[i].Read != prev.Read {
			if prev.Read {
				if f.unread > 0 {
					f.unread--
				}
			} else {
				f.unread++
			}
		}
		f.items[i] = prev
		f.rehashLocked()
		return
	}
}
