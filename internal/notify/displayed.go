package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/pgportal/internal/credential"
	"github.com/nhle/pgportal/internal/model"
)

// Displayed is the set of notification ids already shown as alerts. It is
// persisted in the vault so a reconnect or restart never shows the same
// notification twice.
type Displayed struct {
	vault credential.Vault

	mu  sync.Mutex
	ids []string
	set map[string]struct{}
}

// NewDisplayed returns an empty set backed by vault. Call Load to read the
// persisted ids.
func NewDisplayed(vault credential.Vault) *Displayed {
	return &Displayed{vault: vault, set: make(map[string]struct{})}
}

// Load replaces the in-memory set with the persisted one. A missing entry
// yields an empty set.
func (d *Displayed) Load() error {
	raw, err := d.vault.Get(credential.KeyDisplayedNotifications)
	if errors.Is(err, credential.ErrNotFound) {
		d.Clear()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading displayed notifications: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		d.Clear()
		return fmt.Errorf("decoding displayed notifications: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = d.ids[:0]
	d.set = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := d.set[id]; ok {
			continue
		}
		d.set[id] = struct{}{}
		d.ids = append(d.ids, id)
	}
	return nil
}

// Has reports whether id has been displayed.
func (d *Displayed) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.set[id]
	return ok
}

// Add records ids and persists the set immediately.
func (d *Displayed) Add(ids ...string) error {
	d.mu.Lock()
	changed := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := d.set[id]; ok {
			continue
		}
		d.set[id] = struct{}{}
		d.ids = append(d.ids, id)
		changed = true
	}
	if !changed {
		d.mu.Unlock()
		return nil
	}
	raw, err := json.Marshal(d.ids)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding displayed notifications: %w", err)
	}

	if err := d.vault.Set(credential.KeyDisplayedNotifications, string(raw)); err != nil {
		return fmt.Errorf("persisting displayed notifications: %w", err)
	}
	return nil
}

// Clear empties the in-memory set. The persisted copy is removed with the
// rest of the session at logout.
func (d *Displayed) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = nil
	d.set = make(map[string]struct{})
}

// Len returns the number of recorded ids.
func (d *Displayed) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

// SurfaceUnseen enqueues an alert for every unread notification not yet in
// displayed, then records those ids. It returns the alerts it created.
func SurfaceUnseen(r *Registry, displayed *Displayed, ns []model.Notification) ([]model.Alert, error) {
	var (
		alerts []model.Alert
		shown  []string
	)
	for _, n := range ns {
		if n.Read || n.ID == "" || displayed.Has(n.ID) {
			continue
		}
		a, ok := r.Enqueue(Event{
			NotificationID: n.ID,
			Message:        n.Message,
			Category:       n.Category,
		})
		shown = append(shown, n.ID)
		if ok {
			alerts = append(alerts, a)
		}
	}
	if len(shown) == 0 {
		return nil, nil
	}
	return alerts, displayed.Add(shown...)
}
