// Package sync runs portal fetches off the UI goroutine and reports the
// results back to Bubble Tea as messages.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/store"
)

// Target names a list the refresher can fetch.
type Target int

const (
	TargetNotifications Target = iota
	TargetUnread
	TargetRequests
	TargetSemesters
)

func (t Target) String() string {
	switch t {
	case TargetNotifications:
		return "notifications"
	case TargetUnread:
		return "unread-count"
	case TargetRequests:
		return "requests"
	case TargetSemesters:
		return "semesters"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// ResultMsg is a tea.Msg sent when a fetch completes. Generation is the
// session generation at dispatch; the receiver drops results whose
// generation no longer matches.
type ResultMsg struct {
	Target     Target
	Generation uint64

	Notifications []model.Notification
	Unread        int
	Requests      []model.ProgressUpdate
	Semesters     []model.Semester

	Err       error
	AuthError bool
}

// CachedMsg carries the last known lists read from the local cache.
type CachedMsg struct {
	Generation    uint64
	Notifications []model.Notification
	Requests      []model.ProgressUpdate
	Semesters     []model.Semester
}

// API is the portal surface the refresher reads from.
type API interface {
	Notifications(ctx context.Context) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	ProgressUpdates(ctx context.Context) ([]model.ProgressUpdate, error)
	Semesters(ctx context.Context) ([]model.Semester, error)
}

// Session exposes the current session and its generation.
type Session interface {
	Current() (model.Session, bool)
	Generation() uint64
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Options tunes the refresher.
type Options struct {
	// Interval is the fallback polling period.
	Interval time.Duration

	// Live reports whether realtime delivery is up; fallback polling is
	// skipped while it returns true.
	Live func() bool
}

// Refresher serializes fetches on a background goroutine, writes results
// through to the cache and hands them to the UI.
type Refresher struct {
	api     API
	store   store.Store
	session Session
	opts    Options
	log     zerolog.Logger

	resultCh  chan ResultMsg
	triggerCh chan Target
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a refresher.
func New(api API, s store.Store, sess Session, opts Options, log zerolog.Logger) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = 120 * time.Second
	}
	return &Refresher{
		api:       api,
		store:     s,
		session:   sess,
		opts:      opts,
		log:       log.With().Str("component", "refresher").Logger(),
		resultCh:  make(chan ResultMsg, 16),
		triggerCh: make(chan Target, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the background loop and returns a command that waits
// for the first result.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	go r.loop()
	return r.WaitForNextResult()
}

// Stop halts the background loop.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Refresh queues targets for an immediate fetch. It never blocks.
func (r *Refresher) Refresh(targets ...Target) {
	for _, t := range targets {
		select {
		case r.triggerCh <- t:
		default:
			r.log.Debug().Stringer("target", t).Msg("trigger queue full, skipping")
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call it again after handling each ResultMsg.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-r.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// LoadCached returns a command reading the cached lists.
func (r *Refresher) LoadCached() tea.Cmd {
	gen := r.session.Generation()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		msg := CachedMsg{Generation: gen}
		var err error
		if msg.Notifications, err = r.store.GetNotifications(ctx); err != nil {
			r.log.Warn().Err(err).Msg("reading cached notifications")
		}
		if msg.Requests, err = r.store.GetProgressUpdates(ctx, ""); err != nil {
			r.log.Warn().Err(err).Msg("reading cached requests")
		}
		if msg.Semesters, err = r.store.GetSemesters(ctx); err != nil {
			r.log.Warn().Err(err).Msg("reading cached semesters")
		}
		return msg
	}
}

func (r *Refresher) loop() {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if r.opts.Live != nil && r.opts.Live() {
				continue
			}
			r.run(TargetNotifications)
			r.run(TargetUnread)
		case t := <-r.triggerCh:
			r.run(t)
		}
	}
}

func (r *Refresher) run(t Target) {
	if _, ok := r.session.Current(); !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	r.sendResult(r.Fetch(ctx, t))
}

// Fetch performs a single fetch of t and caches the result when the
// session has not changed in the meantime.
func (r *Refresher) Fetch(ctx context.Context, t Target) ResultMsg {
	msg := ResultMsg{Target: t, Generation: r.session.Generation()}

	var err error
	switch t {
	case TargetNotifications:
		msg.Notifications, err = r.api.Notifications(ctx)
	case TargetUnread:
		msg.Unread, err = r.api.UnreadCount(ctx)
	case TargetRequests:
		msg.Requests, err = r.api.ProgressUpdates(ctx)
	case TargetSemesters:
		msg.Semesters, err = r.api.Semesters(ctx)
	default:
		err = fmt.Errorf("unknown refresh target %d", int(t))
	}

	if err != nil {
		r.log.Warn().Err(err).Stringer("target", t).Msg("fetch failed, keeping previous data")
		msg.Err = err
		msg.AuthError = portal.IsAuthError(err)
		return msg
	}

	if r.session.Generation() != msg.Generation {
		r.log.Debug().Stringer("target", t).Msg("session changed during fetch, not caching")
		return msg
	}
	if err := r.cache(ctx, msg); err != nil {
		r.log.Warn().Err(err).Stringer("target", t).Msg("caching result")
	}
	return msg
}

func (r *Refresher) cache(ctx context.Context, msg ResultMsg) error {
	switch msg.Target {
	case TargetNotifications:
		return r.store.ReplaceNotifications(ctx, msg.Notifications)
	case TargetRequests:
		return r.store.ReplaceProgressUpdates(ctx, msg.Requests)
	case TargetSemesters:
		return r.store.ReplaceSemesters(ctx, msg.Semesters)
	}
	return nil
}

// sendResult sends a ResultMsg without blocking.
func (r *Refresher) sendResult(msg ResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
		r.log.Warn().Stringer("target", msg.Target).Msg("result queue full, dropping")
	}
}
