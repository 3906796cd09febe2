// Package channel subscribes to the portal's live notification broadcasts
// and turns them into normalized events.
package channel

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/pgportal/internal/model"
)

// Transport opens a subscription to a broadcast channel. ctx bounds the
// handshake only; deliver is called with the raw payload of every matching
// event until the returned closer is closed.
type Transport interface {
	Subscribe(
		ctx context.Context,
		token string,
		channel string,
		event string,
		deliver func([]byte),
	) (io.Closer, error)
}

// Subject identifies whose notifications to subscribe to.
type Subject struct {
	UserID int64
	Role   model.Role
}

// Config names the channel and event.
type Config struct {
	Prefix      string
	SharedTopic string
	Event       string

	// Buffer is the capacity of the Events channel.
	Buffer int
}

// Adapter keeps at most one live subscription.
type Adapter struct {
	transport Transport
	cfg       Config
	log       zerolog.Logger
	events    chan Event

	mu    sync.Mutex
	sub   io.Closer
	topic string
}

// NewAdapter creates an adapter over transport.
func NewAdapter(transport Transport, cfg Config, log zerolog.Logger) *Adapter {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 32
	}
	return &Adapter{
		transport: transport,
		cfg:       cfg,
		log:       log.With().Str("component", "channel").Logger(),
		events:    make(chan Event, cfg.Buffer),
	}
}

// Topic returns the channel name for s: the shared topic for admins and a
// per-user topic for everyone else.
func (a *Adapter) Topic(s Subject) string {
	if s.Role == model.RoleAdmin {
		return a.cfg.Prefix + a.cfg.SharedTopic
	}
	return fmt.Sprintf("%s%d", a.cfg.Prefix, s.UserID)
}

// Connect subscribes on behalf of s, tearing down any previous
// subscription first. An empty token skips the subscription.
func (a *Adapter) Connect(ctx context.Context, token string, s Subject) error {
	a.Disconnect()

	if token == "" {
		a.log.Warn().Msg("no credential available, skipping realtime subscription")
		return nil
	}

	topic := a.Topic(s)
	sub, err := a.transport.Subscribe(ctx, token, topic, a.cfg.Event, a.deliver)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	// A concurrent Connect may have won the race; keep the newest.
	a.mu.Lock()
	prev := a.sub
	a.sub, a.topic = sub, topic
	a.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	a.log.Info().Str("topic", topic).Msg("subscribed")
	return nil
}

// Disconnect closes the current subscription, if any.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	sub, topic := a.sub, a.topic
	a.sub, a.topic = nil, ""
	a.mu.Unlock()

	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		a.log.Warn().Err(err).Str("topic", topic).Msg("closing subscription")
	}
	a.log.Info().Str("topic", topic).Msg("unsubscribed")
}

// Connected reports whether a subscription is open.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sub != nil
}

// Events delivers normalized events in arrival order.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

func (a *Adapter) deliver(raw []byte) {
	ev, err := Decode(raw)
	if err != nil {
		a.log.Warn().Err(err).Msg("dropping malformed broadcast")
		return
	}
	select {
	case a.events <- ev:
	default:
		a.log.Warn().Str("message", ev.Message).Msg("event buffer full, dropping broadcast")
	}
}
