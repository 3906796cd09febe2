package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Pusher protocol event names.
const (
	pusherConnectionEstablished = "pusher:connection_established"
	pusherSubscribe             = "pusher:subscribe"
	pusherUnsubscribe           = "pusher:unsubscribe"
	pusherPing                  = "pusher:ping"
	pusherPong                  = "pusher:pong"
	pusherError                 = "pusher:error"
	pusherSubscribed            = "pusher_internal:subscription_succeeded"
)

// handshakeTimeout bounds waiting for connection_established.
const handshakeTimeout = 15 * time.Second

// Authorizer signs private channel subscriptions.
type Authorizer interface {
	AuthorizeChannel(ctx context.Context, authPath, socketID, channel string) (string, error)
}

// PusherTransport speaks the Pusher websocket protocol (v7), as served by
// Soketi and laravel-websockets.
type PusherTransport struct {
	url      string
	authPath string
	auth     Authorizer
	dialer   *websocket.Dialer
	log      zerolog.Logger
}

// NewPusherTransport creates a transport dialing url (ws[s]://host/app/KEY).
func NewPusherTransport(url, authPath string, auth Authorizer, log zerolog.Logger) *PusherTransport {
	return &PusherTransport{
		url:      url,
		authPath: authPath,
		auth:     auth,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		log:      log.With().Str("component", "pusher").Logger(),
	}
}

// pusherFrame is a single protocol message. Data is a JSON string on the
// wire for most events; see payload.
type pusherFrame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// payload returns Data with one level of string encoding removed.
func (f pusherFrame) payload() []byte {
	if len(f.Data) > 0 && f.Data[0] == '"' {
		var s string
		if err := json.Unmarshal(f.Data, &s); err == nil {
			return []byte(s)
		}
	}
	return f.Data
}

type connectionInfo struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

// Subscribe dials the server, authorizes channel when it is private and
// subscribes to it.
func (p *PusherTransport) Subscribe(
	ctx context.Context,
	token string,
	channel string,
	event string,
	deliver func([]byte),
) (io.Closer, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := p.dialer.DialContext(ctx, p.url, header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", p.url, err)
	}

	info, err := p.awaitEstablished(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	sub := map[string]string{"channel": channel}
	if strings.HasPrefix(channel, "private-") || strings.HasPrefix(channel, "presence-") {
		sig, err := p.auth.AuthorizeChannel(ctx, p.authPath, info.SocketID, channel)
		if err != nil {
			conn.Close()
			return nil, err
		}
		sub["auth"] = sig
	}

	s := &pusherSubscription{
		conn:    conn,
		channel: channel,
		event:   event,
		deliver: deliver,
		log:     p.log.With().Str("channel", channel).Logger(),
		done:    make(chan struct{}),
	}
	if err := s.send(pusherSubscribe, sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	interval := time.Duration(info.ActivityTimeout) * time.Second
	if interval <= 0 {
		interval = 120 * time.Second
	}
	go s.readLoop()
	go s.keepAlive(interval)
	return s, nil
}

func (p *PusherTransport) awaitEstablished(ctx context.Context, conn *websocket.Conn) (connectionInfo, error) {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		var f pusherFrame
		if err := conn.ReadJSON(&f); err != nil {
			return connectionInfo{}, fmt.Errorf("awaiting connection: %w", err)
		}
		switch f.Event {
		case pusherConnectionEstablished:
			var info connectionInfo
			if err := json.Unmarshal(f.payload(), &info); err != nil {
				return connectionInfo{}, fmt.Errorf("decoding connection info: %w", err)
			}
			if info.SocketID == "" {
				return connectionInfo{}, fmt.Errorf("server sent no socket id")
			}
			return info, nil
		case pusherError:
			return connectionInfo{}, fmt.Errorf("server refused connection: %s", f.payload())
		}
	}
}

type pusherSubscription struct {
	conn    *websocket.Conn
	channel string
	event   string
	deliver func([]byte)
	log     zerolog.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

func (s *pusherSubscription) send(event string, data interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(map[string]interface{}{"event": event, "data": data})
}

// matches reports whether name is the configured broadcast event. Laravel
// emits custom broadcastAs names with or without a leading dot.
func (s *pusherSubscription) matches(name string) bool {
	return name == s.event || strings.TrimPrefix(name, ".") == strings.TrimPrefix(s.event, ".")
}

func (s *pusherSubscription) readLoop() {
	defer s.shutdown()
	for {
		var f pusherFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn().Err(err).Msg("connection lost")
			}
			return
		}

		switch {
		case f.Event == pusherPing:
			if err := s.send(pusherPong, struct{}{}); err != nil {
				s.log.Warn().Err(err).Msg("sending pong")
			}
		case f.Event == pusherPong:
		case f.Event == pusherSubscribed:
			s.log.Debug().Msg("subscription confirmed")
		case f.Event == pusherError:
			s.log.Warn().Str("data", string(f.payload())).Msg("server error")
		case f.Channel == s.channel && s.matches(f.Event):
			s.deliver(f.payload())
		}
	}
}

func (s *pusherSubscription) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.send(pusherPing, struct{}{}); err != nil {
				s.log.Warn().Err(err).Msg("sending ping")
				return
			}
		}
	}
}

func (s *pusherSubscription) shutdown() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Close unsubscribes and closes the connection.
func (s *pusherSubscription) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	_ = s.send(pusherUnsubscribe, map[string]string{"channel": s.channel})
	s.shutdown()
	return nil
}
