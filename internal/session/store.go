// Package session keeps the authenticated identity, its credential and the
// idle-timeout state machine, and persists them in the credential vault.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nhle/pgportal/internal/credential"
	"github.com/nhle/pgportal/internal/model"
)

// ErrEmptyToken is returned by Login when no credential is supplied.
var ErrEmptyToken = errors.New("login requires a non-empty token")

// Reason explains why a session ended.
type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonExpired      Reason = "expired"
	ReasonAuthRejected Reason = "auth_rejected"
)

// EventKind distinguishes session lifecycle notifications.
type EventKind int

const (
	// EventStarted fires after login or a successful restore.
	EventStarted EventKind = iota

	// EventCleared fires after logout, including expiry.
	EventCleared
)

// Event is delivered to listeners on every lifecycle change.
type Event struct {
	Kind       EventKind
	Reason     Reason
	Session    model.Session
	Generation uint64

	// Restored is set when EventStarted resumes a persisted session.
	Restored bool
}

// Listener receives session events. Listeners run synchronously on the
// goroutine that changed the session and must not call back into Logout.
type Listener func(Event)

// Controller is the narrow capability handed to components that may end
// the session (views, the expiry scheduler, auth error handling).
type Controller interface {
	Logout(reason Reason)
}

// Validator confirms a persisted credential with the portal and returns
// the identity behind it.
type Validator interface {
	Validate(ctx context.Context, token string) (*model.User, error)
}

// Wiper clears locally cached domain data at logout.
type Wiper interface {
	Wipe(ctx context.Context) error
}

// Options configures a Store.
type Options struct {
	// Expiry is the idle timeout measured from IssuedAt.
	Expiry time.Duration

	// RestorePolicy is model.RestorePolicyTrust or model.RestorePolicyValidate.
	RestorePolicy string

	// TrustWindow is the maximum session age resumed without validation
	// under the trust policy.
	TrustWindow time.Duration

	// PersistEvery throttles how often activity refreshes of IssuedAt are
	// written to the vault. The in-memory value is always current.
	PersistEvery time.Duration

	// Validator is consulted by Restore when validation is required.
	Validator Validator

	// Cache is wiped at logout when set.
	Cache Wiper
}

// Store holds the current session.
type Store struct {
	vault credential.Vault
	opts  Options
	log   zerolog.Logger

	mu         sync.Mutex
	current    model.Session
	generation uint64
	persist    *rate.Limiter

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

// NewStore creates a session store persisting into vault.
func NewStore(vault credential.Vault, opts Options, log zerolog.Logger) *Store {
	if opts.Expiry <= 0 {
		opts.Expiry = time.Hour
	}
	if opts.TrustWindow <= 0 || opts.TrustWindow > opts.Expiry {
		opts.TrustWindow = opts.Expiry
	}
	if opts.RestorePolicy == "" {
		opts.RestorePolicy = model.RestorePolicyTrust
	}
	if opts.PersistEvery <= 0 {
		opts.PersistEvery = 30 * time.Second
	}
	return &Store{
		vault:     vault,
		opts:      opts,
		log:       log.With().Str("component", "session").Logger(),
		persist:   rate.NewLimiter(rate.Every(opts.PersistEvery), 1),
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers l for lifecycle events and returns a function that
// removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) emit(e Event) {
	s.listenersMu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.listenersMu.Unlock()

	for _, l := range ls {
		l(e)
	}
}

// Current returns a copy of the session and whether it is active.
func (s *Store) Current() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current.Active()
}

// Generation returns a counter incremented on every login and logout.
// Responses dispatched under an older generation are stale.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Login starts a session for user, stamps IssuedAt and persists all fields.
func (s *Store) Login(user model.User, token string, role model.Role, hasStudyPlan bool) error {
	if token == "" {
		return ErrEmptyToken
	}

	sess := model.Session{
		User:         user,
		Token:        token,
		Role:         role,
		IssuedAt:     time.Now(),
		HasStudyPlan: hasStudyPlan,
	}

	s.mu.Lock()
	s.current = sess
	s.generation++
	gen := s.generation
	s.persistLocked()
	s.mu.Unlock()

	s.log.Info().
		Int64("user_id", user.ID).
		Str("role", string(role)).
		Uint64("generation", gen).
		Msg("session started")

	s.emit(Event{Kind: EventStarted, Session: sess, Generation: gen})
	return nil
}

// Logout clears the session from memory, the vault and the local cache,
// then notifies listeners. It is safe to call without an active session.
func (s *Store) Logout(reason Reason) {
	s.mu.Lock()
	s.endLocked(reason)
}

// endLocked ends the current session. s.mu must be held and is released.
func (s *Store) endLocked(reason Reason) {
	prev := s.current
	s.current = model.Session{}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.discardPersisted()

	s.log.Info().
		Str("reason", string(reason)).
		Int64("user_id", prev.User.ID).
		Uint64("generation", gen).
		Msg("session cleared")

	s.emit(Event{Kind: EventCleared, Reason: reason, Session: prev, Generation: gen})
}

// SetHasStudyPlan records that the student has registered a study plan.
func (s *Store) SetHasStudyPlan(has bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.Active() {
		return
	}
	s.current.HasStudyPlan = has
	s.setLocked(credential.KeyHasStudyPlan, strconv.FormatBool(has))
}

// CheckExpiry logs out when the session has been idle for longer than the
// expiry window. It reports whether the session expired.
func (s *Store) CheckExpiry(now time.Time) bool {
	s.mu.Lock()
	if !s.current.Active() || s.current.Age(now) <= s.opts.Expiry {
		s.mu.Unlock()
		return false
	}
	s.endLocked(ReasonExpired)
	return true
}

// Touch records user activity. An already expired session is logged out
// (and Touch reports true); otherwise IssuedAt slides forward to now.
func (s *Store) Touch(now time.Time) bool {
	if s.CheckExpiry(now) {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.Active() {
		return false
	}
	s.current.IssuedAt = now
	if s.persist.AllowN(now, 1) {
		s.setLocked(credential.KeyIssuedAt, formatTime(now))
	}
	return false
}

// Restore resumes a persisted session. Missing, partial or stale fields
// yield no session and are removed together with the local cache; nothing
// here is reported as an error.
func (s *Store) Restore(ctx context.Context, now time.Time) (model.Session, bool) {
	sess, ok := s.readPersisted()
	if !ok {
		s.discardPersisted()
		return model.Session{}, false
	}

	if tokenExpired(sess.Token, now) {
		s.log.Info().Msg("persisted token has expired")
		s.discardPersisted()
		return model.Session{}, false
	}

	age := sess.Age(now)
	if age > s.opts.Expiry {
		s.log.Info().Dur("age", age).Msg("persisted session is past the idle timeout")
		s.discardPersisted()
		return model.Session{}, false
	}

	trusted := s.opts.RestorePolicy == model.RestorePolicyTrust && age <= s.opts.TrustWindow
	if !trusted {
		if s.opts.Validator == nil {
			s.log.Info().Msg("restore needs validation but no validator is configured")
			return model.Session{}, false
		}
		user, err := s.opts.Validator.Validate(ctx, sess.Token)
		if err != nil {
			s.log.Warn().Err(err).Msg("persisted session failed validation")
			s.discardPersisted()
			return model.Session{}, false
		}
		if user != nil {
			sess.User = *user
		}
	}

	s.mu.Lock()
	s.current = sess
	s.generation++
	gen := s.generation
	if !trusted {
		s.persistLocked()
	}
	s.mu.Unlock()

	s.log.Info().
		Bool("validated", !trusted).
		Str("role", string(sess.Role)).
		Msg("session restored")

	s.emit(Event{Kind: EventStarted, Session: sess, Generation: gen, Restored: true})
	return sess, true
}

// readPersisted loads the four required fields plus the study plan flag.
func (s *Store) readPersisted() (model.Session, bool) {
	token, err := s.vault.Get(credential.KeyToken)
	if err != nil || token == "" {
		return model.Session{}, false
	}
	issuedRaw, err := s.vault.Get(credential.KeyIssuedAt)
	if err != nil {
		return model.Session{}, false
	}
	issuedAt, err := time.Parse(time.RFC3339Nano, issuedRaw)
	if err != nil {
		return model.Session{}, false
	}
	userRaw, err := s.vault.Get(credential.KeyUser)
	if err != nil {
		return model.Session{}, false
	}
	var user model.User
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		return model.Session{}, false
	}
	roleRaw, err := s.vault.Get(credential.KeyRole)
	if err != nil {
		return model.Session{}, false
	}
	role := model.Role(roleRaw)
	if !role.Valid() {
		return model.Session{}, false
	}

	hasPlan := role != model.RoleStudent
	if raw, err := s.vault.Get(credential.KeyHasStudyPlan); err == nil {
		if v, err := strconv.ParseBool(raw); err == nil {
			hasPlan = v
		}
	}

	return model.Session{
		User:         user,
		Token:        token,
		Role:         role,
		IssuedAt:     issuedAt,
		HasStudyPlan: hasPlan,
	}, true
}

// discardPersisted removes every persisted session field and wipes the
// local cache. Listeners are not notified.
func (s *Store) discardPersisted() {
	for _, key := range credential.SessionKeys {
		if err := s.vault.Remove(key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("removing persisted session field")
		}
	}

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Wipe(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("wiping local cache")
		}
	}
}

// persistLocked writes every session field. s.mu must be held.
func (s *Store) persistLocked() {
	user, err := json.Marshal(s.current.User)
	if err != nil {
		s.log.Error().Err(err).Msg("encoding user for persistence")
		return
	}
	s.setLocked(credential.KeyUser, string(user))
	s.setLocked(credential.KeyToken, s.current.Token)
	s.setLocked(credential.KeyRole, string(s.current.Role))
	s.setLocked(credential.KeyIssuedAt, formatTime(s.current.IssuedAt))
	s.setLocked(credential.KeyHasStudyPlan, strconv.FormatBool(s.current.HasStudyPlan))
}

func (s *Store) setLocked(key, value string) {
	if err := s.vault.Set(key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("persisting session field")
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
