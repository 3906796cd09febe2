package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/channel"
	"github.com/nhle/pgportal/internal/credential"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/notify"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/session"
	appsync "github.com/nhle/pgportal/internal/sync"
	"github.com/nhle/pgportal/internal/ui/login"
	"github.com/nhle/pgportal/internal/validate"
	"github.com/nhle/pgportal/tests/testutil"
)

type fakeSub struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeTransport struct {
	mu   sync.Mutex
	subs []*fakeSub
}

func (f *fakeTransport) Subscribe(
	ctx context.Context,
	token, ch, event string,
	deliver func([]byte),
) (io.Closer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func portalRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/login", func(w http.ResponseWriter, req *http.Request) {
		var body portal.LoginRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token":          "tok-" + string(body.Role),
			"user":           map[string]interface{}{"id": 7, "name": "Ada", "email": body.Email},
			"role":           body.Role,
			"has_study_plan": false,
			"unread_notifications": []map[string]interface{}{
				{"id": "n-1", "data": map[string]interface{}{"message": "Welcome back", "type": "info"}},
			},
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications/since-last-login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": "s-1", "data": map[string]interface{}{"message": "Already seen"}},
			{"id": "s-2", "data": map[string]interface{}{"message": "Missed while away"}},
		})
	}).Methods(http.MethodGet)
	return r
}

type harness struct {
	deps      Deps
	vault     *credential.MemoryVault
	transport *fakeTransport
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := httptest.NewServer(portalRouter())
	t.Cleanup(srv.Close)

	cfg := model.DefaultAppConfig()
	cfg.Realtime.Enabled = true

	log := zerolog.Nop()
	vault := credential.NewMemoryVault()
	st := testutil.NewTestStore(t)
	client := portal.NewClient(srv.URL, 5*time.Second, log)
	sess := session.NewStore(vault, session.Options{Expiry: time.Hour, Cache: st}, log)
	transport := &fakeTransport{}

	return &harness{
		vault:     vault,
		transport: transport,
		deps: Deps{
			Config:    cfg,
			Session:   sess,
			Portal:    client,
			Refresher: appsync.New(client, st, sess, appsync.Options{}, log),
			Channel: channel.NewAdapter(transport, channel.Config{
				Prefix: "private-notifications.", SharedTopic: "admin", Event: "notification.created",
			}, log),
			Registry:  notify.NewRegistry(notify.DefaultBound, 0),
			Displayed: notify.NewDisplayed(vault),
			Feed:      notify.NewFeed(client),
			Validator: validate.New(),
			Log:       log,
		},
	}
}

// drainSession feeds the next queued session event through Update.
func drainSession(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.waitForSessionEvent()()
	next, _ := m.Update(msg)
	return next.(Model)
}

// collect runs cmd and any batched commands, returning the messages that
// arrive before the deadline. Commands that block, such as event waiters,
// are abandoned.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	results := make(chan tea.Msg, 32)
	pending := 0
	run := func(c tea.Cmd) {
		if c == nil {
			return
		}
		pending++
		go func() { results <- c() }()
	}
	run(cmd)

	var msgs []tea.Msg
	deadline := time.After(500 * time.Millisecond)
	for pending > 0 {
		select {
		case msg := <-results:
			pending--
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					run(c)
				}
				continue
			}
			if msg != nil {
				msgs = append(msgs, msg)
			}
		case <-deadline:
			return msgs
		}
	}
	return msgs
}

// signIn starts a session directly and routes its event.
func signIn(t *testing.T, m Model, role model.Role, hasPlan bool) Model {
	t.Helper()
	require.NoError(t, m.deps.Session.Login(model.User{ID: 7, Name: "Ada"}, "tok", role, hasPlan))
	return drainSession(t, m)
}

func TestLandingView(t *testing.T) {
	tests := []struct {
		role    model.Role
		hasPlan bool
		want    ViewState
	}{
		{model.RoleAdmin, true, ViewSemesters},
		{model.RoleLecturer, true, ViewRequests},
		{model.RoleSupervisor, false, ViewRequests},
		{model.RoleExaminer, false, ViewRequests},
		{model.RoleStudent, true, ViewProgress},
		{model.RoleStudent, false, ViewRegistration},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, LandingView(tt.role, tt.hasPlan))
		})
	}
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(ViewSemesters, model.RoleAdmin, true))
	assert.False(t, Allowed(ViewSemesters, model.RoleLecturer, true))
	assert.True(t, Allowed(ViewRequests, model.RoleExaminer, false))
	assert.False(t, Allowed(ViewRequests, model.RoleStudent, true))
	assert.False(t, Allowed(ViewProgress, model.RoleStudent, false))
	assert.True(t, Allowed(ViewRegistration, model.RoleStudent, false))
	assert.True(t, Allowed(ViewNotifications, model.RoleStudent, false))
}

func TestRefreshTargetsOnlyIncludeRequestsOnRequestsView(t *testing.T) {
	base := []appsync.Target{appsync.TargetNotifications, appsync.TargetUnread}
	assert.Equal(t, base, refreshTargets(ViewNotifications))
	assert.Equal(t, base, refreshTargets(ViewSemesters))
	assert.Equal(t, append(base, appsync.TargetRequests), refreshTargets(ViewRequests))
}

func TestPasswordLoginLandsStudentOnRegistration(t *testing.T) {
	h := newHarness(t)
	m := New(h.deps)

	next, cmd := m.Update(login.SubmitMsg{Form: validate.LoginForm{
		Email: "ada@uni.edu", Password: "secret", Role: "student",
	}})
	require.NotNil(t, cmd)
	result := cmd()
	require.IsType(t, loginResultMsg{}, result)

	next, _ = next.Update(result)
	m = drainSession(t, next.(Model))

	assert.Equal(t, ViewRegistration, m.currentView)
	assert.Equal(t, "tok-student", h.deps.Portal.Token())

	visible := h.deps.Registry.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Welcome back", visible[0].Message)
	assert.True(t, h.deps.Displayed.Has("n-1"))
}

func TestLoginRejectedStaysOnLogin(t *testing.T) {
	h := newHarness(t)
	m := New(h.deps)

	next, cmd := m.Update(login.SubmitMsg{Form: validate.LoginForm{
		Email: "ada@uni.edu", Password: "wrong", Role: "lecturer",
	}})
	next, _ = next.Update(cmd())
	m = next.(Model)

	assert.Equal(t, ViewLogin, m.currentView)
	_, ok := h.deps.Session.Current()
	assert.False(t, ok)
	assert.Contains(t, m.loginView.View(), "Invalid credentials")
}

func TestLoginValidationRunsBeforeRequest(t *testing.T) {
	h := newHarness(t)
	m := New(h.deps)

	next, _ := m.Update(login.SubmitMsg{Form: validate.LoginForm{
		Email: "not-an-email", Password: "secret", Role: "student",
	}})
	assert.Contains(t, next.(Model).loginView.View(), "valid email")
}

func TestStaleResultsAreDropped(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleLecturer, true)
	gen := h.deps.Session.Generation()

	stale := appsync.ResultMsg{
		Target:        appsync.TargetNotifications,
		Generation:    gen - 1,
		Notifications: []model.Notification{{ID: "old", Message: "from before"}},
	}
	next, _ := m.Update(stale)
	assert.Empty(t, h.deps.Feed.Items())

	fresh := stale
	fresh.Generation = gen
	fresh.Notifications = []model.Notification{{ID: "new", Message: "current"}}
	next, _ = next.Update(fresh)
	require.Len(t, h.deps.Feed.Items(), 1)
	assert.Equal(t, "new", h.deps.Feed.Items()[0].ID)
}

func TestAuthErrorResultEndsSession(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleAdmin, true)
	assert.Equal(t, ViewSemesters, m.currentView)

	next, _ := m.Update(appsync.ResultMsg{
		Target:     appsync.TargetSemesters,
		Generation: h.deps.Session.Generation(),
		Err:        errors.New("unauthorized"),
		AuthError:  true,
	})
	_, ok := h.deps.Session.Current()
	assert.False(t, ok)

	m = drainSession(t, next.(Model))
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Contains(t, m.loginView.View(), "no longer accepts")
}

func TestChannelEventRaisesAlertOnce(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleLecturer, true)

	ev := channelEventMsg{event: channel.Event{NotificationID: "n-9", Message: "New submission", Category: "info"}}
	next, cmd := m.Update(ev)
	assert.NotNil(t, cmd)
	require.Len(t, h.deps.Registry.Visible(), 1)
	assert.True(t, h.deps.Displayed.Has("n-9"))

	// Dismissed notifications stay dismissed when the broadcast repeats.
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Empty(t, h.deps.Registry.Visible())
	next.Update(ev)
	assert.Empty(t, h.deps.Registry.Visible())
}

func TestLogoutTearsDownSessionState(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleLecturer, true)

	status := m.connectChannel(model.Session{User: model.User{ID: 7}, Token: "tok", Role: model.RoleLecturer}, h.deps.Session.Generation())()
	next, _ := m.Update(status)
	require.True(t, h.deps.Channel.Connected())

	next, _ = next.Update(channelEventMsg{event: channel.Event{Message: "Hello"}})
	require.Len(t, h.deps.Registry.Visible(), 1)

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'L'}})
	m = drainSession(t, next.(Model))

	assert.Equal(t, ViewLogin, m.currentView)
	assert.False(t, h.deps.Channel.Connected())
	assert.Empty(t, h.deps.Registry.Visible())
	assert.Equal(t, "", h.deps.Portal.Token())
	assert.Equal(t, 0, h.deps.Displayed.Len())
	assert.Equal(t, 0, h.vault.Len())
}

func TestSubscriptionFromEndedSessionIsClosed(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleStudent, true)
	gen := h.deps.Session.Generation()

	connect := m.connectChannel(model.Session{User: model.User{ID: 7}, Token: "tok", Role: model.RoleStudent}, gen)
	h.deps.Session.Logout(session.ReasonLogout)
	status := connect()

	m.Update(status)
	assert.False(t, h.deps.Channel.Connected())
	require.Len(t, h.transport.subs, 1)
	assert.True(t, h.transport.subs[0].isClosed())
}

func TestDismissAllKeepsNotificationsDismissed(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleLecturer, true)

	ev := channelEventMsg{event: channel.Event{NotificationID: "n-5", Message: "Review due"}}
	next, _ := m.Update(ev)
	require.Len(t, h.deps.Registry.Visible(), 1)

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'X'}})
	assert.Empty(t, h.deps.Registry.Visible())

	next.Update(ev)
	assert.Empty(t, h.deps.Registry.Visible())
}

func TestCachedListsIgnoredWithoutSession(t *testing.T) {
	h := newHarness(t)
	m := New(h.deps)

	next, _ := m.Update(appsync.CachedMsg{
		Generation:    h.deps.Session.Generation(),
		Notifications: []model.Notification{{ID: "n-1", Message: "someone else's"}},
		Requests:      []model.ProgressUpdate{{ID: 1, Title: "someone else's"}},
	})
	assert.Empty(t, h.deps.Feed.Items())
	assert.Nil(t, next.(Model).requests)
}

func TestRestoredSessionSurfacesOnlyUnseenNotifications(t *testing.T) {
	h := newHarness(t)
	earlier := session.NewStore(h.vault, session.Options{Expiry: time.Hour}, zerolog.Nop())
	require.NoError(t, earlier.Login(model.User{ID: 7, Name: "Ada"}, "tok", model.RoleLecturer, true))
	require.NoError(t, notify.NewDisplayed(h.vault).Add("s-1"))

	m := New(h.deps)
	_, ok := h.deps.Session.Restore(context.Background(), time.Now())
	require.True(t, ok)

	next, cmd := m.Update(m.waitForSessionEvent()())
	m = next.(Model)
	assert.Equal(t, ViewRequests, m.currentView)

	var missed []tea.Msg
	for _, msg := range collect(t, cmd) {
		if _, ok := msg.(missedMsg); ok {
			missed = append(missed, msg)
		}
	}
	require.Len(t, missed, 1)
	m.Update(missed[0])

	visible := h.deps.Registry.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "s-2", visible[0].NotificationID)
	assert.Equal(t, "Missed while away", visible[0].Message)
	assert.True(t, h.deps.Displayed.Has("s-2"))
}

func TestMissedNotificationsFromEndedSessionAreDropped(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, New(h.deps), model.RoleLecturer, true)
	stale := missedMsg{
		generation:    h.deps.Session.Generation() - 1,
		notifications: []model.Notification{{ID: "s-9", Message: "late"}},
	}
	m.Update(stale)
	assert.Empty(t, h.deps.Registry.Visible())
}

func TestFullSessionBufferStillTearsDownOnLogout(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.deps.Channel.Connect(context.Background(), "tok", channel.Subject{UserID: 7, Role: model.RoleLecturer}))
	h.deps.Registry.Enqueue(notify.Event{NotificationID: "n-1", Message: "hi"})

	ch := make(chan session.Event)
	forward := forwardSessionEvents(ch, h.deps)
	forward(session.Event{Kind: session.EventStarted, Generation: 1})
	assert.True(t, h.deps.Channel.Connected())

	forward(session.Event{Kind: session.EventCleared, Generation: 2})
	assert.False(t, h.deps.Channel.Connected())
	assert.Empty(t, h.deps.Registry.Visible())
}
