package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/pgportal/internal/channel"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/notify"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/session"
	appsync "github.com/nhle/pgportal/internal/sync"
	"github.com/nhle/pgportal/internal/validate"
)

// requestTimeout bounds one portal request made on behalf of the user.
const requestTimeout = 30 * time.Second

// sessionEventMsg carries a session lifecycle change to the UI goroutine.
type sessionEventMsg struct {
	event session.Event
}

// channelEventMsg carries one live notification.
type channelEventMsg struct {
	event channel.Event
}

// channelStatusMsg reports the outcome of a subscription attempt.
type channelStatusMsg struct {
	generation uint64
	err        error
}

// loginResultMsg is the outcome of a password or OAuth sign-in.
type loginResultMsg struct {
	result *portal.LoginResult
	err    error
}

// missedMsg carries the notifications that arrived while signed out.
type missedMsg struct {
	generation    uint64
	notifications []model.Notification
	err           error
}

type sweepTickMsg time.Time

// sweepTick schedules the next alert expiry sweep.
func sweepTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return sweepTickMsg(t)
	})
}

func (m Model) waitForSessionEvent() tea.Cmd {
	ch := m.sessionCh
	return func() tea.Msg {
		return sessionEventMsg{event: <-ch}
	}
}

func (m Model) waitForChannelEvent() tea.Cmd {
	events := m.deps.Channel.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return channelEventMsg{event: ev}
	}
}

// submitLogin validates the form locally before anything is sent.
func (m Model) submitLogin(f validate.LoginForm) (Model, tea.Cmd) {
	role, err := m.deps.Validator.Login(f)
	if err != nil {
		return m, m.loginView.SetError(err.Error())
	}

	m.loginView.ClearMessages()
	client := m.deps.Portal
	req := portal.LoginRequest{Email: f.Email, Password: f.Password, Role: role}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := client.Login(ctx, req)
		return loginResultMsg{result: res, err: err}
	}
}

// submitOAuth finishes a Google sign-in from the pasted callback URL.
func (m Model) submitOAuth(rawURL string) (Model, tea.Cmd) {
	token, role, err := portal.ParseOAuthCallback(rawURL)
	if err != nil {
		return m, m.loginView.SetError(err.Error())
	}

	m.loginView.ClearMessages()
	client := m.deps.Portal
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := client.CompleteOAuth(ctx, token, role)
		return loginResultMsg{result: res, err: err}
	}
}

func (m Model) handleLoginResult(msg loginResultMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		var authErr *portal.AuthError
		if errors.As(msg.err, &authErr) {
			return m, m.loginView.SetError(authErr.Message)
		}
		m.log.Warn().Err(msg.err).Msg("sign-in failed")
		return m, m.loginView.SetError(fmt.Sprintf("Could not sign in: %v", msg.err))
	}

	res := msg.result
	m.deps.Portal.SetToken(res.Token)
	if err := m.deps.Session.Login(res.User, res.Token, res.Role, res.HasStudyPlan); err != nil {
		m.deps.Portal.SetToken("")
		return m, m.loginView.SetError(err.Error())
	}

	if err := m.deps.Displayed.Load(); err != nil {
		m.log.Warn().Err(err).Msg("displayed notification set was unreadable, starting empty")
	}
	if _, err := notify.SurfaceUnseen(m.deps.Registry, m.deps.Displayed, res.Unread); err != nil {
		m.log.Warn().Err(err).Msg("persisting displayed notifications")
	}
	m.deps.Feed.SetUnread(len(res.Unread))
	m.resize()
	return m, nil
}

// handleSessionEvent switches the UI between the signed-in dashboards and
// the login screen. Both fresh logins and restores arrive here.
func (m Model) handleSessionEvent(e session.Event) (Model, tea.Cmd) {
	if e.Generation != m.deps.Session.Generation() {
		return m, nil
	}

	switch e.Kind {
	case session.EventStarted:
		sess := e.Session
		m.deps.Portal.SetToken(sess.Token)
		if m.deps.Displayed.Len() == 0 {
			if err := m.deps.Displayed.Load(); err != nil {
				m.log.Warn().Err(err).Msg("displayed notification set was unreadable, starting empty")
			}
		}
		m.helpView.SetRole(sess.Role)
		m.statusMsg = ""

		landing := LandingView(sess.Role, sess.HasStudyPlan)
		m.previousView = landing
		m.currentView = landing
		m.deps.Refresher.Refresh(appsync.TargetNotifications, appsync.TargetUnread)
		m.refreshView(landing)

		cmds := []tea.Cmd{m.connectChannel(sess, e.Generation)}
		if e.Restored {
			// Password and OAuth logins surface these from the login response.
			cmds = append(cmds, m.fetchMissed(e.Generation))
		}
		if landing == ViewRegistration {
			cmds = append(cmds, m.registerView.Start())
		}
		return m, tea.Batch(cmds...)

	case session.EventCleared:
		m.deps.Channel.Disconnect()
		m.deps.Registry.ClearAll()
		m.deps.Feed.Clear()
		m.deps.Displayed.Clear()
		m.deps.Portal.SetToken("")

		m.requests = nil
		m.notificationsView.SetItems(nil, 0)
		m.requestsView.SetItems(nil)
		m.progressView.SetItems(nil)
		m.semestersView.SetItems(nil)
		m.registerView.SetSemesters(nil)
		m.statusMsg = ""

		m.loginView.ClearMessages()
		switch e.Reason {
		case session.ReasonExpired:
			m.loginView.SetNotice("Your session expired. Please sign in again.")
		case session.ReasonAuthRejected:
			m.loginView.SetNotice("The portal no longer accepts your session. Please sign in again.")
		}
		m.currentView = ViewLogin
		m.previousView = ViewLogin
		m.resize()
		return m, m.loginView.Start()
	}

	return m, nil
}

// fetchMissed loads the notifications created since the last login.
func (m Model) fetchMissed(gen uint64) tea.Cmd {
	client := m.deps.Portal
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ns, err := client.NotificationsSinceLastLogin(ctx)
		return missedMsg{generation: gen, notifications: ns, err: err}
	}
}

// handleMissed raises alerts for missed notifications not shown before.
func (m Model) handleMissed(msg missedMsg) (Model, tea.Cmd) {
	if msg.generation != m.deps.Session.Generation() {
		return m, nil
	}
	if msg.err != nil {
		if portal.IsAuthError(msg.err) {
			m.deps.Session.Logout(session.ReasonAuthRejected)
			return m, nil
		}
		m.log.Warn().Err(msg.err).Msg("fetching notifications since last login")
		return m, nil
	}
	if _, err := notify.SurfaceUnseen(m.deps.Registry, m.deps.Displayed, msg.notifications); err != nil {
		m.log.Warn().Err(err).Msg("persisting displayed notifications")
	}
	m.resize()
	return m, nil
}

// connectChannel subscribes to live notifications for sess.
func (m Model) connectChannel(sess model.Session, gen uint64) tea.Cmd {
	if !m.deps.Config.Realtime.Enabled {
		return nil
	}
	adapter := m.deps.Channel
	subject := channel.Subject{UserID: sess.User.ID, Role: sess.Role}
	token := sess.Token
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return channelStatusMsg{generation: gen, err: adapter.Connect(ctx, token, subject)}
	}
}

func (m Model) handleChannelStatus(msg channelStatusMsg) (Model, tea.Cmd) {
	// The session changed while the handshake was in flight.
	if msg.generation != m.deps.Session.Generation() {
		m.deps.Channel.Disconnect()
		return m, nil
	}
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("realtime unavailable, falling back to polling")
		m.statusMsg = "Live notifications unavailable; polling instead"
	}
	return m, nil
}

// handleChannelEvent surfaces a live notification and refetches what it
// may have changed.
func (m Model) handleChannelEvent(ev channel.Event) (Model, tea.Cmd) {
	wait := m.waitForChannelEvent()
	if _, ok := m.deps.Session.Current(); !ok {
		return m, wait
	}

	_, shown := m.deps.Registry.Enqueue(notify.Event{
		NotificationID: ev.NotificationID,
		Message:        ev.Message,
		Category:       ev.Category,
	})
	if shown && ev.NotificationID != "" {
		if err := m.deps.Displayed.Add(ev.NotificationID); err != nil {
			m.log.Warn().Err(err).Msg("persisting displayed notifications")
		}
	}

	m.deps.Refresher.Refresh(refreshTargets(m.currentView)...)
	m.resize()
	return m, wait
}
