package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/pgportal/internal/channel"
	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/notify"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/session"
	appsync "github.com/nhle/pgportal/internal/sync"
	"github.com/nhle/pgportal/internal/ui"
	"github.com/nhle/pgportal/internal/ui/command"
	helpview "github.com/nhle/pgportal/internal/ui/help"
	"github.com/nhle/pgportal/internal/ui/login"
	"github.com/nhle/pgportal/internal/ui/notifications"
	"github.com/nhle/pgportal/internal/ui/register"
	"github.com/nhle/pgportal/internal/ui/requests"
	"github.com/nhle/pgportal/internal/ui/semesters"
	"github.com/nhle/pgportal/internal/validate"
)

// Deps are the long-lived services the root model drives.
type Deps struct {
	Config    *model.AppConfig
	Session   *session.Store
	Portal    *portal.Client
	Refresher *appsync.Refresher
	Channel   *channel.Adapter
	Registry  *notify.Registry
	Displayed *notify.Displayed
	Feed      *notify.Feed
	Validator *validate.Validator
	Log       zerolog.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the session-scoped services.
type Model struct {
	deps Deps
	log  zerolog.Logger

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	loginView         login.Model
	notificationsView notifications.Model
	requestsView      requests.Model
	progressView      requests.Model
	semestersView     semesters.Model
	registerView      register.Model
	helpView          helpview.Model
	commandView       command.Model

	sessionCh chan session.Event

	// requests is the last known progress update list, kept for
	// optimistic review changes.
	requests []model.ProgressUpdate

	statusMsg string
	ready     bool
}

// sessionBuffer is how many session events may wait for the update loop.
const sessionBuffer = 8

// forwardSessionEvents hands session events to the update loop without
// blocking the goroutine that changed the session. When the buffer is full
// the event is logged and dropped; a dropped EventCleared still tears down
// the live subscription and the alerts so nothing outlives the session.
func forwardSessionEvents(ch chan<- session.Event, d Deps) session.Listener {
	log := d.Log.With().Str("component", "app").Logger()
	return func(e session.Event) {
		select {
		case ch <- e:
			return
		default:
		}
		log.Warn().
			Int("kind", int(e.Kind)).
			Uint64("generation", e.Generation).
			Msg("session event buffer full, dropping event")
		if e.Kind == session.EventCleared {
			d.Channel.Disconnect()
			d.Registry.ClearAll()
		}
	}
}

// New creates the root model and subscribes it to session events. Create
// it before restoring a session so the restore event is not missed.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	ch := make(chan session.Event, sessionBuffer)
	d.Session.Subscribe(forwardSessionEvents(ch, d))

	return Model{
		deps:              d,
		log:               d.Log.With().Str("component", "app").Logger(),
		currentView:       ViewLogin,
		keys:              k,
		loginView:         login.New(d.Portal.GoogleLoginURL(), 80, 24),
		notificationsView: notifications.New(k, 80, 24),
		requestsView:      requests.New(k, 80, 24),
		progressView:      requests.NewReadOnly(k, 80, 24),
		semestersView:     semesters.New(d.Portal, d.Validator, k, 80, 24),
		registerView:      register.New(d.Portal, d.Validator, 80, 24),
		helpView:          helpview.New(k, 80, 24),
		commandView:       command.New(80, 24),
		sessionCh:         ch,
	}
}

// Init starts the background loops and shows the login form until a
// session event says otherwise.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loginView.Start(),
		m.deps.Refresher.LoadCached(),
		m.deps.Refresher.Start(),
		m.waitForSessionEvent(),
		m.waitForChannelEvent(),
		sweepTick(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case sessionEventMsg:
		next, cmd := m.handleSessionEvent(msg.event)
		return next, tea.Batch(cmd, m.waitForSessionEvent())

	case channelEventMsg:
		return m.handleChannelEvent(msg.event)

	case channelStatusMsg:
		return m.handleChannelStatus(msg)

	case missedMsg:
		return m.handleMissed(msg)

	case sweepTickMsg:
		m.deps.Registry.Sweep(time.Time(msg))
		return m, sweepTick()

	case login.SubmitMsg:
		return m.submitLogin(msg.Form)

	case login.OAuthCallbackMsg:
		return m.submitOAuth(msg.URL)

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case appsync.ResultMsg:
		next, cmd := m.handleResult(msg)
		return next, tea.Batch(cmd, m.deps.Refresher.WaitForNextResult())

	case appsync.CachedMsg:
		return m.handleCached(msg), nil

	case notifications.ToggleReadMsg:
		return m, m.setRead(msg.ID, msg.Read)

	case readStateMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Could not update notification: %v", msg.err)
		}
		m.notificationsView.SetItems(m.deps.Feed.Items(), m.deps.Feed.Unread())
		return m, nil

	case notifications.OpenRequestMsg:
		return m.openRequest(msg.ProgressUpdateID)

	case requests.ReviewMsg:
		return m.review(msg)

	case reviewResultMsg:
		return m.handleReviewResult(msg)

	case semesters.ChangedMsg:
		m.deps.Refresher.Refresh(appsync.TargetSemesters)
		var cmd tea.Cmd
		m.semestersView, cmd = m.semestersView.Update(msg)
		return m, cmd

	case register.RegisteredMsg:
		m.deps.Session.SetHasStudyPlan(true)
		m.statusMsg = "Study plan registered"
		return m.navigate(ViewProgress)

	case avatarResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Upload failed: %v", msg.err)
		} else {
			m.statusMsg = "Profile picture updated"
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case tea.MouseMsg:
		m.deps.Session.Touch(time.Now())

	case tea.KeyMsg:
		m.deps.Session.Touch(time.Now())
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	w := m.layout.ContentWidth(len(m.deps.Registry.Visible()) > 0)
	h := m.layout.ContentHeight()
	m.loginView.SetSize(w, h)
	m.notificationsView.SetSize(w, h)
	m.requestsView.SetSize(w, h)
	m.progressView.SetSize(w, h)
	m.semestersView.SetSize(w, h)
	m.registerView.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

// capturingInput reports whether the active view owns the keyboard.
func (m Model) capturingInput() bool {
	switch m.currentView {
	case ViewLogin, ViewRegistration, ViewCommand:
		return true
	case ViewSemesters:
		return m.semestersView.Editing()
	default:
		return false
	}
}

// handleGlobalKey processes keys that work regardless of the current view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, m.quit(), true
	}
	if m.capturingInput() {
		if m.currentView == ViewCommand && key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit(), true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.helpView.SetRole(m.role())
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return m, nil, true

	case key.Matches(msg, m.keys.Refresh):
		m.refreshView(m.currentView)
		m.statusMsg = "Refreshing..."
		return m, nil, true

	case key.Matches(msg, m.keys.Notifications):
		next, cmd := m.navigate(ViewNotifications)
		return next, cmd, true

	case key.Matches(msg, m.keys.Requests):
		next, cmd := m.navigate(ViewRequests)
		return next, cmd, true

	case key.Matches(msg, m.keys.Semesters):
		next, cmd := m.navigate(ViewSemesters)
		return next, cmd, true

	case key.Matches(msg, m.keys.Progress):
		next, cmd := m.navigate(m.studentHome())
		return next, cmd, true

	case key.Matches(msg, m.keys.Dismiss):
		if visible := m.deps.Registry.Visible(); len(visible) > 0 {
			m.deps.Registry.Dismiss(visible[0].ID)
			m.resize()
			return m, nil, true
		}

	case key.Matches(msg, m.keys.DismissAll):
		m.deps.Registry.DismissAll()
		m.resize()
		return m, nil, true

	case key.Matches(msg, m.keys.Logout):
		m.deps.Session.Logout(session.ReasonLogout)
		return m, nil, true
	}

	return m, nil, false
}

// navigate opens view when the signed-in role may see it.
func (m Model) navigate(view ViewState) (Model, tea.Cmd) {
	sess, ok := m.deps.Session.Current()
	if !ok {
		m.currentView = ViewLogin
		return m, nil
	}
	if !Allowed(view, sess.Role, sess.HasStudyPlan) {
		m.statusMsg = fmt.Sprintf("%s is not available to %s accounts", view, sess.Role.Label())
		return m, nil
	}

	m.previousView = m.currentView
	m.currentView = view
	m.refreshView(view)

	if view == ViewRegistration {
		return m, m.registerView.Start()
	}
	return m, nil
}

// studentHome is where the progress key leads a student.
func (m Model) studentHome() ViewState {
	if sess, ok := m.deps.Session.Current(); ok && !sess.HasStudyPlan {
		return ViewRegistration
	}
	return ViewProgress
}

func (m Model) refreshView(view ViewState) {
	if _, ok := m.deps.Session.Current(); !ok {
		return
	}
	m.deps.Refresher.Refresh(openTargets(view)...)
}

func (m Model) role() model.Role {
	if sess, ok := m.deps.Session.Current(); ok {
		return sess.Role
	}
	return ""
}

func (m Model) quit() tea.Cmd {
	m.deps.Refresher.Stop()
	m.deps.Channel.Disconnect()
	return tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewNotifications:
		m.notificationsView, cmd = m.notificationsView.Update(msg)
	case ViewRequests:
		m.requestsView, cmd = m.requestsView.Update(msg)
	case ViewProgress:
		m.progressView, cmd = m.progressView.Update(msg)
	case ViewSemesters:
		m.semestersView, cmd = m.semestersView.Update(msg)
	case ViewRegistration:
		m.registerView, cmd = m.registerView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "PG Portal"
	if unread := m.deps.Feed.Unread(); unread > 0 {
		title = fmt.Sprintf("PG Portal [%d unread]", unread)
	}

	identity := ""
	var role model.Role
	if sess, ok := m.deps.Session.Current(); ok {
		identity = sess.User.Name
		role = sess.Role
	}

	header := m.layout.RenderHeader(title, identity, role, m.connectionStatus())
	alerts := m.layout.RenderAlerts(m.deps.Registry.Visible(), m.deps.Registry.Pending())
	body := m.layout.RenderBody(m.renderContent(), alerts)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, body, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewNotifications:
		return m.notificationsView.View()
	case ViewRequests:
		return m.requestsView.View()
	case ViewProgress:
		return m.progressView.View()
	case ViewSemesters:
		return m.semestersView.View()
	case ViewRegistration:
		return m.registerView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// connectionStatus describes how notifications currently arrive.
func (m Model) connectionStatus() string {
	if _, ok := m.deps.Session.Current(); !ok {
		return "signed out"
	}
	if m.deps.Channel.Connected() {
		return "live"
	}
	return "polling"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" && m.currentView != ViewLogin {
		return m.statusMsg
	}

	var hints []string
	switch m.currentView {
	case ViewLogin:
		return "enter submit | ctrl+g google sign-in | ctrl+c quit"
	case ViewRegistration:
		return "enter submit | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewNotifications:
		hints = []string{"m read/unread", "enter open"}
	case ViewRequests:
		hints = []string{"A approve", "R reject", "P pending", "tab filter"}
	case ViewSemesters:
		if m.semestersView.Editing() {
			return "enter submit | esc cancel"
		}
		hints = []string{"n new", "e edit", "d delete"}
	case ViewProgress:
		hints = []string{"tab filter"}
	}
	if len(m.deps.Registry.Visible()) > 0 {
		hints = append(hints, "x dismiss", "X dismiss all")
	}
	hints = append(hints, "r refresh", "? help", "L logout", "q quit")
	return strings.Join(hints, " | ")
}
