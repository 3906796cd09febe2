// Package login renders the sign-in screen: email and password with a
// role, or a pasted Google callback URL.
package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/theme"
	"github.com/nhle/pgportal/internal/validate"
)

// SubmitMsg is dispatched when the credential form is completed.
type SubmitMsg struct {
	Form validate.LoginForm
}

// OAuthCallbackMsg is dispatched with the URL the browser landed on after
// Google sign-in.
type OAuthCallbackMsg struct {
	URL string
}

type mode int

const (
	modePassword mode = iota
	modeGoogle
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email       string
	password    string
	role        string
	callbackURL string
}

// Model is the Bubble Tea model for the login screen.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	mode      mode
	googleURL string
	errMsg    string
	notice    string
	busy      bool
	width     int
	height    int
}

// New creates a login model. googleURL is shown in Google mode.
func New(googleURL string, width, height int) Model {
	return Model{
		fb:        &formBindings{role: string(model.RoleStudent)},
		googleURL: googleURL,
		width:     width,
		height:    height,
	}
}

// Start resets transient state and builds the form for the current mode.
// The email and role of the last attempt are kept.
func (m *Model) Start() tea.Cmd {
	m.busy = false
	m.fb.password = ""
	m.fb.callbackURL = ""
	if m.mode == modeGoogle {
		m.form = m.buildGoogleForm()
	} else {
		m.form = m.buildPasswordForm()
	}
	return m.form.Init()
}

// SetError shows msg above the form and re-opens it.
func (m *Model) SetError(msg string) tea.Cmd {
	m.errMsg = msg
	return m.Start()
}

// SetNotice shows an informational line, e.g. after session expiry.
func (m *Model) SetNotice(msg string) {
	m.notice = msg
}

// ClearMessages drops any error or notice.
func (m *Model) ClearMessages() {
	m.errMsg = ""
	m.notice = ""
}

// Busy reports whether a sign-in request is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// Update handles messages for the login screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.busy {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+g" {
		if m.mode == modeGoogle {
			m.mode = modePassword
		} else {
			m.mode = modeGoogle
		}
		m.errMsg = ""
		return m, m.Start()
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, m.Start()
	}

	return m, cmd
}

func (m Model) handleSubmit() tea.Cmd {
	if m.mode == modeGoogle {
		url := strings.TrimSpace(m.fb.callbackURL)
		return func() tea.Msg { return OAuthCallbackMsg{URL: url} }
	}
	form := validate.LoginForm{
		Email:    strings.TrimSpace(m.fb.email),
		Password: m.fb.password,
		Role:     m.fb.role,
	}
	return func() tea.Msg { return SubmitMsg{Form: form} }
}

// View renders the login screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Postgraduate Portal: Sign in"))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(theme.NoticeStyle.Render(m.notice))
		b.WriteString("\n\n")
	}
	if m.errMsg != "" {
		b.WriteString(theme.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}

	if m.mode == modeGoogle {
		b.WriteString("Open this address in your browser, sign in, then paste the\n")
		b.WriteString("address you are redirected to below.\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBlue).Underline(true).Render(m.googleURL))
		b.WriteString("\n\n")
	}

	if m.busy {
		b.WriteString(theme.HelpStyle.Render("Signing in..."))
	} else if m.form != nil {
		b.WriteString(m.form.View())
	}

	b.WriteString("\n")
	switchHint := "ctrl+g sign in with Google"
	if m.mode == modeGoogle {
		switchHint = "ctrl+g sign in with email and password"
	}
	b.WriteString(theme.HelpStyle.Render(switchHint))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildPasswordForm() *huh.Form {
	roles := make([]huh.Option[string], len(model.Roles))
	for i, r := range model.Roles {
		roles[i] = huh.NewOption(r.Label(), string(r))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@university.edu").
				Value(&m.fb.email).
				Validate(required("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(required("Password")),
			huh.NewSelect[string]().
				Title("Sign in as").
				Options(roles...).
				Value(&m.fb.role),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m *Model) buildGoogleForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Callback address").
				Placeholder("http://.../auth/callback?token=...&role=...").
				Value(&m.fb.callbackURL).
				Validate(required("Callback address")),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func required(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
