package login

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/validate"
)

const googleURL = "https://portal.example.edu/auth/google"

func ctrlG() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyCtrlG}
}

func TestUpdateBeforeStartIsIgnored(t *testing.T) {
	m := New(googleURL, 80, 24)
	_, cmd := m.Update(ctrlG())
	assert.Nil(t, cmd)
}

func TestCtrlGSwitchesSignInMode(t *testing.T) {
	m := New(googleURL, 80, 24)
	m.Start()
	assert.NotContains(t, m.View(), googleURL)

	m, cmd := m.Update(ctrlG())
	assert.NotNil(t, cmd)
	assert.Equal(t, modeGoogle, m.mode)
	assert.Contains(t, m.View(), googleURL)
	assert.Contains(t, m.View(), "sign in with email and password")

	m, _ = m.Update(ctrlG())
	assert.Equal(t, modePassword, m.mode)
	assert.Contains(t, m.View(), "sign in with Google")
}

func TestSwitchingModeClearsError(t *testing.T) {
	m := New(googleURL, 80, 24)
	m.SetError("Invalid credentials")
	assert.Contains(t, m.View(), "Invalid credentials")

	m, _ = m.Update(ctrlG())
	assert.NotContains(t, m.View(), "Invalid credentials")
}

func TestPasswordSubmitTrimsEmail(t *testing.T) {
	m := New(googleURL, 80, 24)
	m.Start()
	m.fb.email = "  ada@uni.edu "
	m.fb.password = "secret"
	m.fb.role = string(model.RoleSupervisor)

	msg := m.handleSubmit()()
	assert.Equal(t, SubmitMsg{Form: validate.LoginForm{
		Email: "ada@uni.edu", Password: "secret", Role: "supervisor",
	}}, msg)
}

func TestGoogleSubmitSendsCallback(t *testing.T) {
	m := New(googleURL, 80, 24)
	m.Start()
	m, _ = m.Update(ctrlG())
	m.fb.callbackURL = " http://localhost/auth/callback?token=t&role=student\n"

	msg := m.handleSubmit()()
	assert.Equal(t, OAuthCallbackMsg{URL: "http://localhost/auth/callback?token=t&role=student"}, msg)
}

func TestStartKeepsEmailAndRoleButNotPassword(t *testing.T) {
	m := New(googleURL, 80, 24)
	assert.Equal(t, string(model.RoleStudent), m.fb.role)

	m.fb.email = "ada@uni.edu"
	m.fb.password = "secret"
	m.fb.role = string(model.RoleExaminer)
	m.busy = true

	require.NotNil(t, m.Start())
	assert.False(t, m.Busy())
	assert.Equal(t, "ada@uni.edu", m.fb.email)
	assert.Equal(t, string(model.RoleExaminer), m.fb.role)
	assert.Empty(t, m.fb.password)
}

func TestBusyIgnoresInput(t *testing.T) {
	m := New(googleURL, 80, 24)
	m.Start()
	m.busy = true

	m, cmd := m.Update(ctrlG())
	assert.Nil(t, cmd)
	assert.Equal(t, modePassword, m.mode)
	assert.Contains(t, m.View(), "Signing in...")
}

func TestNoticeAndClearMessages(t *testing.T) {
	m := New(googleURL, 80, 24)
	m.Start()
	m.SetNotice("Your session expired. Please sign in again.")
	m.SetError("Could not sign in")
	assert.Contains(t, m.View(), "session expired")

	m.ClearMessages()
	assert.NotContains(t, m.View(), "session expired")
	assert.NotContains(t, m.View(), "Could not sign in")
}
