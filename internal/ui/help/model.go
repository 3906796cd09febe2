package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	role   model.Role
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetRole selects the dashboard summary shown above the shortcuts.
func (m *Model) SetRole(r model.Role) {
	m.role = r
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) summary() string {
	switch {
	case m.role == model.RoleAdmin:
		return "Administrator: manage semesters (3) and follow portal-wide notifications (1)."
	case m.role.IsLecturer():
		return "Review your students' progress updates (2); approve with A, reject with R."
	case m.role == model.RoleStudent:
		return "Track your submitted progress updates (4) and the replies to them (1)."
	default:
		return "Sign in to reach your dashboard."
	}
}

// View renders the help overlay.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Keyboard Shortcuts")
	summary := theme.HelpStyle.Render(m.summary())

	m.help.Width = m.width - 4
	helpText := m.help.View(m.keys)

	content := lipgloss.JoinVertical(lipgloss.Left, title, summary, "", helpText)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
