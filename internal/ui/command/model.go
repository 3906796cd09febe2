package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/theme"
)

// CommandMsg is emitted when the user executes a command. Name is the
// first word, Args the rest of the line.
type CommandMsg struct {
	Name string
	Args string
}

// Commands lists the palette commands offered as completions.
var Commands = []string{
	"refresh",
	"notifications",
	"requests",
	"semesters",
	"progress",
	"dismiss all",
	"avatar ",
	"logout",
	"quit",
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command... (tab completes)"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Commands)
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Parse splits a command line into its name and arguments.
func Parse(line string) CommandMsg {
	line = strings.TrimSpace(line)
	name, args, _ := strings.Cut(line, " ")
	if name == "dismiss" && strings.TrimSpace(args) == "all" {
		return CommandMsg{Name: "dismiss all"}
	}
	return CommandMsg{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		parsed := Parse(line)
		return m, func() tea.Msg { return parsed }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Command Palette")
	hint := theme.HelpStyle.Render("avatar <path> uploads a profile picture")

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View(), "", hint)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
