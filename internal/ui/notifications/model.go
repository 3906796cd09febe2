package notifications

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/theme"
)

// ToggleReadMsg asks the parent to flip the read state of a notification.
type ToggleReadMsg struct {
	ID   string
	Read bool
}

// OpenRequestMsg asks the parent to show the linked progress update.
type OpenRequestMsg struct {
	ProgressUpdateID int64
}

// Model lists the user's notifications.
type Model struct {
	keys        *keys.KeyMap
	items       []model.Notification
	unread      int
	selectedIdx int
	offset      int
	status      string
	width       int
	height      int
}

// New creates a notification list model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetItems replaces the list, keeping the selection on the same id when
// possible.
func (m *Model) SetItems(items []model.Notification, unread int) {
	var selectedID string
	if m.selectedIdx < len(m.items) {
		selectedID = m.items[m.selectedIdx].ID
	}
	m.items = items
	m.unread = unread
	m.selectedIdx = 0
	for i, n := range items {
		if n.ID == selectedID {
			m.selectedIdx = i
			break
		}
	}
	m.clampOffset()
}

// SetStatus shows a one-line message under the list.
func (m *Model) SetStatus(s string) {
	m.status = s
}

// Selected returns the highlighted notification.
func (m Model) Selected() (model.Notification, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.items) {
		return model.Notification{}, false
	}
	return m.items[m.selectedIdx], true
}

// Update handles key input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.selectedIdx < len(m.items)-1 {
			m.selectedIdx++
			m.clampOffset()
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.clampOffset()
		}
	case key.Matches(keyMsg, m.keys.ToggleRead):
		n, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ToggleReadMsg{ID: n.ID, Read: !n.Read} }
	case key.Matches(keyMsg, m.keys.Select):
		n, ok := m.Selected()
		if !ok {
			return m, nil
		}
		var cmds []tea.Cmd
		if !n.Read {
			cmds = append(cmds, func() tea.Msg { return ToggleReadMsg{ID: n.ID, Read: true} })
		}
		if n.ProgressUpdateID != nil {
			id := *n.ProgressUpdateID
			cmds = append(cmds, func() tea.Msg { return OpenRequestMsg{ProgressUpdateID: id} })
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) visibleRows() int {
	rows := (m.height - 6) / 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.selectedIdx < m.offset {
		m.offset = m.selectedIdx
	}
	if m.selectedIdx >= m.offset+rows {
		m.offset = m.selectedIdx - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the notification list.
func (m Model) View() string {
	var b strings.Builder

	title := "Notifications"
	if m.unread > 0 {
		title = fmt.Sprintf("Notifications (%d unread)", m.unread)
	}
	b.WriteString(theme.TitleStyle.Render(title))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(theme.HelpStyle.Render("You're all caught up."))
	}

	end := m.offset + m.visibleRows()
	if end > len(m.items) {
		end = len(m.items)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderItem(m.items[i], i == m.selectedIdx))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.status))
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Render(b.String())
}

func (m Model) renderItem(n model.Notification, selected bool) string {
	marker := "●"
	if n.Read {
		marker = " "
	}
	label := theme.CategoryStyle(n.Category).Render(marker)

	meta := humanize.Time(n.CreatedAt)
	if n.CreatedAt.IsZero() {
		meta = ""
	}
	if n.ProgressUpdateID != nil {
		meta += fmt.Sprintf("  · progress update #%d", *n.ProgressUpdateID)
	}

	text := n.Message
	if n.Read {
		text = theme.DimmedStyle.Render(text)
	}
	line := label + " " + text + "\n    " + theme.HelpStyle.Render(meta)

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampOffset()
}
