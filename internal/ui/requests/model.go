// Package requests shows progress updates awaiting review and lets
// lecturers and administrators decide on them.
package requests

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/theme"
)

// ReviewMsg asks the parent to apply a decision to a progress update.
type ReviewMsg struct {
	ID       int64
	Decision string
}

// statusFilters is cycled by the filter key; "" shows everything.
var statusFilters = []string{
	model.ProgressPending,
	"",
	model.ProgressApproved,
	model.ProgressRejected,
}

// Model lists progress updates. With readOnly set (the student's own
// progress view) review keys are ignored.
type Model struct {
	keys        *keys.KeyMap
	title       string
	readOnly    bool
	all         []model.ProgressUpdate
	items       []model.ProgressUpdate
	filterIdx   int
	selectedIdx int
	status      string
	width       int
	height      int
}

// New creates a review list.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, title: "Progress Requests", width: width, height: height}
}

// NewReadOnly creates the student's own progress list.
func NewReadOnly(k *keys.KeyMap, width, height int) Model {
	m := New(k, width, height)
	m.title = "My Progress Updates"
	m.readOnly = true
	m.filterIdx = 1
	return m
}

// SetItems replaces the list.
func (m *Model) SetItems(items []model.ProgressUpdate) {
	m.all = items
	m.applyFilter()
}

// SetStatus shows a one-line message under the list.
func (m *Model) SetStatus(s string) {
	m.status = s
}

// Focus selects the update with id, clearing the filter if needed.
func (m *Model) Focus(id int64) bool {
	for pass := 0; pass < 2; pass++ {
		for i, u := range m.items {
			if u.ID == id {
				m.selectedIdx = i
				return true
			}
		}
		m.filterIdx = 1
		m.applyFilter()
	}
	return false
}

// Filter returns the active status filter; "" means all.
func (m Model) Filter() string {
	return statusFilters[m.filterIdx]
}

func (m *Model) applyFilter() {
	var selectedID int64
	if m.selectedIdx < len(m.items) {
		selectedID = m.items[m.selectedIdx].ID
	}

	filter := m.Filter()
	m.items = m.items[:0:0]
	for _, u := range m.all {
		if filter == "" || u.Status == filter {
			m.items = append(m.items, u)
		}
	}

	m.selectedIdx = 0
	for i, u := range m.items {
		if u.ID == selectedID {
			m.selectedIdx = i
		}
	}
}

// Selected returns the highlighted update.
func (m Model) Selected() (model.ProgressUpdate, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.items) {
		return model.ProgressUpdate{}, false
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
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
	case key.Matches(keyMsg, m.keys.CycleFilter):
		m.filterIdx = (m.filterIdx + 1) % len(statusFilters)
		m.applyFilter()
	case m.readOnly:
	case key.Matches(keyMsg, m.keys.Approve):
		return m, m.review(portal.DecisionApprove)
	case key.Matches(keyMsg, m.keys.Reject):
		return m, m.review(portal.DecisionReject)
	case key.Matches(keyMsg, m.keys.MarkPending):
		return m, m.review(portal.DecisionPending)
	}
	return m, nil
}

func (m Model) review(decision string) tea.Cmd {
	u, ok := m.Selected()
	if !ok || u.Status == portal.StatusForDecision(decision) {
		return nil
	}
	return func() tea.Msg { return ReviewMsg{ID: u.ID, Decision: decision} }
}

// View renders the list and the selected update's description.
func (m Model) View() string {
	var b strings.Builder

	filter := m.Filter()
	if filter == "" {
		filter = "all"
	}
	b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("%s [%s]", m.title, filter)))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(theme.HelpStyle.Render("Nothing here."))
		b.WriteString("\n")
	}
	for i, u := range m.items {
		line := fmt.Sprintf("%s %s", theme.ProgressStatusStyle(u.Status).Render(fmt.Sprintf("%-8s", u.Status)), u.Title)
		if u.StudentName != "" && !m.readOnly {
			line += theme.DimmedStyle.Render("  · " + u.StudentName)
		}
		if !u.SubmittedAt.IsZero() {
			line += theme.DimmedStyle.Render("  · " + humanize.Time(u.SubmittedAt))
		}
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if u, ok := m.Selected(); ok && u.Description != "" {
		b.WriteString("\n")
		b.WriteString(theme.PanelStyle.Width(m.width - 8).Render(u.Description))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.status))
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
