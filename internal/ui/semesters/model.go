// Package semesters is the administrator's semester management screen.
package semesters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/theme"
	"github.com/nhle/pgportal/internal/validate"
)

// ChangedMsg signals that semesters were created, updated or deleted.
type ChangedMsg struct{}

// API is the portal surface used to change semesters.
type API interface {
	CreateSemester(ctx context.Context, s model.Semester) (*model.Semester, error)
	UpdateSemester(ctx context.Context, s model.Semester) (*model.Semester, error)
	DeleteSemester(ctx context.Context, id int64) error
}

type semesterMode int

const (
	modeList semesterMode = iota
	modeForm
	modeConfirmDelete
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	academicYear string
	name         string
	startDate    string
	endDate      string
	isCurrent    bool
	confirm      bool
}

type savedMsg struct{ err error }
type deletedMsg struct{ err error }

const requestTimeout = 30 * time.Second

// Model is the Bubble Tea model for semester management.
type Model struct {
	mode        semesterMode
	api         API
	validator   *validate.Validator
	keys        *keys.KeyMap
	semesters   []model.Semester
	selectedIdx int
	editingID   int64
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	formErr     string
	statusMsg   string
	width       int
	height      int
}

// New creates a semester manager.
func New(api API, v *validate.Validator, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:      modeList,
		api:       api,
		validator: v,
		keys:      k,
		fb:        &formBindings{},
		width:     width,
		height:    height,
	}
}

// SetItems replaces the semester list.
func (m *Model) SetItems(ss []model.Semester) {
	m.semesters = ss
	if m.selectedIdx >= len(m.semesters) {
		m.selectedIdx = len(m.semesters) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

// Editing reports whether a form is open, so global keys stay out of it.
func (m Model) Editing() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		if msg.err != nil {
			return m.reopenWithError(msg.err)
		}
		m.statusMsg = "Semester saved"
		m.mode = modeList
		return m, func() tea.Msg { return ChangedMsg{} }

	case deletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Semester deleted"
		}
		m.mode = modeList
		return m, func() tea.Msg { return ChangedMsg{} }

	case tea.KeyMsg:
		if m.mode == modeList {
			return m.handleListKey(msg)
		}
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.semesters) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.semesters)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.semesters) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.semesters) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.editingID = 0
		*m.fb = formBindings{}
		m.formErr = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(m.semesters) == 0 {
			return m, nil
		}
		s := m.semesters[m.selectedIdx]
		m.editingID = s.ID
		*m.fb = formBindings{
			academicYear: s.AcademicYear,
			name:         s.Name,
			startDate:    s.StartDate.Format(model.DateLayout),
			endDate:      s.EndDate.Format(model.DateLayout),
			isCurrent:    s.IsCurrent,
		}
		m.formErr = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if len(m.semesters) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	v := m.validator
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Academic year").
				Placeholder("2023/2024").
				Value(&m.fb.academicYear).
				Validate(func(s string) error {
					return validate.AcademicYear(s)
				}),
			huh.NewInput().
				Title("Name").
				Placeholder("Semester 1").
				Value(&m.fb.name).
				Validate(func(s string) error {
					return v.Var("name", strings.TrimSpace(s), "required,max=50")
				}),
			huh.NewInput().
				Title("Start date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.startDate).
				Validate(func(s string) error {
					return v.Var("start_date", s, "required,date")
				}),
			huh.NewInput().
				Title("End date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.endDate).
				Validate(func(s string) error {
					return v.Var("end_date", s, "required,date")
				}),
			huh.NewConfirm().
				Title("Current semester?").
				Value(&m.fb.isCurrent),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.selectedIdx < len(m.semesters) {
		s := m.semesters[m.selectedIdx]
		name = s.AcademicYear + " " + s.Name
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete semester %q?", name)).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// Form returns the raw values currently bound to the edit form.
func (m Model) Form() validate.SemesterForm {
	return validate.SemesterForm{
		ID:           m.editingID,
		AcademicYear: m.fb.academicYear,
		Name:         m.fb.name,
		StartDate:    m.fb.startDate,
		EndDate:      m.fb.endDate,
		IsCurrent:    m.fb.isCurrent,
	}
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m.submit()
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// submit validates the bound values and saves them. Invalid input reopens
// the form without contacting the portal.
func (m Model) submit() (Model, tea.Cmd) {
	sem, err := m.validator.Semester(m.Form(), m.semesters)
	if err != nil {
		return m.reopenWithError(err)
	}
	return m, m.saveSemester(sem)
}

// reopenWithError keeps the entered values and shows err above the form.
func (m Model) reopenWithError(err error) (Model, tea.Cmd) {
	var apiErr *portal.APIError
	switch {
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		var parts []string
		for field, msgs := range apiErr.Fields {
			parts = append(parts, field+": "+strings.Join(msgs, ", "))
		}
		m.formErr = strings.Join(parts, "; ")
	default:
		m.formErr = err.Error()
	}
	m.form = m.buildForm()
	m.mode = modeForm
	return m, m.form.Init()
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		return m.confirmDelete()
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// confirmDelete deletes the selected semester when the user agreed.
func (m Model) confirmDelete() (Model, tea.Cmd) {
	if m.fb.confirm && m.selectedIdx < len(m.semesters) {
		return m, m.deleteSemester(m.semesters[m.selectedIdx].ID)
	}
	m.mode = modeList
	return m, nil
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the semester manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		title := "New Semester"
		if m.editingID != 0 {
			title = "Edit Semester"
		}
		content := theme.TitleStyle.Render(title) + "\n"
		if m.formErr != "" {
			content += theme.ErrorStyle.Render(m.formErr) + "\n\n"
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(content + m.form.View())
	case modeConfirmDelete:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Semesters"))
	b.WriteString("\n")

	if len(m.semesters) == 0 {
		b.WriteString(theme.HelpStyle.Render("No semesters yet. Press 'n' to create one."))
	}
	for i, s := range m.semesters {
		label := fmt.Sprintf("%-9s  %-14s  %s → %s",
			s.AcademicYear, s.Name,
			s.StartDate.Format(model.DateLayout), s.EndDate.Format(model.DateLayout))
		if s.IsCurrent {
			label += "  " + theme.CategoryStyle(model.CategorySuccess).Render("current")
		}
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 12 {
		h = 12
	}
	return h
}

func (m Model) saveSemester(s model.Semester) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var err error
		if s.ID == 0 {
			_, err = api.CreateSemester(ctx, s)
		} else {
			_, err = api.UpdateSemester(ctx, s)
		}
		return savedMsg{err: err}
	}
}

func (m Model) deleteSemester(id int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deletedMsg{err: api.DeleteSemester(ctx, id)}
	}
}
