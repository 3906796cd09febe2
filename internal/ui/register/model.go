// Package register is the study plan registration screen students land on
// until their plan is on file.
package register

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/theme"
	"github.com/nhle/pgportal/internal/validate"
)

// RegisteredMsg is dispatched once the portal accepted the study plan.
type RegisteredMsg struct{}

// API is the portal surface used to register a study plan.
type API interface {
	RegisterStudyPlan(ctx context.Context, req portal.StudyPlanRequest) error
}

type submittedMsg struct{ err error }

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title      string
	supervisor string
	semesterID int64
}

// Model is the Bubble Tea model for study plan registration.
type Model struct {
	api       API
	validator *validate.Validator
	form      *huh.Form
	fb        *formBindings
	semesters []model.Semester
	errMsg    string
	busy      bool
	width     int
	height    int
}

// New creates a registration model.
func New(api API, v *validate.Validator, width, height int) Model {
	return Model{
		api:       api,
		validator: v,
		fb:        &formBindings{},
		width:     width,
		height:    height,
	}
}

// SetSemesters supplies the semesters a plan can start in.
func (m *Model) SetSemesters(ss []model.Semester) {
	m.semesters = ss
}

// Start builds a fresh form, keeping values already typed.
func (m *Model) Start() tea.Cmd {
	m.busy = false
	if m.fb.semesterID == 0 {
		for _, s := range m.semesters {
			if s.IsCurrent {
				m.fb.semesterID = s.ID
			}
		}
	}
	m.form = m.buildForm()
	return m.form.Init()
}

func (m Model) buildForm() *huh.Form {
	opts := []huh.Option[int64]{huh.NewOption("Select a semester", int64(0))}
	for _, s := range m.semesters {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s %s", s.AcademicYear, s.Name), s.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Research title").
				Value(&m.fb.title),
			huh.NewInput().
				Title("Supervisor email").
				Placeholder("supervisor@university.edu").
				Value(&m.fb.supervisor),
			huh.NewSelect[int64]().
				Title("Starting semester").
				Options(opts...).
				Value(&m.fb.semesterID),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(submittedMsg); ok {
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, m.Start()
		}
		m.errMsg = ""
		return m, func() tea.Msg { return RegisteredMsg{} }
	}

	if m.form == nil || m.busy {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.complete()
	}
	if m.form.State == huh.StateAborted {
		return m, m.Start()
	}
	return m, cmd
}

// complete validates the bound values and submits them. Invalid input
// re-opens the form with the error and nothing is sent.
func (m Model) complete() (Model, tea.Cmd) {
	f, err := m.validator.StudyPlan(validate.StudyPlanForm{
		ResearchTitle:   m.fb.title,
		SupervisorEmail: m.fb.supervisor,
		SemesterID:      m.fb.semesterID,
	})
	if err != nil {
		m.errMsg = err.Error()
		return m, m.Start()
	}
	m.busy = true
	return m, m.submit(f)
}

func (m Model) submit(f validate.StudyPlanForm) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return submittedMsg{err: api.RegisterStudyPlan(ctx, portal.StudyPlanRequest{
			ResearchTitle:   f.ResearchTitle,
			SupervisorEmail: f.SupervisorEmail,
			SemesterID:      f.SemesterID,
		})}
	}
}

// View renders the registration screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Register your study plan"))
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("Your dashboard opens once your study plan is on file."))
	b.WriteString("\n\n")
	if m.errMsg != "" {
		b.WriteString(theme.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}
	if m.busy {
		b.WriteString(theme.HelpStyle.Render("Submitting..."))
	} else if m.form != nil {
		b.WriteString(m.form.View())
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
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
	if w > 90 {
		w = 90
	}
	return w
}
