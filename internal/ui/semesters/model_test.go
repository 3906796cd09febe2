package semesters

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/keys"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/validate"
)

type fakeAPI struct {
	created []model.Semester
	updated []model.Semester
	deleted []int64
	err     error
}

func (f *fakeAPI) CreateSemester(ctx context.Context, s model.Semester) (*model.Semester, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, s)
	return &s, nil
}

func (f *fakeAPI) UpdateSemester(ctx context.Context, s model.Semester) (*model.Semester, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated = append(f.updated, s)
	return &s, nil
}

func (f *fakeAPI) DeleteSemester(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func sample() []model.Semester {
	return []model.Semester{
		{ID: 1, AcademicYear: "2023/2024", Name: "Semester 1", StartDate: day("2023-09-01"), EndDate: day("2024-01-31"), IsCurrent: true},
		{ID: 2, AcademicYear: "2023/2024", Name: "Semester 2", StartDate: day("2024-02-01"), EndDate: day("2024-06-30")},
	}
}

func newModel(api *fakeAPI) Model {
	m := New(api, validate.New(), keys.DefaultKeyMap(), 80, 24)
	m.SetItems(sample())
	return m
}

func TestNewOpensEmptyForm(t *testing.T) {
	m := newModel(&fakeAPI{})
	assert.False(t, m.Editing())

	m, cmd := m.Update(runeKey('n'))
	assert.NotNil(t, cmd)
	assert.True(t, m.Editing())
	assert.Equal(t, validate.SemesterForm{}, m.Form())
	assert.Contains(t, m.View(), "New Semester")
}

func TestEditPrefillsSelectedSemester(t *testing.T) {
	m := newModel(&fakeAPI{})
	m, _ = m.Update(runeKey('j'))
	m, _ = m.Update(runeKey('e'))

	assert.Equal(t, validate.SemesterForm{
		ID:           2,
		AcademicYear: "2023/2024",
		Name:         "Semester 2",
		StartDate:    "2024-02-01",
		EndDate:      "2024-06-30",
	}, m.Form())
	assert.Contains(t, m.View(), "Edit Semester")
}

func TestInvalidAcademicYearBlocksSave(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)
	m, _ = m.Update(runeKey('n'))
	*m.fb = formBindings{
		academicYear: "2024-2025",
		name:         "Semester 1",
		startDate:    "2024-09-01",
		endDate:      "2025-01-31",
	}

	m, _ = m.submit()
	assert.True(t, m.Editing())
	assert.Contains(t, m.formErr, "must look like 2023/2024")
	assert.Empty(t, api.created)
}

func TestDuplicateSemesterBlocksSave(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)
	m, _ = m.Update(runeKey('n'))
	*m.fb = formBindings{
		academicYear: "2023/2024",
		name:         "semester 2",
		startDate:    "2024-02-01",
		endDate:      "2024-06-30",
	}

	m, _ = m.submit()
	assert.Contains(t, m.formErr, "already exists")
	assert.Empty(t, api.created)
}

func TestValidSemesterIsCreated(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)
	m, _ = m.Update(runeKey('n'))
	*m.fb = formBindings{
		academicYear: "2024/2025",
		name:         "Semester 1",
		startDate:    "2024-09-01",
		endDate:      "2025-01-31",
		isCurrent:    true,
	}

	m, cmd := m.submit()
	require.NotNil(t, cmd)
	msg := cmd()
	require.Len(t, api.created, 1)
	assert.Equal(t, "2024/2025", api.created[0].AcademicYear)
	assert.True(t, api.created[0].IsCurrent)

	m, cmd = m.Update(msg)
	assert.False(t, m.Editing())
	require.NotNil(t, cmd)
	assert.Equal(t, ChangedMsg{}, cmd())
}

func TestServerFieldErrorsReopenForm(t *testing.T) {
	api := &fakeAPI{err: &portal.APIError{
		Status: http.StatusUnprocessableEntity,
		Fields: map[string][]string{"name": {"The name has already been taken."}},
	}}
	m := newModel(api)
	m, _ = m.Update(runeKey('e'))

	m, cmd := m.submit()
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.True(t, m.Editing())
	assert.Contains(t, m.View(), "name: The name has already been taken.")
	assert.Equal(t, int64(1), m.Form().ID)
}

func TestDeleteEmitsChanged(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)
	m, _ = m.Update(runeKey('j'))
	m, cmd := m.Update(runeKey('d'))
	assert.NotNil(t, cmd)
	assert.True(t, m.Editing())

	m.fb.confirm = true
	m, cmd = m.confirmDelete()
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []int64{2}, api.deleted)

	m, cmd = m.Update(msg)
	assert.False(t, m.Editing())
	require.NotNil(t, cmd)
	assert.Equal(t, ChangedMsg{}, cmd())
	assert.Contains(t, m.View(), "Semester deleted")
}

func TestDeclinedDeleteKeepsSemester(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)
	m, _ = m.Update(runeKey('d'))

	m, cmd := m.confirmDelete()
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())
	assert.Empty(t, api.deleted)
}

func TestFailedDeleteIsReported(t *testing.T) {
	m := newModel(&fakeAPI{err: errors.New("server unavailable")})
	m, _ = m.Update(runeKey('d'))
	m.fb.confirm = true

	_, cmd := m.confirmDelete()
	m, _ = m.Update(cmd())
	assert.Contains(t, m.View(), "server unavailable")
}
