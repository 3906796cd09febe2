package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/model"
)

func TestAcademicYear(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2023/2024", true},
		{" 2023/2024 ", true},
		{"2023-2024", false},
		{"2023/2025", false},
		{"23/24", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := AcademicYear(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSemesterForm(t *testing.T) {
	v := New()
	existing := []model.Semester{
		{ID: 1, AcademicYear: "2023/2024", Name: "Semester 1"},
	}

	base := SemesterForm{
		AcademicYear: "2023/2024",
		Name:         "Semester 2",
		StartDate:    "2024-02-01",
		EndDate:      "2024-06-30",
	}

	s, err := v.Semester(base, existing)
	require.NoError(t, err)
	assert.Equal(t, "Semester 2", s.Name)
	assert.True(t, s.StartDate.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	dashed := base
	dashed.AcademicYear = "2023-2024"
	_, err = v.Semester(dashed, existing)
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.For("academic_year"), "2023/2024")

	reversed := base
	reversed.EndDate = "2024-01-01"
	_, err = v.Semester(reversed, existing)
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.For("end_date"), "after the start date")

	badDate := base
	badDate.StartDate = "01/02/2024"
	_, err = v.Semester(badDate, existing)
	require.ErrorAs(t, err, &errs)
	assert.NotEmpty(t, errs.For("start_date"))

	dup := base
	dup.Name = "semester 1"
	_, err = v.Semester(dup, existing)
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.For("name"), "already exists")

	// Editing the same record does not clash with itself.
	self := dup
	self.ID = 1
	_, err = v.Semester(self, existing)
	assert.NoError(t, err)
}

func TestLoginForm(t *testing.T) {
	v := New()

	role, err := v.Login(LoginForm{Email: " ada@uni.edu ", Password: "pw", Role: "student"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, role)

	_, err = v.Login(LoginForm{Email: "nope", Password: "", Role: "dean"})
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.NotEmpty(t, errs.For("email"))
	assert.NotEmpty(t, errs.For("password"))
	assert.NotEmpty(t, errs.For("role"))
}

func TestVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("email", "a@b.co", "required,email"))
	err := v.Var("email", "x", "required,email")
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "email must be a valid email address", errs.For("email"))
}

func TestStudyPlanForm(t *testing.T) {
	v := New()

	f, err := v.StudyPlan(StudyPlanForm{
		ResearchTitle:   "  Federated learning on edge devices ",
		SupervisorEmail: "supervisor@uni.edu",
		SemesterID:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Federated learning on edge devices", f.ResearchTitle)

	_, err = v.StudyPlan(StudyPlanForm{ResearchTitle: "short", SupervisorEmail: "nope"})
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.NotEmpty(t, errs.For("research_title"))
	assert.NotEmpty(t, errs.For("supervisor_email"))
	assert.Equal(t, "semester_id is required", errs.For("semester_id"))
}
