package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/pgportal/internal/model"
)

// LoginForm holds the raw values of the login form.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,role"`
}

// SemesterForm holds the raw values of the semester create/edit form.
type SemesterForm struct {
	ID           int64  `json:"-"`
	AcademicYear string `json:"academic_year" validate:"required,academicyear"`
	Name         string `json:"name" validate:"required,max=50"`
	StartDate    string `json:"start_date" validate:"required,date"`
	EndDate      string `json:"end_date" validate:"required,date"`
	IsCurrent    bool   `json:"is_current"`
}

// semesterStructValidation reports an end date that does not come after
// the start date. Unparseable dates are left to the field checks.
func semesterStructValidation(sl validator.StructLevel) {
	f := sl.Current().Interface().(SemesterForm)
	start, errStart := time.Parse(model.DateLayout, strings.TrimSpace(f.StartDate))
	end, errEnd := time.Parse(model.DateLayout, strings.TrimSpace(f.EndDate))
	if errStart != nil || errEnd != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(f.EndDate, "end_date", "EndDate", dateOrderTag, "")
	}
}

// Semester validates f, checks it does not duplicate another semester in
// existing and returns the model value ready to submit.
func (v *Validator) Semester(f SemesterForm, existing []model.Semester) (model.Semester, error) {
	if err := v.Struct(f); err != nil {
		return model.Semester{}, err
	}
	if err := uniqueSemester(f, existing); err != nil {
		return model.Semester{}, err
	}

	start, _ := time.Parse(model.DateLayout, strings.TrimSpace(f.StartDate))
	end, _ := time.Parse(model.DateLayout, strings.TrimSpace(f.EndDate))
	return model.Semester{
		ID:           f.ID,
		AcademicYear: strings.TrimSpace(f.AcademicYear),
		Name:         strings.TrimSpace(f.Name),
		StartDate:    start,
		EndDate:      end,
		IsCurrent:    f.IsCurrent,
	}, nil
}

func uniqueSemester(f SemesterForm, existing []model.Semester) error {
	year := strings.TrimSpace(f.AcademicYear)
	name := strings.TrimSpace(f.Name)
	for _, s := range existing {
		if s.ID == f.ID {
			continue
		}
		if s.AcademicYear == year && strings.EqualFold(s.Name, name) {
			return Errors{{
				Field:   "name",
				Message: fmt.Sprintf("%s already exists for %s", name, year),
			}}
		}
	}
	return nil
}

// Login validates the login form and returns the normalized role.
func (v *Validator) Login(f LoginForm) (model.Role, error) {
	f.Email = strings.TrimSpace(f.Email)
	if err := v.Struct(f); err != nil {
		return "", err
	}
	return model.Role(f.Role), nil
}

// StudyPlanForm holds the raw values of the study plan registration form.
type StudyPlanForm struct {
	ResearchTitle   string `json:"research_title" validate:"required,min=10,max=255"`
	SupervisorEmail string `json:"supervisor_email" validate:"required,email"`
	SemesterID      int64  `json:"semester_id" validate:"required,gt=0"`
}

// StudyPlan validates the registration form after trimming its text fields.
func (v *Validator) StudyPlan(f StudyPlanForm) (StudyPlanForm, error) {
	f.ResearchTitle = strings.TrimSpace(f.ResearchTitle)
	f.SupervisorEmail = strings.TrimSpace(f.SupervisorEmail)
	if err := v.Struct(f); err != nil {
		return StudyPlanForm{}, err
	}
	return f, nil
}
