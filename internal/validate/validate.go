// Package validate holds client-side form checks that run before any
// request reaches the portal.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/pgportal/internal/model"
)

const (
	academicYearTag = "academicyear"
	roleTag         = "role"
	dateTag         = "date"
	dateOrderTag    = "dateorder"
)

var academicYearRegex = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

// FieldError is a single failed check on a named form field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is the list of failed checks for a form.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// For returns the message for field, or "" when it passed.
func (e Errors) For(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Validator wraps go-playground/validator with the portal's custom tags.
type Validator struct {
	validate *validator.Validate
}

// New returns a validator with the academic year, role and date checks
// registered. Field names in messages follow the json tags.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	_ = v.RegisterValidation(academicYearTag, func(fl validator.FieldLevel) bool {
		return AcademicYear(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(dateTag, func(fl validator.FieldLevel) bool {
		_, err := time.Parse(model.DateLayout, strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
	v.RegisterStructValidation(semesterStructValidation, SemesterForm{})

	return &Validator{validate: v}
}

// Struct runs all tag and struct-level checks on s.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return formatValidationErrors(validationErrs)
	}
	return err
}

// Var runs a tag expression against a single value, naming it field in
// the returned message.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		errs := make(Errors, 0, len(validationErrs))
		for _, fe := range validationErrs {
			errs = append(errs, FieldError{Field: field, Message: message(field, fe)})
		}
		return errs
	}
	return err
}

func formatValidationErrors(errs validator.ValidationErrors) Errors {
	out := make(Errors, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		out = append(out, FieldError{Field: field, Message: message(field, err)})
	}
	return out
}

func message(field string, err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
	case "gt":
		return fmt.Sprintf("%s must be selected", field)
	case academicYearTag:
		return fmt.Sprintf("%s must look like 2023/2024", field)
	case roleTag:
		return fmt.Sprintf("%s is not a known role", field)
	case dateTag:
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case dateOrderTag:
		return fmt.Sprintf("%s must be after the start date", field)
	default:
		return fmt.Sprintf("%s failed validation for %s", field, err.Tag())
	}
}

// AcademicYear checks the "YYYY/YYYY" format where the second year
// directly follows the first.
func AcademicYear(s string) error {
	m := academicYearRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return fmt.Errorf("academic year %q must look like 2023/2024", s)
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second != first+1 {
		return fmt.Errorf("academic year %q must span consecutive years", s)
	}
	return nil
}
