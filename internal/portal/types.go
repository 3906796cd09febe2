package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/pgportal/internal/model"
)

// flexID accepts identifiers encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// wireDate accepts "2006-01-02" as well as RFC 3339 timestamps.
type wireDate time.Time

func (d *wireDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = wireDate(time.Time{})
		return nil
	}
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		*d = wireDate(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("decoding date %q: %w", s, err)
	}
	*d = wireDate(t)
	return nil
}

// wireNotification is the Laravel database-notification shape.
type wireNotification struct {
	ID   flexID `json:"id"`
	Data struct {
		Message          string `json:"message"`
		Type             string `json:"type"`
		ProgressUpdateID *int64 `json:"progress_update_id"`
	} `json:"data"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (w wireNotification) toModel() model.Notification {
	n := model.Notification{
		ID:               string(w.ID),
		Message:          w.Data.Message,
		Category:         model.NormalizeCategory(w.Data.Type),
		ProgressUpdateID: w.Data.ProgressUpdateID,
		ReadAt:           w.ReadAt,
		Read:             w.ReadAt != nil,
		CreatedAt:        w.CreatedAt,
	}
	if n.Message == "" {
		n.Message = "You have a new notification"
	}
	return n
}

func notificationsToModel(ws []wireNotification) []model.Notification {
	out := make([]model.Notification, 0, len(ws))
	for _, w := range ws {
		if w.ID == "" {
			continue
		}
		out = append(out, w.toModel())
	}
	return out
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required"`
	Role     model.Role `json:"role" validate:"required,role"`
}

type loginResponse struct {
	Token               string             `json:"token"`
	User                model.User         `json:"user"`
	Role                model.Role         `json:"role"`
	HasStudyPlan        *bool              `json:"has_study_plan"`
	UnreadNotifications []wireNotification `json:"unread_notifications"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token        string
	User         model.User
	Role         model.Role
	HasStudyPlan bool
	Unread       []model.Notification
}

type unreadCountResponse struct {
	Count       *int `json:"count"`
	UnreadCount *int `json:"unread_count"`
}

func (r unreadCountResponse) value() int {
	if r.Count != nil {
		return *r.Count
	}
	if r.UnreadCount != nil {
		return *r.UnreadCount
	}
	return 0
}

type wireProgressUpdate struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student_id"`
	StudentName string    `json:"student_name"`
	Student     *struct {
		Name string `json:"name"`
	} `json:"student"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (w wireProgressUpdate) toModel() model.ProgressUpdate {
	name := w.StudentName
	if name == "" && w.Student != nil {
		name = w.Student.Name
	}
	status := w.Status
	if status == "" {
		status = model.ProgressPending
	}
	return model.ProgressUpdate{
		ID:          w.ID,
		StudentID:   w.StudentID,
		StudentName: name,
		Title:       w.Title,
		Description: w.Description,
		Status:      status,
		SubmittedAt: w.SubmittedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

type wireSemester struct {
	ID           int64    `json:"id"`
	AcademicYear string   `json:"academic_year"`
	Name         string   `json:"name"`
	StartDate    wireDate `json:"start_date"`
	EndDate      wireDate `json:"end_date"`
	IsCurrent    flexBool `json:"is_current"`
}

func (w wireSemester) toModel() model.Semester {
	return model.Semester{
		ID:           w.ID,
		AcademicYear: w.AcademicYear,
		Name:         w.Name,
		StartDate:    time.Time(w.StartDate),
		EndDate:      time.Time(w.EndDate),
		IsCurrent:    bool(w.IsCurrent),
	}
}

// semesterBody is the request body for semester create/update.
type semesterBody struct {
	AcademicYear string `json:"academic_year"`
	Name         string `json:"name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	IsCurrent    bool   `json:"is_current"`
}

func newSemesterBody(s model.Semester) semesterBody {
	return semesterBody{
		AcademicYear: s.AcademicYear,
		Name:         s.Name,
		StartDate:    s.StartDate.Format(model.DateLayout),
		EndDate:      s.EndDate.Format(model.DateLayout),
		IsCurrent:    s.IsCurrent,
	}
}

// flexBool accepts true/false as well as the 0/1 integers MySQL-backed
// APIs tend to emit.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch s := strings.Trim(string(bytes.TrimSpace(b)), `"`); s {
	case "true", "1":
		*f = true
	case "false", "0", "null", "":
		*f = false
	default:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("decoding bool %q: %w", s, err)
		}
		*f = flexBool(v)
	}
	return nil
}

// unwrapData returns the "data" member of a resource envelope, or raw
// itself when the payload is not wrapped.
func unwrapData(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(trimmed, &env) == nil && len(env.Data) > 0 {
		return env.Data
	}
	return raw
}
