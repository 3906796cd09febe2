package model

import "time"

// Progress update statuses.
const (
	ProgressPending  = "pending"
	ProgressApproved = "approved"
	ProgressRejected = "rejected"
)

// ProgressUpdate is a student's progress report awaiting or past review.
// The portal calls these "requests" in the lecturer dashboards.
type ProgressUpdate struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   int64     `json:"student_id" db:"student_id"`
	StudentName string    `json:"student_name" db:"student_name"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
