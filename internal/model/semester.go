package model

import "time"

// DateLayout is the wire and form format for calendar dates.
const DateLayout = "2006-01-02"

// Semester is an academic semester managed by administrators.
type Semester struct {
	ID           int64     `json:"id" db:"id"`
	AcademicYear string    `json:"academic_year" db:"academic_year"`
	Name         string    `json:"name" db:"name"`
	StartDate    time.Time `json:"start_date" db:"start_date"`
	EndDate      time.Time `json:"end_date" db:"end_date"`
	IsCurrent    bool      `json:"is_current" db:"is_current"`
}
