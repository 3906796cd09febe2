package model

import "time"

// Session is the authenticated state of the client.
// Token and IssuedAt are either both set or both zero.
type Session struct {
	User         User      `json:"user"`
	Token        string    `json:"-"`
	Role         Role      `json:"role"`
	IssuedAt     time.Time `json:"issued_at"`
	HasStudyPlan bool      `json:"has_study_plan"`
}

// Active reports whether the session carries a credential.
func (s Session) Active() bool {
	return s.Token != "" && !s.IssuedAt.IsZero()
}

// Age returns how long ago the session was issued or last refreshed.
func (s Session) Age(now time.Time) time.Duration {
	return now.Sub(s.IssuedAt)
}
