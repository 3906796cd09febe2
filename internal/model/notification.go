package model

import "time"

// Notification categories as sent by the portal. Anything else is
// normalized to CategoryInfo.
const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
	CategoryError   = "error"
)

// NormalizeCategory maps an arbitrary category tag onto a known one.
func NormalizeCategory(c string) string {
	switch c {
	case CategoryInfo, CategorySuccess, CategoryWarning, CategoryError:
		return c
	case "danger":
		return CategoryError
	default:
		return CategoryInfo
	}
}

// Notification is a persistent portal notification for the current user.
type Notification struct {
	// ID is the portal-assigned identifier; unique per notification.
	ID string `json:"id" db:"id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Category is one of the Category* constants.
	Category string `json:"category" db:"category"`

	// ProgressUpdateID links the notification to a progress update, if any.
	ProgressUpdateID *int64 `json:"progress_update_id,omitempty" db:"progress_update_id"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// ReadAt is when the notification was marked read.
	ReadAt *time.Time `json:"read_at,omitempty" db:"read_at"`

	// CreatedAt is when the portal generated this notification.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Alert is a short-lived popup projection of a notification or of a live
// channel event. Alerts are never persisted.
type Alert struct {
	ID             string
	NotificationID string
	Message        string
	Category       string
	CreatedAt      time.Time

	// ShownAt is set when the alert enters the visible set.
	ShownAt time.Time
}
