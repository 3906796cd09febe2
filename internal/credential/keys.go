package credential

// Vault keys holding the persisted session.
const (
	KeyUser         = "user"
	KeyToken        = "token"
	KeyRole         = "role"
	KeyIssuedAt     = "issued_at"
	KeyHasStudyPlan = "has_study_plan"

	// KeyDisplayedNotifications holds the JSON list of notification IDs
	// already shown as alerts.
	KeyDisplayedNotifications = "displayed_notification_ids"
)

// SessionKeys lists every key removed at logout.
var SessionKeys = []string{
	KeyUser,
	KeyToken,
	KeyRole,
	KeyIssuedAt,
	KeyHasStudyPlan,
	KeyDisplayedNotifications,
}
