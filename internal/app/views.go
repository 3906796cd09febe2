package app

import (
	"github.com/nhle/pgportal/internal/model"
	appsync "github.com/nhle/pgportal/internal/sync"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewNotifications
	ViewRequests
	ViewSemesters
	ViewRegistration
	ViewProgress
	ViewHelp
	ViewCommand
)

func (v ViewState) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewNotifications:
		return "notifications"
	case ViewRequests:
		return "requests"
	case ViewSemesters:
		return "semesters"
	case ViewRegistration:
		return "registration"
	case ViewProgress:
		return "progress"
	case ViewHelp:
		return "help"
	case ViewCommand:
		return "command"
	default:
		return "unknown"
	}
}

// LandingView returns the dashboard a role opens on after sign-in.
// Students without a study plan must register one first.
func LandingView(role model.Role, hasStudyPlan bool) ViewState {
	switch {
	case role == model.RoleAdmin:
		return ViewSemesters
	case role.IsLecturer():
		return ViewRequests
	case role == model.RoleStudent && !hasStudyPlan:
		return ViewRegistration
	case role == model.RoleStudent:
		return ViewProgress
	default:
		return ViewNotifications
	}
}

// Allowed reports whether a signed-in role may open view.
func Allowed(view ViewState, role model.Role, hasStudyPlan bool) bool {
	switch view {
	case ViewNotifications, ViewHelp, ViewCommand:
		return true
	case ViewRequests:
		return role == model.RoleAdmin || role.IsLecturer()
	case ViewSemesters:
		return role == model.RoleAdmin
	case ViewProgress:
		return role == model.RoleStudent && hasStudyPlan
	case ViewRegistration:
		return role == model.RoleStudent && !hasStudyPlan
	default:
		return false
	}
}

// refreshTargets lists what a live notification invalidates while view is
// showing. The request list is only refetched when it is on screen.
func refreshTargets(view ViewState) []appsync.Target {
	targets := []appsync.Target{appsync.TargetNotifications, appsync.TargetUnread}
	if view == ViewRequests {
		targets = append(targets, appsync.TargetRequests)
	}
	return targets
}

// openTargets lists what to fetch when view is opened.
func openTargets(view ViewState) []appsync.Target {
	switch view {
	case ViewRequests, ViewProgress:
		return []appsync.Target{appsync.TargetRequests}
	case ViewSemesters, ViewRegistration:
		return []appsync.Target{appsync.TargetSemesters}
	case ViewNotifications:
		return []appsync.Target{appsync.TargetNotifications, appsync.TargetUnread}
	default:
		return nil
	}
}
