package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/session"
	appsync "github.com/nhle/pgportal/internal/sync"
	"github.com/nhle/pgportal/internal/ui/command"
	"github.com/nhle/pgportal/internal/ui/requests"
)

type readStateMsg struct {
	err error
}

type reviewResultMsg struct {
	id       int64
	previous string
	err      error
}

type avatarResultMsg struct {
	url string
	err error
}

// handleResult applies a refresher result unless the session it was
// fetched for has ended since.
func (m Model) handleResult(msg appsync.ResultMsg) (Model, tea.Cmd) {
	if msg.Generation != m.deps.Session.Generation() {
		m.log.Debug().Stringer("target", msg.Target).Msg("dropping result from a previous session")
		return m, nil
	}

	if msg.Err != nil {
		if msg.AuthError {
			m.deps.Session.Logout(session.ReasonAuthRejected)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Could not refresh %s; showing last known data", msg.Target)
		return m, nil
	}

	var cmd tea.Cmd
	switch msg.Target {
	case appsync.TargetNotifications:
		if m.deps.Feed.Replace(msg.Notifications) {
			m.notificationsView.SetItems(m.deps.Feed.Items(), m.deps.Feed.Unread())
		}
	case appsync.TargetUnread:
		m.deps.Feed.SetUnread(msg.Unread)
		m.notificationsView.SetItems(m.deps.Feed.Items(), m.deps.Feed.Unread())
	case appsync.TargetRequests:
		m.setRequests(msg.Requests)
	case appsync.TargetSemesters:
		m.semestersView.SetItems(msg.Semesters)
		m.registerView.SetSemesters(msg.Semesters)
		if m.currentView == ViewRegistration {
			// Rebuild so the semester picker offers the new options.
			cmd = m.registerView.Start()
		}
	}
	if strings.HasPrefix(m.statusMsg, "Could not refresh") || m.statusMsg == "Refreshing..." {
		m.statusMsg = ""
	}
	return m, cmd
}

// handleCached shows the last known lists while the first fetch runs.
func (m Model) handleCached(msg appsync.CachedMsg) Model {
	if _, ok := m.deps.Session.Current(); !ok || msg.Generation != m.deps.Session.Generation() {
		return m
	}
	if len(m.deps.Feed.Items()) == 0 && len(msg.Notifications) > 0 {
		m.deps.Feed.Replace(msg.Notifications)
		m.notificationsView.SetItems(m.deps.Feed.Items(), m.deps.Feed.Unread())
	}
	if m.requests == nil && len(msg.Requests) > 0 {
		m.setRequests(msg.Requests)
	}
	if len(msg.Semesters) > 0 {
		m.semestersView.SetItems(msg.Semesters)
		m.registerView.SetSemesters(msg.Semesters)
	}
	return m
}

func (m *Model) setRequests(us []model.ProgressUpdate) {
	m.requests = us
	m.requestsView.SetItems(us)
	m.progressView.SetItems(us)
}

// setRead flips the read state of a notification. The feed applies the
// change at once and reverts it if the portal refuses.
func (m Model) setRead(id string, read bool) tea.Cmd {
	feed := m.deps.Feed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var err error
		if read {
			err = feed.MarkRead(ctx, id)
		} else {
			err = feed.MarkUnread(ctx, id)
		}
		return readStateMsg{err: err}
	}
}

// openRequest jumps from a notification to the progress update it links.
func (m Model) openRequest(id int64) (Model, tea.Cmd) {
	target := ViewRequests
	if m.role() == model.RoleStudent {
		target = m.studentHome()
	}
	next, cmd := m.navigate(target)
	if next.currentView != target {
		return next, cmd
	}
	switch target {
	case ViewRequests:
		next.requestsView.Focus(id)
	case ViewProgress:
		next.progressView.Focus(id)
	}
	return next, cmd
}

// review applies a decision locally and sends it to the portal.
func (m Model) review(msg requests.ReviewMsg) (Model, tea.Cmd) {
	previous := ""
	updated := make([]model.ProgressUpdate, len(m.requests))
	copy(updated, m.requests)
	for i := range updated {
		if updated[i].ID == msg.ID {
			previous = updated[i].Status
			updated[i].Status = portal.StatusForDecision(msg.Decision)
		}
	}
	m.setRequests(updated)
	m.statusMsg = fmt.Sprintf("Sending %s...", msg.Decision)

	client := m.deps.Portal
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := client.ReviewProgressUpdate(ctx, msg.ID, msg.Decision)
		return reviewResultMsg{id: msg.ID, previous: previous, err: err}
	}
}

func (m Model) handleReviewResult(msg reviewResultMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		if portal.IsAuthError(msg.err) {
			m.deps.Session.Logout(session.ReasonAuthRejected)
			return m, nil
		}
		reverted := make([]model.ProgressUpdate, len(m.requests))
		copy(reverted, m.requests)
		for i := range reverted {
			if reverted[i].ID == msg.id && msg.previous != "" {
				reverted[i].Status = msg.previous
			}
		}
		m.setRequests(reverted)
		m.statusMsg = fmt.Sprintf("Review failed: %v", msg.err)
		return m, nil
	}
	m.statusMsg = "Review saved"
	m.deps.Refresher.Refresh(appsync.TargetRequests, appsync.TargetNotifications, appsync.TargetUnread)
	return m, nil
}

// uploadAvatar sends a local image as the new profile picture.
func (m Model) uploadAvatar(path string) tea.Cmd {
	client := m.deps.Portal
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		url, err := client.UploadProfilePicture(ctx, path)
		return avatarResultMsg{url: url, err: err}
	}
}

// expandHome resolves a leading ~ in a user-typed path.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(msg command.CommandMsg) (Model, tea.Cmd) {
	if _, signedIn := m.deps.Session.Current(); !signedIn && msg.Name != "quit" && msg.Name != "q" {
		return m, nil
	}

	switch msg.Name {
	case "refresh", "sync":
		m.refreshView(m.currentView)
		m.statusMsg = "Refreshing..."
		return m, nil
	case "quit", "q":
		return m, m.quit()
	case "notifications":
		return m.navigate(ViewNotifications)
	case "requests":
		return m.navigate(ViewRequests)
	case "semesters":
		return m.navigate(ViewSemesters)
	case "progress":
		return m.navigate(m.studentHome())
	case "dismiss all":
		m.deps.Registry.DismissAll()
		m.resize()
		return m, nil
	case "avatar":
		if msg.Args == "" {
			m.statusMsg = "Usage: avatar <path to image>"
			return m, nil
		}
		m.statusMsg = "Uploading profile picture..."
		return m, m.uploadAvatar(expandHome(msg.Args))
	case "logout":
		m.deps.Session.Logout(session.ReasonLogout)
		return m, nil
	default:
		m.statusMsg = fmt.Sprintf("Unknown command: %s", msg.Name)
		return m, nil
	}
}
