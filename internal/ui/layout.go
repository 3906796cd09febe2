package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/theme"
)

// alertWidth is the fixed width of a popup alert box.
const alertWidth = 44

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the width left beside the alert column when alerts
// are showing.
func (l Layout) ContentWidth(alerts bool) int {
	if alerts && l.Width > 2*alertWidth {
		return l.Width - alertWidth - 1
	}
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top bar: title on the left, the signed-in
// identity and connection state on the right.
func (l Layout) RenderHeader(title, identity string, role model.Role, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	var right []string
	if identity != "" {
		right = append(right, theme.RoleStyle(role).Render(identity))
	}
	right = append(right, theme.HeaderStyle.Render(status))
	rightRendered := lipgloss.JoinHorizontal(lipgloss.Top, right...)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		rightRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderAlerts stacks the visible alerts, newest at the bottom, and notes
// how many more are queued.
func (l Layout) RenderAlerts(alerts []model.Alert, pending int) string {
	if len(alerts) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(alerts)+1)
	for i, a := range alerts {
		label := theme.CategoryStyle(a.Category).Render(strings.ToUpper(a.Category))
		body := lipgloss.NewStyle().Width(alertWidth - 4).Render(a.Message)
		hint := ""
		if i == 0 {
			hint = "\n" + theme.HelpStyle.Render("x dismiss")
		}
		boxes = append(boxes, theme.AlertStyle(a.Category).
			Width(alertWidth-2).
			Render(label+"\n"+body+hint))
	}
	if pending > 0 {
		boxes = append(boxes, theme.HelpStyle.Render(fmt.Sprintf("+%d more", pending)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

// RenderBody places the alert column to the right of content.
func (l Layout) RenderBody(content, alerts string) string {
	if alerts == "" {
		return content
	}
	if l.Width <= 2*alertWidth {
		return lipgloss.JoinVertical(lipgloss.Left, alerts, content)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, content, " ", alerts)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, body and status bar.
func (l Layout) RenderWithFrame(
	header string,
	body string,
	statusBar string,
) string {
	body = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(body)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		statusBar,
	)
}
