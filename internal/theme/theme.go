package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pgportal/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps boxed content such as help and the command palette.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// TitleStyle renders view titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders read or inactive entries.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// NoticeStyle renders transient status lines under a view.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Italic(true)

// ErrorStyle renders form and request errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

func categoryColor(category string) lipgloss.AdaptiveColor {
	switch category {
	case model.CategorySuccess:
		return ColorGreen
	case model.CategoryWarning:
		return ColorYellow
	case model.CategoryError:
		return ColorRed
	default:
		return ColorBlue
	}
}

// CategoryStyle returns a color-coded label style for a notification category.
func CategoryStyle(category string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(categoryColor(category))
}

// AlertStyle returns the boxed style of a popup alert.
func AlertStyle(category string) lipgloss.Style {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(categoryColor(category))
}

// ProgressStatusStyle returns a color-coded style for a progress update status.
func ProgressStatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.ProgressApproved:
		return base.Foreground(ColorGreen)
	case model.ProgressRejected:
		return base.Foreground(ColorRed)
	case model.ProgressPending:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}

// RoleStyle returns the header badge style for a role.
func RoleStyle(role model.Role) lipgloss.Style {
	base := HeaderStyle.Bold(false)

	switch {
	case role == model.RoleAdmin:
		return base.Background(ColorMagenta)
	case role.IsLecturer():
		return base.Background(ColorGreen)
	default:
		return base.Background(ColorSubtle)
	}
}
