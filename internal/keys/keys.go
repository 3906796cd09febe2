package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back   key.Binding
	Quit   key.Binding
	Logout key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Views
	Notifications key.Binding
	Requests      key.Binding
	Semesters     key.Binding
	Progress      key.Binding

	// Alerts
	Dismiss    key.Binding
	DismissAll key.Binding

	// Notifications
	ToggleRead key.Binding

	// Request review
	Approve     key.Binding
	Reject      key.Binding
	MarkPending key.Binding
	CycleFilter key.Binding

	// Record management
	New    key.Binding
	Edit   key.Binding
	Delete key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Notifications: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "notifications"),
		),
		Requests: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "requests"),
		),
		Semesters: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "semesters"),
		),
		Progress: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "my progress"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss alert"),
		),
		DismissAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "dismiss all alerts"),
		),
		ToggleRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle read"),
		),
		Approve: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reject"),
		),
		MarkPending: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "back to pending"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle status filter"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Refresh,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit, k.Logout},
		{k.Command, k.Help, k.Refresh},
		{k.Notifications, k.Requests, k.Semesters, k.Progress},
		{k.Dismiss, k.DismissAll, k.ToggleRead},
		{k.Approve, k.Reject, k.MarkPending, k.CycleFilter},
		{k.New, k.Edit, k.Delete},
	}
}
