package tui

import "github.com/charmbracelet/lipgloss"

// Colors is the palette for the task manager.
var Colors = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Text    lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"),
	Muted:   lipgloss.Color("#636E72"),
	Error:   lipgloss.Color("#D63031"),
	Success: lipgloss.Color("#00B894"),
	Warning: lipgloss.Color("#FDCB6E"),
	Text:    lipgloss.Color("#DFE6E9"),
}

// Styles contains the lipgloss styles for the task manager.
type Styles struct {
	App   lipgloss.Style
	Title lipgloss.Style

	Connected   lipgloss.Style
	Unavailable lipgloss.Style
	Checking    lipgloss.Style
	Counts      lipgloss.Style

	Tab       lipgloss.Style
	TabActive lipgloss.Style

	Task          lipgloss.Style
	TaskSelected  lipgloss.Style
	TaskCompleted lipgloss.Style
	Empty         lipgloss.Style

	Footer lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		App:   lipgloss.NewStyle().Padding(1, 2),
		Title: lipgloss.NewStyle().Bold(true).Foreground(Colors.Primary),

		Connected:   lipgloss.NewStyle().Foreground(Colors.Success),
		Unavailable: lipgloss.NewStyle().Foreground(Colors.Warning),
		Checking:    lipgloss.NewStyle().Foreground(Colors.Muted),
		Counts:      lipgloss.NewStyle().Foreground(Colors.Muted),

		Tab:       lipgloss.NewStyle().Foreground(Colors.Muted).Padding(0, 1),
		TabActive: lipgloss.NewStyle().Bold(true).Foreground(Colors.Text).Background(Colors.Primary).Padding(0, 1),

		Task:          lipgloss.NewStyle().Foreground(Colors.Text),
		TaskSelected:  lipgloss.NewStyle().Bold(true).Foreground(Colors.Warning),
		TaskCompleted: lipgloss.NewStyle().Foreground(Colors.Muted).Strikethrough(true),
		Empty:         lipgloss.NewStyle().Foreground(Colors.Muted).Italic(true),

		Footer: lipgloss.NewStyle().Foreground(Colors.Muted),
		Status: lipgloss.NewStyle().Foreground(Colors.Success),
		Error:  lipgloss.NewStyle().Foreground(Colors.Error),
	}
}
