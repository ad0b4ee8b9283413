package styles

import "github.com/charmbracelet/lipgloss"

const (
	// Form width. The detected terminal width is only used to truncate.
	Width = 72
)

// https://github.com/inngest/inngest/blob/main/pkg/cli/styles.go
var (
	Color   = lipgloss.AdaptiveColor{Light: "#111222", Dark: "#FAFAFA"}
	Primary = lipgloss.Color("#4636f5")
	Green   = lipgloss.Color("#9dcc3a")
	Red     = lipgloss.Color("#ff0000")
	White   = lipgloss.Color("#ffffff")
	Subtle  = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

	TextStyle = lipgloss.NewStyle().Foreground(Color)
	BoldStyle = TextStyle.Copy().Bold(true)

	Title = lipgloss.NewStyle().
		Foreground(White).
		Background(Primary).
		Bold(true).
		Padding(0, 1)

	BaseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Form fields.
	Label        = TextStyle.Copy().Width(14)
	FocusedLabel = Label.Copy().Foreground(Primary).Bold(true)
	Value        = lipgloss.NewStyle().Padding(0, 1)
	FocusedValue = Value.Copy().
			Foreground(White).
			Background(Primary)

	Key     = lipgloss.NewStyle().Width(3).Foreground(Primary).Bold(true)
	Success = lipgloss.NewStyle().Foreground(Green).Bold(true)

	// Status Bar.
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#343433", Dark: "#C1C6B2"}).
			Background(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#353533"})

	StatusStyle = lipgloss.NewStyle().
			Inherit(StatusBarStyle).
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#FF5F87")).
			Padding(0, 1).
			MarginRight(1)

	MessageText = lipgloss.NewStyle().Align(lipgloss.Left)

	HelpMenu = lipgloss.NewStyle().Align(lipgloss.Center).PaddingTop(1)
	// Page
	DocStyle = lipgloss.NewStyle().Padding(1, 2, 1, 2)
)

// RenderError returns a formatted error string.
func RenderError(msg string) string {
	// Error applies styles to an error message
	err := lipgloss.NewStyle().Background(Red).Foreground(White).Bold(true).Padding(0, 1).Render("Error")
	content := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(msg)
	return err + content
}
