package viewer

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	captionStyle = lipgloss.NewStyle().
			Italic(true).
			Padding(1, 0)

	mediaStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	dismissedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("70"))
)
