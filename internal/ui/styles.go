package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

// bandStyles mirrors the icon palette so the terminal preview and the tray
// icon agree on which band is which.
var bandStyles = [...]lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4646")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FF963C")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE150")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5AAA")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#CD5AFF")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#7878FF")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#50AAFF")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#46EBFF")),
}
