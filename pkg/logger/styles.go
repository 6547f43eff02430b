package logger

import (
	"github.com/charmbracelet/lipgloss"
	charm "github.com/charmbracelet/log"
)

// Styles returns charm log styles with a TRCE badge registered for
// TraceLevel. charm's defaults only cover its own levels, so without this
// trace lines render with no level prefix.
func Styles() *charm.Styles {
	styles := charm.DefaultStyles()
	styles.Levels[TraceLevel] = lipgloss.NewStyle().
		SetString("TRCE").
		Foreground(lipgloss.Color("63")).
		Bold(true)
	return styles
}
