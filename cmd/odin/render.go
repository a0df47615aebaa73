package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// stateStyle colours a status word by how alarming it is
func stateStyle(state string) lipgloss.Style {
	switch strings.ToLower(state) {
	case "critical", "emergency", "failed", "isolated", "high":
		return badStyle
	case "warning", "caution", "medium":
		return warnStyle
	case "nominal", "healthy", "ready", "completed", "low", "ok":
		return okStyle
	default:
		return dimStyle
	}
}

func colourState(state string) string {
	return stateStyle(state).Render(state)
}

// percentBar renders a 10-cell bar for a 0-100 value, red when low
func percentBar(pct float64) string {
	filled := int(pct/10 + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)

	style := okStyle
	switch {
	case pct < 20:
		style = badStyle
	case pct < 50:
		style = warnStyle
	}
	return "[" + style.Render(bar) + "]"
}

// row formats columns at fixed widths. Widths shorter than the column
// count leave trailing columns unpadded.
func row(widths []int, cols ...string) string {
	var b strings.Builder
	for i, c := range cols {
		if i < len(widths) {
			fmt.Fprintf(&b, "%-*s", widths[i], c)
			b.WriteString(" ")
			continue
		}
		b.WriteString(c)
		b.WriteString(" ")
	}
	return strings.TrimRight(b.String(), " ")
}

func header(widths []int, cols ...string) string {
	return headerStyle.Render(row(widths, cols...))
}

func title(s string) string {
	return titleStyle.Render(s)
}
