package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"budgie/internal/core"
)

var (
	ColorBorder = lipgloss.Color("#575653")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorBlue   = lipgloss.Color("#4385BE")
	ColorOrange = lipgloss.Color("#DA702C")
	ColorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)
)

// Table is a bordered text table for CLI output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a title in a rounded box.
func RenderTitle(title string) string {
	return titleStyle.Render(title)
}

// RenderTable renders headers and rows with box-drawing borders. Cells may
// already carry lipgloss styling; widths are measured without escapes.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	if cols == 0 && len(t.Rows) > 0 {
		cols = len(t.Rows[0])
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < cols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style *lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if style != nil {
				cell = style.Render(cell)
			}
			pad := widths[i] - lipgloss.Width(cell)
			b.WriteString(" " + cell + strings.Repeat(" ", pad) + " ")
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, &headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, nil)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

// FormatPercent renders a budget percentage.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// RenderAlert colors an alert level.
func RenderAlert(level core.AlertLevel) string {
	var c lipgloss.Color
	switch level {
	case core.AlertCritical:
		c = ColorRed
	case core.AlertWarning:
		c = ColorOrange
	case core.AlertInfo:
		c = ColorBlue
	default:
		c = ColorGreen
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(level))
}
