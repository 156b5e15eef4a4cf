// Package ui styles CLI output. Styling is dropped when stdout is not a
// terminal or NO_COLOR is set.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#8BC34A"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFC107"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#E53935"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#2196F3"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle   = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var styled = IsTerminal(os.Stdout) && os.Getenv("NO_COLOR") == ""

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetStyled forces styling on or off.
func SetStyled(on bool) { styled = on }

func render(s lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

func RenderPass(s string) string   { return render(passStyle, s) }
func RenderWarn(s string) string   { return render(warnStyle, s) }
func RenderFail(s string) string   { return render(failStyle, s) }
func RenderAccent(s string) string { return render(accentStyle, s) }
func RenderMuted(s string) string  { return render(mutedStyle, s) }
func RenderHeader(s string) string { return render(headerStyle, s) }

// Bar renders a horizontal bar of width cells proportional to percent.
func Bar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(percent/100*float64(width) + 0.5)
	filled = max(0, min(filled, width))
	full := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		if i < filled {
			full = append(full, '█')
		} else {
			full = append(full, '░')
		}
	}
	return render(accentStyle, string(full[:filled])) + render(mutedStyle, string(full[filled:]))
}
