package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary     = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	colorMuted       = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#8a94a6"}
	colorDestructive = lipgloss.Color("#e53935")
	colorSuccess     = lipgloss.Color("#8BC34A")
	colorWarning     = lipgloss.Color("#FFC107")
	colorInfo        = lipgloss.Color("#2196F3")
)

// Styles are the CLI's text styles.
type Styles struct {
	Prompt  lipgloss.Style
	Command lipgloss.Style
	Output  lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Info    lipgloss.Style
	Title   lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Prompt:  lipgloss.NewStyle().Foreground(colorPrimary).Bold(true),
		Command: lipgloss.NewStyle().Foreground(colorInfo),
		Output:  lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle().Foreground(colorDestructive),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Info:    lipgloss.NewStyle().Foreground(colorInfo),
		Title:   lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true),
	}
}

// PlainStyles renders everything unstyled, for pipes and tests.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Prompt: s, Command: s, Output: s, Error: s, Warning: s, Success: s, Muted: s, Info: s, Title: s}
}

// darkBackground guesses the terminal background from COLORFGBG
// ("fg;bg"); ANSI 0-6 and 8 are dark.
func darkBackground() bool {
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if len(parts) < 2 {
		return true
	}
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return true
	}
	return (bg >= 0 && bg <= 6) || bg == 8
}

// stylesFor picks the styles for a terminal or a plain stream.
func stylesFor(f *os.File) Styles {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
		return PlainStyles()
	}
	lipgloss.SetHasDarkBackground(darkBackground())
	return DefaultStyles()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
