package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Package ui holds the terminal styles shared by the interactive session and
// the report writers. Styles degrade to plain text when color is disabled.

var (
	passColor  = lipgloss.Color("#00D26A")
	failColor  = lipgloss.Color("#FF3838")
	warnColor  = lipgloss.Color("#FFB800")
	crashColor = lipgloss.Color("#FF6B6B")
	mutedColor = lipgloss.Color("#6B7280")
	matchColor = lipgloss.Color("#4D96FF")
)

var (
	PassStyle = lipgloss.NewStyle().
			Foreground(passColor).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(failColor).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Bold(true)

	CrashStyle = lipgloss.NewStyle().
			Foreground(crashColor).
			Bold(true).
			Reverse(true)

	HeadingStyle = lipgloss.NewStyle().
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	PromptStyle = lipgloss.NewStyle().
			Foreground(matchColor).
			Bold(true)
)

var (
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetNoColor disables colored output for every style in the package.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// VerdictStyle returns the style matching a comparison verdict name.
func VerdictStyle(verdict string) lipgloss.Style {
	switch verdict {
	case "pass":
		return PassStyle
	case "fail":
		return FailStyle
	case "crash":
		return CrashStyle
	case "missing", "unapproved", "stale":
		return WarnStyle
	default:
		return MutedStyle
	}
}
