package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
// - Default: primary text
// - Accent: citekeys, paths, headers
// - Muted: authors, tags, hints
// No colored success/error/warning; unicode symbols carry the status.

const defaultAccent = "#A78BFA"

var (
	accentColor = defaultAccent

	Accent     = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent))
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent)).Bold(true)
	Muted      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	Bold       = lipgloss.NewStyle().Bold(true)
	Italic     = lipgloss.NewStyle().Italic(true)
)

// ConfigureTheme applies the [ui] accent setting. "none", "off" and
// "default" disable the accent color.
func ConfigureTheme(accent string) {
	color, ok := normalizeAccentColor(accent)
	if !ok {
		if isDisabled(accent) {
			accentColor = ""
			Accent = lipgloss.NewStyle()
			AccentBold = lipgloss.NewStyle().Bold(true)
		}
		return
	}
	accentColor = color
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	AccentBold = Accent.Bold(true)
}

// AccentColor returns the active accent color, if any.
func AccentColor() (string, bool) {
	return accentColor, accentColor != ""
}

func isDisabled(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off", "default":
		return true
	}
	return false
}

func normalizeAccentColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isDisabled(s) {
		return "", false
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return "", false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", false
		}
		return "#" + strings.ToLower(hex), true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return "", false
	}
	return strconv.Itoa(n), true
}
