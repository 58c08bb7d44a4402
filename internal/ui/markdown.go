package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// RenderMarkdown renders a note for terminal display. Without color the
// plain-text style is used; otherwise headings and links take the accent.
func RenderMarkdown(content string, width int, color bool) (string, error) {
	if width <= 0 {
		width = DefaultTermWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(noteStyle(color)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	rendered, err := r.Render(content)
	if err != nil {
		return "", err
	}

	// glamour adds trailing newlines; keep exactly one.
	return strings.TrimRight(rendered, "\n") + "\n", nil
}

func noteStyle(color bool) ansi.StyleConfig {
	if !color {
		return styles.NoTTYStyleConfig
	}
	style := styles.DarkStyleConfig
	if accent, ok := AccentColor(); ok {
		style.Heading.Color = &accent
		style.H1.Color = &accent
		style.H1.BackgroundColor = nil
		style.LinkText.Color = &accent
	}
	return style
}
