package ui

import (
	"fmt"
	"strings"
)

type status int

const (
	statusOK status = iota
	statusFail
	statusWarn
	statusInfo
)

var statusSymbols = map[status]string{
	statusOK:   "✓",
	statusFail: "✗",
	statusWarn: "⚠",
	statusInfo: "ℹ",
}

func (s status) line(msg string) string {
	return statusSymbols[s] + " " + msg
}

// Successf formats a line reporting a completed change.
func Successf(format string, args ...any) string {
	return statusOK.line(fmt.Sprintf(format, args...))
}

// Error prefixes msg with the failure marker.
func Error(msg string) string { return statusFail.line(msg) }

// Errorf is Error with formatting.
func Errorf(format string, args ...any) string {
	return Error(fmt.Sprintf(format, args...))
}

// Warning prefixes msg with the warning marker.
func Warning(msg string) string { return statusWarn.line(msg) }

// Infof formats a neutral status line.
func Infof(format string, args ...any) string {
	return statusInfo.line(fmt.Sprintf(format, args...))
}

func Header(msg string) string { return Bold.Render(msg) }

// FilePath renders a path or docsdir:// URL.
func FilePath(path string) string { return Accent.Render(path) }

// Citekey renders key in brackets, the way papers are referred to in messages.
func Citekey(key string) string {
	return "[" + AccentBold.Render(key) + "]"
}

func Hint(msg string) string { return Muted.Render(msg) }

// Count renders "(1 paper)" or "(3 papers)".
func Count(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return fmt.Sprintf("(%d %s)", n, noun)
}

// Tags renders a sorted tag list as "#a #b", or nothing when empty.
func Tags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return Muted.Render(strings.Join(out, " "))
}
