package ui

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// DefaultTermWidth is used when stdout is not a terminal or its size is unknown.
const DefaultTermWidth = 100

// Screen describes where rendered output goes.
type Screen struct {
	Width int
	Color bool
}

// Stdout inspects os.Stdout. Color is enabled only for terminals.
func Stdout() Screen {
	return screenFor(os.Stdout.Fd(), term.GetSize)
}

func screenFor(fd uintptr, size func(uintptr) (int, int, error)) Screen {
	s := Screen{Width: DefaultTermWidth, Color: IsTerminal(fd)}
	if !s.Color {
		return s
	}
	if w, _, err := size(fd); err == nil && w > 0 {
		s.Width = w
	}
	return s
}

// IsTerminal also accepts Cygwin and MSYS ptys.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether both stdin and stdout are terminals, so that
// prompts and editors can be used.
func Interactive() bool {
	return IsTerminal(os.Stdin.Fd()) && IsTerminal(os.Stdout.Fd())
}
