package ui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNoEditor is returned when neither the config nor the environment names
// an editor.
var ErrNoEditor = errors.New("no editor configured (set editor in the config, $VISUAL or $EDITOR)")

var terminalEditors = map[string]bool{
	"vi": true, "vim": true, "nvim": true, "nano": true, "emacs": true,
	"hx": true, "helix": true, "micro": true, "kak": true, "ne": true, "joe": true,
}

// editorCommandName returns the executable name of an editor command line.
func editorCommandName(editor string) string {
	fields := strings.Fields(strings.TrimSpace(editor))
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if strings.HasPrefix(first, `"`) {
		if end := strings.Index(editor[strings.Index(editor, `"`)+1:], `"`); end >= 0 {
			start := strings.Index(editor, `"`) + 1
			first = editor[start : start+end]
		}
	}
	return filepath.Base(first)
}

func isTerminalEditor(editor string) bool {
	return terminalEditors[editorCommandName(editor)]
}

// command builds the process for editor on path. Compound commands such as
// "code --wait" run through the shell.
func command(editor, path string) *exec.Cmd {
	if strings.ContainsAny(strings.TrimSpace(editor), " \t") {
		return exec.Command("sh", "-c", editor+" "+shellQuote(path))
	}
	return exec.Command(editor, path)
}

// shellQuote quotes a string for safe use in shell commands.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// EditFile opens path in editor and waits for it to exit.
func EditFile(editor, path string) error {
	if strings.TrimSpace(editor) == "" {
		return ErrNoEditor
	}
	cmd := command(editor, path)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", editorCommandName(editor), err)
	}
	return nil
}

// EditText writes text to a temporary file with the given suffix, opens it
// in editor and returns the saved content.
func EditText(editor, text, suffix string) (string, error) {
	f, err := os.CreateTemp("", "pubs-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := EditFile(editor, path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading edited file: %w", err)
	}
	return string(data), nil
}

// OpenFile opens path with openCmd, or the platform opener when empty.
// Terminal programs run in the foreground; anything else is started in the
// background.
func OpenFile(openCmd, path string) error {
	if strings.TrimSpace(openCmd) == "" {
		openCmd = defaultOpener()
	}
	cmd := command(openCmd, path)
	if isTerminalEditor(openCmd) {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		return cmd.Run()
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s with %s: %w", path, editorCommandName(openCmd), err)
	}
	return cmd.Process.Release()
}

func defaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}
