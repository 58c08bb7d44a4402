package config

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	extPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	hexColor   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// validAccent accepts an ANSI color code or a #RRGGBB hex color.
func validAccent(value any) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if s == "" || hexColor.MatchString(s) {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return errors.New("must be an ANSI color code (0-255) or #RRGGBB")
	}
	return nil
}
