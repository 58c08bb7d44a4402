package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question. An empty answer or EOF returns def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		fmt.Fprintf(p.out, "%s %s ", question, Hint(hint))
		line, err := p.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err == io.EOF {
			return def, nil
		}
	}
}

// Choose asks for one of options, returning def on an empty answer.
func (p *Prompter) Choose(question string, options []string, def string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s (%s) %s ", question, strings.Join(options, "/"), Hint("["+def+"]"))
		line, err := p.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" {
			return def, nil
		}
		for _, o := range options {
			if answer == o {
				return o, nil
			}
		}
		if err == io.EOF {
			return def, nil
		}
	}
}
