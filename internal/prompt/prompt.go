// Package prompt reads interactive input for CLI commands.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword and isTerminal are test seams over x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// ErrNoInput is returned when input ends before anything was entered
var ErrNoInput = errors.New("no input")

// Prompter reads answers from in and writes prompts to out.
// Passwords are read from the terminal without echo when stdin is a
// terminal, and as plain lines from in otherwise (pipes, tests).
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// New creates a prompter. If in is os.Stdin, passwords use the terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Line prints prompt and reads a single trimmed line.
// If EOF occurs after some input was read, the partial line is returned.
func (p *Prompter) Line(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	return p.readLine()
}

// Password prints prompt and reads a secret without echo
func (p *Prompter) Password(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	if p.fd < 0 || !isTerminal(p.fd) {
		return p.readLine()
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// NewPassword reads a password twice and checks that both entries match
func (p *Prompter) NewPassword(prompt string) (string, error) {
	pw, err := p.Password(prompt)
	if err != nil {
		return "", err
	}
	confirm, err := p.Password("Confirm " + strings.ToLower(prompt[:1]) + prompt[1:])
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				return strings.TrimSpace(line), nil
			}
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
