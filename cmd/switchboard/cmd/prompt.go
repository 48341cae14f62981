package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the terminal, or from plain input when stdin
// is redirected.
type prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, r: bufio.NewReader(in)}
}

func (p *prompter) terminalFD() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// line prints label and returns the next input line without its newline.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ":")), err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// secret reads a line without echo when stdin is a terminal.
func (p *prompter) secret(label string) ([]byte, error) {
	fd, ok := p.terminalFD()
	if !ok {
		s, err := p.line(label)
		return []byte(s), err
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	return b, nil
}

// confirm asks a yes/no question defaulting to no.
func (p *prompter) confirm(question string) (bool, error) {
	ans, err := p.line(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(ans)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
