package opts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"
)

// Prompter reads answers from the operator. Password input is hidden when
// the reader is a terminal.
type Prompter struct {
	reader  io.Reader
	writer  io.Writer
	scanner *bufio.Scanner
}

// NewPrompter creates a prompter over the given streams
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{
		reader:  reader,
		writer:  writer,
		scanner: bufio.NewScanner(reader),
	}
}

// Prompt shows message and reads one line.
func (p *Prompter) Prompt(message string) (string, error) {
	fmt.Fprint(p.writer, message)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", errors.Errorf("reading input: %w", err)
		}
		return "", nil
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// PromptPassword reads a line without echo on a terminal.
func (p *Prompter) PromptPassword(message string) (string, error) {
	if f, ok := p.reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.writer, message)
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.writer)
		if err != nil {
			return "", errors.Errorf("reading password: %w", err)
		}
		return string(password), nil
	}
	return p.Prompt(message)
}

// PromptConfirm asks a yes/no question, defaulting to no.
func (p *Prompter) PromptConfirm(message string) (bool, error) {
	answer, err := p.Prompt(message + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
