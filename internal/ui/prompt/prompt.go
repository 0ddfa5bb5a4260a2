package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter guards destructive operations behind an interactive confirmation.
type Prompter interface {
	// ConfirmDestruction requires the user to type the resource name back
	// before a destructive operation proceeds.
	ConfirmDestruction(warning, resourceName string) (bool, error)
}

// StandardPrompter reads the confirmation from an input stream, normally
// stdin.
type StandardPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewStandardPrompter(in io.Reader, out io.Writer) *StandardPrompter {
	return &StandardPrompter{in: in, out: out}
}

func (p *StandardPrompter) ConfirmDestruction(warning, resourceName string) (bool, error) {
	if resourceName == "" {
		return false, fmt.Errorf("confirmation requires a resource name")
	}

	fmt.Fprintln(p.out, warning)
	fmt.Fprintf(p.out, "Type '%s' to continue: ", resourceName)

	scanner := bufio.NewScanner(p.in)
	if !scanner.Scan() {
		// EOF or a closed stream counts as declining.
		return false, scanner.Err()
	}

	return strings.TrimSpace(scanner.Text()) == resourceName, nil
}

// AutoApprove skips confirmation entirely. Wired in when --force is given.
type AutoApprove struct{}

func (AutoApprove) ConfirmDestruction(string, string) (bool, error) {
	return true, nil
}
