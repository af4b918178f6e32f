package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/randalmurphal/gophish-backup/internal/backup"
)

// errNotInteractive is returned when a purge needs confirmation but there is
// no terminal to ask on.
var errNotInteractive = errors.New("standard input is not a terminal; pass --yes to purge without a prompt")

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// promptConfirmer asks on out and reads the answer from in. Anything but an
// answer starting with "y" declines.
func promptConfirmer(in io.Reader, out io.Writer) backup.Confirmer {
	return func(prompt string) (bool, error) {
		_, _ = fmt.Fprintf(out, "%s [y/N]: ", prompt)
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", err)
		}
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "y"), nil
	}
}

// purgeConfirmer picks how a purge is approved: --yes approves up front, a
// terminal gets a prompt, anything else is refused.
func purgeConfirmer(yes bool, in io.Reader, out io.Writer, terminal func(io.Reader) bool) (backup.Confirmer, error) {
	if yes {
		return nil, nil
	}
	if !terminal(in) {
		return nil, errNotInteractive
	}
	return promptConfirmer(in, out), nil
}
