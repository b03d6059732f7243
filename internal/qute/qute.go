// Package qute sends commands to qutebrowser when urlshare runs as a
// userscript.
package qute

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"
)

// EnvFIFO names the command FIFO qutebrowser passes to userscripts.
const EnvFIFO = "QUTE_FIFO"

// Prefix is prepended to user-visible messages.
const Prefix = "urlshare"

// Notifier writes qutebrowser commands to a FIFO. The zero value, or one
// whose FIFO does not exist, silently does nothing.
type Notifier struct {
	FIFO string
}

// FromEnv returns a notifier for $QUTE_FIFO.
func FromEnv() Notifier {
	return Notifier{FIFO: os.Getenv(EnvFIFO)}
}

// Enabled reports whether a FIFO path is configured.
func (n Notifier) Enabled() bool {
	return n.FIFO != ""
}

var (
	// ErrMultiline is returned for a command containing a line break, which
	// qutebrowser would run as several commands.
	ErrMultiline = errors.New("qutebrowser command spans several lines")
	ErrUnsafeURL = errors.New("url contains whitespace or control characters")
)

// Command writes one raw command line.
func (n Notifier) Command(cmd string) error {
	if strings.ContainsAny(cmd, "\r\n") {
		return ErrMultiline
	}
	if n.FIFO == "" {
		return nil
	}
	f, err := os.OpenFile(n.FIFO, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open qutebrowser fifo: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, cmd); err != nil {
		return fmt.Errorf("failed to write qutebrowser command: %w", err)
	}
	return nil
}

// Open opens url in a new tab. URLs with whitespace or control characters
// are refused so they cannot add arguments or commands.
func (n Notifier) Open(url string) error {
	if url == "" || strings.IndexFunc(url, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return ErrUnsafeURL
	}
	return n.Command(":open -t " + url)
}

// Message shows an info message in the status bar. Control characters
// become spaces and single quotes are dropped so the text stays inside one
// quoted argument.
func (n Notifier) Message(format string, args ...any) error {
	return n.Command(fmt.Sprintf(":message-info '%s: %s'", Prefix, sanitize(fmt.Sprintf(format, args...))))
}

func sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\'':
			return -1
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, text)
}
