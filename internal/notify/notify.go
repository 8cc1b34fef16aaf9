// SPDX-License-Identifier: MPL-2.0

package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	// ModeAuto selects the sink from the session.
	ModeAuto = "auto"
	// ModeDesktop always uses desktop notifications.
	ModeDesktop = "desktop"
	// ModeLog always uses the logger.
	ModeLog = "log"
	// ModeStderr always prints on stderr.
	ModeStderr = "stderr"

	appName       = "podenv"
	notifyTimeout = 5 * time.Second
	prefix        = "[+] "
)

type (
	// Notifier receives user-facing messages. Notify may be called any
	// number of times and never fails.
	Notifier interface {
		Notify(msg string)
	}

	// FailureNotifier is implemented by sinks that render failures differently.
	FailureNotifier interface {
		NotifyFailure(msg string)
	}

	// Func adapts a function to the Notifier interface.
	Func func(msg string)

	// RunFunc executes a host command.
	RunFunc func(ctx context.Context, name string, args ...string) error

	// Desktop sends messages with notify-send.
	Desktop struct {
		run RunFunc
	}

	// Log writes messages to a slog logger.
	Log struct {
		logger *slog.Logger
	}

	// Stderr prints styled messages to a writer.
	Stderr struct {
		w       io.Writer
		info    lipgloss.Style
		failure lipgloss.Style
	}

	// Session describes what Select looks at.
	Session struct {
		// StdoutIsTerminal reports whether stdout is attached to a terminal.
		StdoutIsTerminal bool
		Verbose          bool
		// Getenv defaults to os.Getenv.
		Getenv func(string) string
		// Exists defaults to a stat of the path.
		Exists func(string) bool
	}
)

// Notify calls f(msg).
func (f Func) Notify(msg string) { f(msg) }

// Failure reports msg as a failure when n supports it, and as a regular
// message otherwise.
func Failure(n Notifier, msg string) {
	if f, ok := n.(FailureNotifier); ok {
		f.NotifyFailure(msg)
		return
	}
	n.Notify(msg)
}

// NewDesktop returns a desktop sink. A nil run uses os/exec.
func NewDesktop(run RunFunc) *Desktop {
	if run == nil {
		run = runCommand
	}
	return &Desktop{run: run}
}

// Notify implements Notifier. Delivery errors are logged.
func (d *Desktop) Notify(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := d.run(ctx, "notify-send", appName, msg); err != nil {
		slog.Warn("desktop notification failed", "error", err, "message", msg)
	}
}

// NewLog returns a sink writing to logger, or to slog.Default when nil.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(msg string) { l.log().Info(msg) }

// NotifyFailure implements FailureNotifier.
func (l *Log) NotifyFailure(msg string) { l.log().Error(msg) }

func (l *Log) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return slog.Default()
}

// NewStderr returns a sink printing to w, green for progress and red for
// failures. Colors are dropped when w is not a terminal.
func NewStderr(w io.Writer) *Stderr {
	r := lipgloss.NewRenderer(w)
	return &Stderr{
		w:       w,
		info:    r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Notify implements Notifier.
func (s *Stderr) Notify(msg string) {
	fmt.Fprintln(s.w, prefix+s.info.Render(msg))
}

// NotifyFailure implements FailureNotifier.
func (s *Stderr) NotifyFailure(msg string) {
	fmt.Fprintln(s.w, s.failure.Render(msg))
}

// Select returns the sink for mode. In ModeAuto a desktop session without a
// terminal gets desktop notifications, a verbose run logs, and anything else
// prints on stderr.
func Select(mode string, s Session) (Notifier, error) {
	switch mode {
	case ModeDesktop:
		return NewDesktop(nil), nil
	case ModeLog:
		return NewLog(nil), nil
	case ModeStderr:
		return NewStderr(os.Stderr), nil
	case ModeAuto, "":
	default:
		return nil, fmt.Errorf("unknown notification mode %q", mode)
	}

	if !s.StdoutIsTerminal && s.hasDesktopSession() {
		return NewDesktop(nil), nil
	}
	if s.Verbose {
		return NewLog(nil), nil
	}
	return NewStderr(os.Stderr), nil
}

func (s Session) hasDesktopSession() bool {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	exists := s.Exists
	if exists == nil {
		exists = pathExists
	}
	if getenv("DBUS_SESSION_BUS_ADDRESS") != "" {
		return true
	}
	rt := getenv("XDG_RUNTIME_DIR")
	return rt != "" && exists(filepath.Join(rt, "bus"))
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}
