// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// start launches cmd with the engine stdio and returns its wait function.
// When a tty is requested but stdin is not a terminal, the engine is given a
// pseudo-terminal and its streams are copied to and from the engine stdio.
func (p *Podman) start(cmd *exec.Cmd, tty bool) (func() error, error) {
	e := p.engine
	if !tty || isTerminal(e.stdin) {
		cmd.Stdin = e.stdin
		cmd.Stdout = e.stdout
		cmd.Stderr = e.stderr
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmd.Wait, nil
	}

	slog.Debug("stdin is not a terminal, allocating a pseudo-terminal")
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	copied := make(chan struct{})
	go func() {
		_, _ = io.Copy(e.stdout, ptmx)
		close(copied)
	}()
	if e.stdin != nil {
		go func() { _, _ = io.Copy(ptmx, e.stdin) }()
	}
	return func() error {
		err := cmd.Wait()
		// The copy ends with EIO once the child side is closed.
		<-copied
		if cerr := ptmx.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			slog.Debug("closing pseudo-terminal", "error", cerr)
		}
		return err
	}, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
