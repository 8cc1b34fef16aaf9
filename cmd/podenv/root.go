// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/podenv/podenv/internal/config"
	"github.com/podenv/podenv/internal/container"
	"github.com/podenv/podenv/internal/lifecycle"
	"github.com/podenv/podenv/internal/notify"
	"github.com/podenv/podenv/internal/plan"
	"github.com/podenv/podenv/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

var _ lifecycle.Runtime = (*container.Podman)(nil)

type (
	// Deps are the process collaborators of the root command. Tests replace
	// them to run the command without a container engine.
	Deps struct {
		Stdout io.Writer
		Stderr io.Writer
		// Host snapshots the host facts used by the compiler.
		Host func(cacheDir string) plan.HostInfo
		// Notifier selects the notification sink.
		Notifier func(mode string, verbose bool) (notify.Notifier, error)
		// Runtime creates the container runtime adapter. It is only called
		// once the lifecycle is about to run.
		Runtime func(s *config.Settings, n notify.Notifier) (lifecycle.Runtime, error)
		// Interrupt overrides the interrupt source of the lifecycle.
		Interrupt lifecycle.InterruptFunc
	}
)

// DefaultDeps returns the collaborators of a real podenv process.
func DefaultDeps() *Deps {
	return &Deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Host:   plan.CurrentHost,
		Notifier: func(mode string, verbose bool) (notify.Notifier, error) {
			return notify.Select(mode, notify.Session{
				StdoutIsTerminal: term.IsTerminal(int(os.Stdout.Fd())),
				Verbose:          verbose,
			})
		},
		Runtime: func(s *config.Settings, n notify.Notifier) (lifecycle.Runtime, error) {
			engine, err := container.LookupEngine(s.Engine)
			if err != nil {
				return nil, err
			}
			return container.NewPodman(engine, container.WithNotifier(n)), nil
		},
	}
}

// NewRootCommand builds the podenv command. Every call returns a command with
// its own flag state.
func NewRootCommand(deps *Deps) *cobra.Command {
	opts := newOptions()
	root := &cobra.Command{
		Use:   "podenv [flags] [env] [args...]",
		Short: "Run applications in capability-gated podman containers",
		Long: TitleStyle.Render("podenv") + SubtitleStyle.Render(" - run applications in podman containers") + `

An environment declares an image, a command and the capabilities the
container gets (display, sound, network, devices, host mounts).
Environments are read from ~/.config/podenv/config.cue and ./.podenv.cue.

` + SubtitleStyle.Render("Examples:") + `
  podenv --list                 List the environments
  podenv firefox                Run the firefox environment
  podenv --show --verbose web   Print the podman command line
  podenv --shell --net host dev Open a shell with the host network
  podenv -E 'environments: tmp: image: "fedora"' tmp ls /`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, deps, opts, args)
		},
	}
	root.Flags().SetInterspersed(false)
	opts.register(root)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with its code. It is called by
// main.main.
func Execute() {
	root := NewRootCommand(DefaultDeps())

	// Failures are reported by the lifecycle; keep fang from printing them
	// a second time and only carry their exit code.
	var code types.ExitCode
	runE := root.RunE
	root.RunE = func(cmd *cobra.Command, args []string) error {
		err := runE(cmd, args)
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			code = exitErr.Code
			return nil
		}
		return err
	}

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(processExitCode(err)))
	}
	os.Exit(int(code))
}

// processExitCode maps an error returned by fang to the process exit code.
// An error never exits with success.
func processExitCode(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && !exitErr.Code.IsSuccess() {
		return exitErr.Code
	}
	return types.ExitFailure
}
