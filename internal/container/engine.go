// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/pkg/types"
)

// DefaultBinary is the engine binary looked up in PATH.
const DefaultBinary = "podman"

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// EngineOption configures an Engine.
	EngineOption func(*Engine)

	// Engine runs the container engine CLI. Argument builders are pure
	// methods; execution goes through the injectable exec function.
	Engine struct {
		binaryPath  string
		execCommand ExecCommandFunc
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
	}

	// BuildOptions describes an image build.
	BuildOptions struct {
		Tag            string
		ContainerFile  string
		ContextDir     string
		NoCache        bool
		PullNewerImage bool
	}
)

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) EngineOption {
	return func(e *Engine) {
		e.execCommand = fn
	}
}

// WithStdio sets the streams attached to builds and runs.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) EngineOption {
	return func(e *Engine) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// NewEngine creates an engine for the given binary path.
func NewEngine(binaryPath string, opts ...EngineOption) *Engine {
	e := &Engine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LookupEngine resolves binary in PATH and returns an engine for it.
func LookupEngine(binary string, opts ...EngineOption) (*Engine, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("find container engine").
			WithResource(binary).
			WithSuggestion("Install podman or point engine in settings.toml to its binary").
			WithIssue(issue.ContainerEngineNotFoundId).
			Wrap(&issue.EngineError{Op: "lookup " + binary, Cause: err}).
			BuildError()
	}
	return NewEngine(path, opts...), nil
}

// BinaryPath returns the path to the container engine binary.
func (e *Engine) BinaryPath() string { return e.binaryPath }

// --- Argument Builders ---

// BuildArgs constructs arguments for an image build.
//
// Generated command: <binary> build [options] <context>
func (e *Engine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}
	if opts.ContainerFile != "" {
		args = append(args, "-f", opts.ContainerFile)
	}
	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.PullNewerImage {
		args = append(args, "--pull=newer")
	}
	return append(args, opts.ContextDir)
}

// PullArgs constructs arguments for an image pull.
func (e *Engine) PullArgs(image string) []string {
	return []string{"pull", image}
}

// ImageExistsArgs constructs arguments for an image presence check.
func (e *Engine) ImageExistsArgs(image string) []string {
	return []string{"image", "exists", image}
}

// ContainerStateArgs constructs arguments that print a container state.
func (e *Engine) ContainerStateArgs(name string) []string {
	return []string{"container", "inspect", "--format", "{{.State.Status}}", name}
}

// RemoveArgs constructs arguments for a container remove command.
func (e *Engine) RemoveArgs(name string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, name)
}

// KillArgs constructs arguments for a container kill command.
func (e *Engine) KillArgs(name string) []string {
	return []string{"kill", name}
}

// RunArgs constructs arguments for a run: the compiled runtime arguments,
// then the image, then the command.
//
// Generated command: <binary> run [runtimeArgs...] <image> [command...]
func (e *Engine) RunArgs(runtimeArgs []string, image string, command []string) []string {
	args := make([]string, 0, 2+len(runtimeArgs)+len(command))
	args = append(args, "run")
	args = append(args, runtimeArgs...)
	args = append(args, image)
	return append(args, command...)
}

// --- Command Execution ---

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *Engine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandCombined executes a command and returns combined stdout/stderr.
func (e *Engine) RunCommandCombined(ctx context.Context, args ...string) ([]byte, error) {
	out, err := e.CreateCommand(ctx, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out, nil
}

// RunCommandStatus executes a command and returns whether it exited with 0.
// Only failures to start or abnormal terminations are returned as errors.
func (e *Engine) RunCommandStatus(ctx context.Context, args ...string) (bool, error) {
	err := e.CreateCommand(ctx, args...).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return false, nil
	}
	return false, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
}

// RunCommandStreaming executes a command with its output attached to the
// engine stderr. The stderr text is also captured so failures can be
// classified and reported.
func (e *Engine) RunCommandStreaming(ctx context.Context, args ...string) error {
	var captured bytes.Buffer
	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdout = e.stderr
	cmd.Stderr = io.MultiWriter(e.stderr, &captured)
	if err := cmd.Run(); err != nil {
		if msg := lastLine(captured.String()); msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return nil
}

// ExitCodeOf converts the result of a finished command into an exit code.
// Only failures unrelated to the child exit status are returned as errors.
func ExitCodeOf(err error) (types.ExitCode, error) {
	if err == nil {
		return types.ExitSuccess, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return types.ExitCode(code), nil
		}
		// Killed by a signal.
		return types.ExitFailure, nil
	}
	return types.ExitFailure, err
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
