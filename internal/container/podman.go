// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/notify"
	"github.com/podenv/podenv/internal/plan"
	"github.com/podenv/podenv/pkg/types"
)

const (
	containerFileName = "Containerfile"
	buildDirName      = "build"

	stateRunning = "running"
)

type (
	// PodmanOption configures a Podman adapter.
	PodmanOption func(*Podman)

	// Podman implements the lifecycle runtime operations on top of Engine.
	Podman struct {
		engine *Engine

		retryAttempts int
		retryBackoff  time.Duration

		notifier notify.Notifier

		mu        sync.Mutex
		transient []string
	}
)

// WithRetry overrides the retry policy of builds and pulls.
func WithRetry(attempts int, backoff time.Duration) PodmanOption {
	return func(p *Podman) {
		p.retryAttempts = attempts
		p.retryBackoff = backoff
	}
}

// WithNotifier sends image build and pull progress to n instead of the logger.
func WithNotifier(n notify.Notifier) PodmanOption {
	return func(p *Podman) { p.notifier = n }
}

// NewPodman creates the runtime adapter.
func NewPodman(engine *Engine, opts ...PodmanOption) *Podman {
	p := &Podman{
		engine:        engine,
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the underlying CLI engine.
func (p *Podman) Engine() *Engine { return p.engine }

// BuildOrUpdateImage refreshes the image of ec: a local image with an update
// recipe is rebuilt from it, anything else is pulled again.
func (p *Podman) BuildOrUpdateImage(ctx context.Context, ec *plan.ExecutionContext, cacheDir string) error {
	image := ec.ImageName()
	if ec.LocalImage() {
		if ec.ContainerUpdate() == "" {
			return imageError("update "+image, "no update recipe for local image", nil)
		}
		p.progress("Updating local image " + image)
		return p.build(ctx, ec.Name(), image, ec.ContainerUpdate(), true, cacheDir)
	}
	p.progress("Pulling image " + image)
	return p.pull(ctx, image)
}

// SetupImage makes sure the image of ec exists. An existing image is left
// alone unless rebuild is set.
func (p *Podman) SetupImage(ctx context.Context, ec *plan.ExecutionContext, rebuild bool, cacheDir string) error {
	image := ec.ImageName()
	exists, err := p.engine.RunCommandStatus(ctx, p.engine.ImageExistsArgs(image)...)
	if err != nil {
		return &issue.EngineError{Op: "check image " + image, Cause: err}
	}
	if exists && !rebuild {
		slog.Debug("image already present", "image", image)
		return nil
	}

	if !ec.LocalImage() {
		p.progress("Pulling image " + image)
		return p.pull(ctx, image)
	}
	if ec.ContainerFile() == "" {
		if exists {
			slog.Warn("no recipe to rebuild local image, keeping it", "image", image)
			return nil
		}
		return imageError("build "+image, "local image is missing and no containerfile is declared", nil)
	}
	slog.Debug("building local image", "image", image, "rebuild", rebuild)
	p.progress("Building image " + image)
	return p.build(ctx, ec.Name(), image, ec.ContainerFile(), rebuild, cacheDir)
}

// SetupPod creates the host directories of ec and clears stale pod state.
// With rebuild, any container holding the pod name is removed first. A stopped
// container with the same name is always removed; a running one is an error.
func (p *Podman) SetupPod(ctx context.Context, ec *plan.ExecutionContext, rebuild bool) error {
	for _, dir := range ec.HostDirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &issue.EngineError{Op: "create host directory", Msg: dir, Cause: err}
		}
	}

	name := ec.Name()
	out, err := p.engine.RunCommandCombined(ctx, p.engine.ContainerStateArgs(name)...)
	if err != nil {
		if isNoSuchContainer(string(out)) {
			slog.Debug("no existing pod", "name", name)
			return nil
		}
		return &issue.EngineError{Op: "inspect pod " + name, Msg: lastLine(string(out)), Cause: err}
	}
	state := strings.TrimSpace(string(out))
	if state == stateRunning && !rebuild {
		return &issue.EngineError{Op: "setup pod " + name, Msg: "a pod with this name is already running"}
	}
	slog.Debug("removing existing pod", "name", name, "state", state)
	if _, err := p.engine.RunCommandCombined(ctx, p.engine.RemoveArgs(name, true)...); err != nil {
		return &issue.EngineError{Op: "remove pod " + name, Cause: err}
	}
	return nil
}

// Execute runs the pod and blocks until it exits or ctx is done. On
// cancellation it returns ctx.Err() right away; the engine process keeps being
// reaped in the background and is expected to stop once the pod is killed.
func (p *Podman) Execute(ctx context.Context, name string, runtimeArgs []string, image string, command []string) (types.ExitCode, error) {
	args := p.engine.RunArgs(runtimeArgs, image, command)
	// The engine process is not bound to ctx: interrupting the client would
	// leave the pod running, stopping goes through Kill instead.
	cmd := p.engine.CreateCommand(context.WithoutCancel(ctx), args...)
	slog.Debug("executing pod", "name", name, "args", args)

	wait, err := p.start(cmd, slices.Contains(runtimeArgs, "--tty"))
	if err != nil {
		return types.ExitFailure, &issue.EngineError{Op: "run " + name, Cause: err}
	}

	done := make(chan error, 1)
	go func() { done <- wait() }()

	select {
	case err := <-done:
		code, err := ExitCodeOf(err)
		if err != nil {
			return code, &issue.EngineError{Op: "run " + name, Cause: err}
		}
		return code, nil
	case <-ctx.Done():
		return types.ExitFailure, ctx.Err()
	}
}

// Kill stops the pod. A pod that is already gone is not an error.
func (p *Podman) Kill(ctx context.Context, name string) error {
	out, err := p.engine.RunCommandCombined(ctx, p.engine.KillArgs(name)...)
	if err == nil {
		return nil
	}
	if isNoSuchContainer(string(out)) {
		slog.Debug("pod already gone", "name", name)
		return nil
	}
	return &issue.EngineError{Op: "kill " + name, Msg: lastLine(string(out)), Cause: err}
}

// Cleanup removes the transient build contexts created by this adapter.
func (p *Podman) Cleanup(context.Context) error {
	p.mu.Lock()
	dirs := p.transient
	p.transient = nil
	p.mu.Unlock()

	var errs []error
	for _, dir := range dirs {
		slog.Debug("removing build context", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &issue.EngineError{Op: "cleanup", Cause: err}
	}
	return nil
}

func (p *Podman) progress(msg string) {
	if p.notifier == nil {
		slog.Info(msg)
		return
	}
	p.notifier.Notify(msg)
}

func (p *Podman) build(ctx context.Context, podName, image, recipe string, noCache bool, cacheDir string) error {
	dir, err := p.buildContext(podName, recipe, cacheDir)
	if err != nil {
		return imageError("build "+image, "cannot prepare build context", err)
	}
	args := p.engine.BuildArgs(BuildOptions{
		Tag:           image,
		ContainerFile: filepath.Join(dir, containerFileName),
		ContextDir:    dir,
		NoCache:       noCache,
	})
	if err := p.withRetry(ctx, args); err != nil {
		return imageError("build "+image, "", err)
	}
	return nil
}

func (p *Podman) pull(ctx context.Context, image string) error {
	if err := p.withRetry(ctx, p.engine.PullArgs(image)); err != nil {
		return imageError("pull "+image, "", err)
	}
	return nil
}

func (p *Podman) withRetry(ctx context.Context, args []string) error {
	return RetryWithBackoff(ctx, p.retryAttempts, p.retryBackoff, func(attempt int) (bool, error) {
		err := p.engine.RunCommandStreaming(ctx, args...)
		if err != nil && IsTransientError(err) {
			slog.Warn("transient engine failure, retrying", "command", args[0], "attempt", attempt+1, "error", err)
			return true, err
		}
		return false, err
	})
}

// buildContext writes recipe into a fresh directory under cacheDir and
// records it for Cleanup.
func (p *Podman) buildContext(podName, recipe, cacheDir string) (string, error) {
	root := filepath.Join(cacheDir, buildDirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(root, podName+"-")
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.transient = append(p.transient, dir)
	p.mu.Unlock()

	if err := atomic.WriteFile(filepath.Join(dir, containerFileName), strings.NewReader(recipe)); err != nil {
		return "", fmt.Errorf("write %s: %w", containerFileName, err)
	}
	return dir, nil
}

func imageError(op, msg string, cause error) error {
	return issue.NewErrorContext().
		WithOperation(op).
		WithIssue(issue.ImageSetupFailedId).
		WithSuggestion("Run again with --debug to see the full engine output").
		Wrap(&issue.EngineError{Op: "podman", Msg: msg, Cause: cause}).
		BuildError()
}

func isNoSuchContainer(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "no such container") || strings.Contains(out, "no container with name or id")
}
