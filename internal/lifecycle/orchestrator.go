// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/notify"
	"github.com/podenv/podenv/internal/plan"
	"github.com/podenv/podenv/pkg/types"
)

type (
	// Runtime is the container runtime adapter driven by the orchestrator.
	// Every failure is a RuntimeError (errors.Is(err, issue.ErrRuntime)).
	Runtime interface {
		BuildOrUpdateImage(ctx context.Context, ec *plan.ExecutionContext, cacheDir string) error
		SetupImage(ctx context.Context, ec *plan.ExecutionContext, rebuild bool, cacheDir string) error
		SetupPod(ctx context.Context, ec *plan.ExecutionContext, rebuild bool) error
		// Execute blocks until the pod exits, or returns early with the
		// context error when ctx is canceled.
		Execute(ctx context.Context, name string, runtimeArgs []string, image string, command []string) (types.ExitCode, error)
		Kill(ctx context.Context, name string) error
		Cleanup(ctx context.Context) error
	}

	// InterruptFunc derives the context observed by EXECUTE; it is canceled
	// when the process is interrupted.
	InterruptFunc func(ctx context.Context) (context.Context, context.CancelFunc)

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Options are the per-run lifecycle switches.
	Options struct {
		Update   bool
		Rebuild  bool
		CacheDir string
	}

	// Orchestrator runs execution contexts. It holds no per-run state and
	// may be reused.
	Orchestrator struct {
		runtime   Runtime
		notifier  notify.Notifier
		debug     bool
		verbose   bool
		interrupt InterruptFunc
	}
)

// WithDebug makes Run and Report return errors unmodified instead of
// reporting them.
func WithDebug(debug bool) Option {
	return func(o *Orchestrator) { o.debug = debug }
}

// WithVerbose includes error chains in reported failures.
func WithVerbose(verbose bool) Option {
	return func(o *Orchestrator) { o.verbose = verbose }
}

// WithInterrupt replaces the interrupt source, which defaults to SIGINT and
// SIGTERM.
func WithInterrupt(fn InterruptFunc) Option {
	return func(o *Orchestrator) { o.interrupt = fn }
}

// New creates an Orchestrator. rt may be nil when the orchestrator is only
// used to Report failures that happen before a runtime exists.
func New(rt Runtime, n notify.Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runtime:   rt,
		notifier:  n,
		interrupt: signalInterrupt,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes ec and returns the process exit code. Failures are sent to
// the notifier; in debug mode they are returned instead, after the post
// tasks and cleanup ran, and the exit code is ExitFailure.
func (o *Orchestrator) Run(ctx context.Context, ec *plan.ExecutionContext, opts Options) (types.ExitCode, error) {
	o.transition(StateStart)
	if o.runtime == nil {
		return o.Report(&issue.EngineError{Op: "run " + ec.Name(), Msg: "no container runtime"})
	}
	if opts.Update && opts.Rebuild {
		return o.Report(&issue.InvalidActionError{Action: "--update --rebuild"})
	}

	if err := o.setup(ctx, ec, opts); err != nil {
		code, reported := o.Report(err)
		if cerr := o.cleanup(ctx); cerr != nil {
			slog.Debug("cleanup after failed setup", "error", cerr)
		}
		return code, reported
	}

	var failures []error
	code, err := o.runPod(ctx, ec)
	if err != nil {
		failures = append(failures, o.deliver(err))
	}

	o.transition(StatePostTasks)
	if err := plan.RunTasks(context.WithoutCancel(ctx), ec.HostPostTasks()); err != nil {
		failures = append(failures, o.deliver(err))
	}

	if err := o.cleanup(ctx); err != nil {
		failures = append(failures, o.deliver(err))
		code = types.ExitFailure
	}
	o.transition(StateEnd)
	if err := errors.Join(failures...); err != nil {
		return types.ExitFailure, err
	}
	return code, nil
}

// Report handles an error at the orchestration boundary. In debug mode err is
// returned unmodified; otherwise it is sent to the notifier and consumed.
// The exit code is always ExitFailure.
func (o *Orchestrator) Report(err error) (types.ExitCode, error) {
	return types.ExitFailure, o.deliver(err)
}

func (o *Orchestrator) deliver(err error) error {
	if o.debug {
		return err
	}
	notify.Failure(o.notifier, o.format(err))
	return nil
}

func (o *Orchestrator) setup(ctx context.Context, ec *plan.ExecutionContext, opts Options) error {
	if opts.Update {
		o.transition(StateUpdateImage)
		if err := o.runtime.BuildOrUpdateImage(ctx, ec, opts.CacheDir); err != nil {
			return err
		}
	}
	o.transition(StateSetupImage)
	if err := o.runtime.SetupImage(ctx, ec, opts.Rebuild, opts.CacheDir); err != nil {
		return err
	}
	o.transition(StateSetupPod)
	return o.runtime.SetupPod(ctx, ec, opts.Rebuild)
}

// runPod runs the pre tasks and the pod. An interrupt is not an error: the
// pod is killed and the run recorded as failed.
func (o *Orchestrator) runPod(ctx context.Context, ec *plan.ExecutionContext) (types.ExitCode, error) {
	o.transition(StatePreTasks)
	if err := plan.RunTasks(ctx, ec.HostPreTasks()); err != nil {
		return types.ExitFailure, err
	}

	o.transition(StateExecute)
	execCtx, stop := o.interrupt(ctx)
	code, err := o.runtime.Execute(execCtx, ec.Name(), ec.Args(), ec.ImageName(), ec.CommandArgs())
	interrupted := execCtx.Err() != nil
	stop()

	switch {
	case interrupted:
		slog.Info("interrupted, killing pod", "pod", ec.Name())
		if kerr := o.runtime.Kill(context.WithoutCancel(ctx), ec.Name()); kerr != nil {
			slog.Debug("kill failed", "pod", ec.Name(), "error", kerr)
		}
		return types.ExitFailure, nil
	case err != nil:
		return types.ExitFailure, err
	case !code.IsSuccess():
		slog.Debug("pod exited with failure", "pod", ec.Name(), "code", code)
		return types.ExitFailure, nil
	}
	return types.ExitSuccess, nil
}

func (o *Orchestrator) cleanup(ctx context.Context) error {
	o.transition(StateCleanup)
	return o.runtime.Cleanup(context.WithoutCancel(ctx))
}

func (o *Orchestrator) transition(s State) {
	slog.Debug("lifecycle", "state", s)
}

func (o *Orchestrator) format(err error) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(o.verbose)
	}
	if o.verbose {
		return fmt.Sprintf("%v (%T)", err, err)
	}
	return err.Error()
}

func signalInterrupt(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
