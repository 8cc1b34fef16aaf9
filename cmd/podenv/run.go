// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/podenv/podenv/internal/compiler"
	"github.com/podenv/podenv/internal/config"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/lifecycle"
	"github.com/podenv/podenv/internal/notify"
	"github.com/podenv/podenv/internal/override"
	"github.com/podenv/podenv/pkg/types"
)

// run is the root command: load, select, override, compile, then show or
// hand the context to the lifecycle.
func run(ctx context.Context, cmd *cobra.Command, deps *Deps, o *options, args []string) error {
	if o.debug {
		o.verbose = true
	}
	slog.SetDefault(newLogger(deps.Stderr, o.verbose))

	settings, settingsErr := config.LoadSettings(config.SettingsOptions{ConfigFlag: o.config})
	mode := notify.ModeAuto
	if settingsErr == nil {
		mode = settings.Notify
	}
	n, err := deps.Notifier(mode, o.verbose)
	if err != nil {
		return &ExitError{Code: types.ExitFailure, Err: err}
	}

	lcOpts := []lifecycle.Option{lifecycle.WithDebug(o.debug), lifecycle.WithVerbose(o.verbose)}
	if deps.Interrupt != nil {
		lcOpts = append(lcOpts, lifecycle.WithInterrupt(deps.Interrupt))
	}
	fail := func(err error) error {
		if o.verbose && !o.debug {
			renderIssue(deps.Stderr, err)
		}
		code, rerr := lifecycle.New(nil, n, lcOpts...).Report(err)
		return &ExitError{Code: code, Err: rerr}
	}
	if settingsErr != nil {
		return fail(settingsErr)
	}

	envs, err := config.Load(ctx, config.LoadOptions{
		Path:      explicitConfigPath(settings.Config),
		Expr:      o.expr,
		SkipLocal: o.list || len(args) > 0,
		Debug:     o.debug,
	})
	if err != nil {
		return fail(err)
	}
	if o.list && !o.show {
		printList(deps.Stdout, envs)
		return nil
	}

	var name string
	var extra []string
	switch {
	case len(args) > 0:
		name, extra = args[0], args[1:]
	case len(envs) == 1:
		name = config.Names(envs)[0]
	default:
		cmd.SetOut(deps.Stderr)
		_ = cmd.Usage()
		return &ExitError{Code: types.ExitFailure}
	}

	env, err := config.GetEnv(envs, name)
	if err != nil {
		return fail(err)
	}
	env, err = override.Apply(o.overrides(), env)
	if err != nil {
		return fail(err)
	}
	ec, err := compiler.Compile(env, extra, compiler.Options{Host: deps.Host(settings.CacheDir)})
	if err != nil {
		return fail(err)
	}

	if o.show {
		return printShow(deps.Stdout, o, env, ec)
	}

	rt, err := deps.Runtime(settings, n)
	if err != nil {
		return fail(err)
	}
	code, err := lifecycle.New(rt, n, lcOpts...).Run(ctx, ec, lifecycle.Options{
		Update:   o.update,
		Rebuild:  o.rebuild,
		CacheDir: settings.CacheDir,
	})
	if err != nil || !code.IsSuccess() {
		return &ExitError{Code: code, Err: err}
	}
	slog.Debug("complete")
	return nil
}

// explicitConfigPath returns "" for the default path so that a missing
// default file is not an error.
func explicitConfigPath(path string) string {
	if def, err := config.DefaultConfigPath(); err == nil && def == path {
		return ""
	}
	return path
}

// renderIssue prints the catalog entry attached to err, if any.
func renderIssue(w io.Writer, err error) {
	entry := issue.Lookup(err)
	if entry == nil {
		return
	}
	rendered, rerr := entry.Render("dark")
	if rerr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", entry.Id(), "error", rerr)
		return
	}
	fmt.Fprint(w, rendered)
}
