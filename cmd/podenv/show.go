// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
	"mvdan.cc/sh/v3/syntax"

	"github.com/podenv/podenv/internal/config"
	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/plan"
)

const listPadding = 3

// printList prints the NAME  DESCRIPTION table sorted by name.
func printList(w io.Writer, envs map[string]environment.Environment) {
	names := config.Names(envs)
	width := len("NAME")
	for _, name := range names {
		width = max(width, len(name))
	}
	width += listPadding

	fmt.Fprintf(w, "%-*s%s\n", width, "NAME", "DESCRIPTION")
	for _, name := range names {
		fmt.Fprintf(w, "%-*s%s\n", width, name, envs[name].Description)
	}
}

// printShow prints what running env would do, without touching the runtime.
func printShow(w io.Writer, o *options, env environment.Environment, ec *plan.ExecutionContext) error {
	if o.debug && env.Original != nil {
		slog.Debug("Schema:")
		data, err := yaml.Marshal(env.Original)
		if err != nil {
			return fmt.Errorf("failed to encode declaration: %w", err)
		}
		fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	}
	if o.verbose {
		slog.Debug("Environment:")
		env.ContainerFile = ""
		fmt.Fprintf(w, "%s\n\n", env)
	}
	if ec.LocalImage() && ec.ContainerFile() != "" {
		slog.Info("Containerfile:")
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(ec.ContainerFile()))
	}
	if o.verbose && ec.LocalImage() && ec.ContainerUpdate() != "" {
		slog.Info("Containerfile for update:")
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(ec.ContainerUpdate()))
	}

	line, err := quoteCommand(ec.CommandLine())
	if err != nil {
		return err
	}
	slog.Info("Command line:")
	fmt.Fprintln(w, "podman "+line)
	return nil
}

// quoteCommand joins args into a line a POSIX shell would split back into
// the same words.
func quoteCommand(args []string) (string, error) {
	quoted := make([]string, len(args))
	for i, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("cannot quote %q: %w", arg, err)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " "), nil
}
