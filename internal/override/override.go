// SPDX-License-Identifier: MPL-2.0

package override

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/podenv/podenv/internal/capability"
	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
)

// ShellCommand replaces the environment command in shell mode.
var ShellCommand = []string{"/bin/bash"}

type (
	// Flags are the overrides collected from the command line. Zero values
	// leave the environment untouched.
	Flags struct {
		// Enable and Disable list the capabilities set with --<name> and
		// --no-<name>.
		Enable  []string
		Disable []string
		// Environ holds repeated KEY=VALUE entries.
		Environ []string
		Shell   bool
		Image   string
		Network string
		Home    string
	}

	// Step is one override applied to an environment.
	Step struct {
		Name  string
		Apply func(f Flags, env environment.Environment) (environment.Environment, error)
	}
)

// Steps is the fixed override order.
var Steps = []Step{
	{Name: "capabilities", Apply: applyCapabilities},
	{Name: "environ", Apply: applyEnviron},
	{Name: "shell", Apply: applyShell},
	{Name: "image", Apply: applyImage},
	{Name: "network", Apply: applyNetwork},
	{Name: "home", Apply: applyHome},
}

// Apply runs every override step against env using the default capability
// table. env itself is never modified.
func Apply(f Flags, env environment.Environment) (environment.Environment, error) {
	return ApplyWith(capability.Default, f, env)
}

// ApplyWith is Apply against an explicit capability table.
func ApplyWith(table *capability.Table, f Flags, env environment.Environment) (environment.Environment, error) {
	if err := checkFlags(table, f); err != nil {
		return environment.Environment{}, err
	}
	out := env.Clone()
	for _, s := range Steps {
		next, err := s.Apply(f, out)
		if err != nil {
			return environment.Environment{}, err
		}
		out = next
	}
	return out, nil
}

func checkFlags(table *capability.Table, f Flags) error {
	for _, name := range slices.Concat(f.Enable, f.Disable) {
		if _, ok := table.Lookup(name); !ok {
			return issue.NewConfigError("unknown capability %q", name)
		}
	}
	for _, name := range f.Enable {
		if slices.Contains(f.Disable, name) {
			return &capability.ConflictError{
				Capability: name,
				Reason:     fmt.Sprintf("both --%s and --no-%s are set", name, name),
			}
		}
	}
	if f.Shell && slices.Contains(f.Disable, capability.NameTerminal) {
		return &capability.ConflictError{
			Capability: capability.NameTerminal,
			Reason:     "--shell requires a terminal but --no-terminal is set",
		}
	}
	return nil
}

func applyCapabilities(f Flags, env environment.Environment) (environment.Environment, error) {
	for _, name := range f.Enable {
		env = env.WithCapability(name, true)
	}
	for _, name := range f.Disable {
		env = env.WithCapability(name, false)
	}
	return env, nil
}

func applyEnviron(f Flags, env environment.Environment) (environment.Environment, error) {
	for _, entry := range f.Environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return env, issue.NewConfigError("invalid environ %q: expected KEY=VALUE", entry)
		}
		env = env.WithEnviron(key, value)
	}
	return env, nil
}

func applyShell(f Flags, env environment.Environment) (environment.Environment, error) {
	if !f.Shell {
		return env, nil
	}
	return env.WithCapability(capability.NameTerminal, true).WithCommand(ShellCommand...), nil
}

func applyImage(f Flags, env environment.Environment) (environment.Environment, error) {
	if f.Image == "" {
		return env, nil
	}
	return env.WithImage(f.Image), nil
}

func applyNetwork(f Flags, env environment.Environment) (environment.Environment, error) {
	if f.Network == "" {
		return env, nil
	}
	return env.WithNetwork(f.Network), nil
}

func applyHome(f Flags, env environment.Environment) (environment.Environment, error) {
	if f.Home == "" {
		return env, nil
	}
	home, err := ResolvePath(f.Home)
	if err != nil {
		return env, err
	}
	return env.WithHome(home), nil
}

// ResolvePath expands a leading tilde and returns the absolute path with
// symlinks evaluated. The path must exist.
func ResolvePath(p string) (string, error) {
	expanded, err := expandTilde(p)
	if err != nil {
		return "", &issue.PathResolutionError{Path: p, Cause: err}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", &issue.PathResolutionError{Path: p, Cause: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &issue.PathResolutionError{Path: p, Cause: err}
	}
	return resolved, nil
}

func expandTilde(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
