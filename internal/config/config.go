// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"

	"github.com/podenv/podenv/internal/cueutil"
	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/pkg/types"
)

const (
	// AppName is the application name.
	AppName = "podenv"
	// ConfigFileName is the name of the user config file.
	ConfigFileName = "config.cue"
	// LocalConfigFileName is the project config unified with the user one.
	LocalConfigFileName = ".podenv.cue"

	exprSourceName = "<expr>"
)

//go:embed config_schema.cue
var configSchema []byte

type (
	// LoadOptions defines the configuration sources.
	LoadOptions struct {
		// Path is the user config file. Empty means DefaultConfigPath; an
		// explicit path must exist.
		Path string
		// Expr is a CUE expression unified with the files.
		Expr string
		// SkipLocal disables the lookup of LocalPath.
		SkipLocal bool
		// LocalPath defaults to ./.podenv.cue.
		LocalPath string
		Debug     bool
	}

	fileConfig struct {
		Environments map[string]envDecl `json:"environments"`
	}

	envDecl struct {
		Name          string            `json:"name"`
		Description   string            `json:"description,omitempty"`
		Image         string            `json:"image,omitempty"`
		BaseImage     string            `json:"base_image,omitempty"`
		Packages      []string          `json:"packages,omitempty"`
		ContainerFile string            `json:"containerfile,omitempty"`
		Command       []string          `json:"command,omitempty"`
		Capabilities  map[string]bool   `json:"capabilities,omitempty"`
		Environ       map[string]string `json:"environ,omitempty"`
		Network       string            `json:"network,omitempty"`
		Home          string            `json:"home,omitempty"`
	}
)

// ConfigDir returns the podenv configuration directory: $XDG_CONFIG_HOME/podenv,
// defaulting to ~/.config/podenv.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultConfigPath returns the user config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads, unifies and validates the configuration sources and returns
// the declared environments by name.
func Load(ctx context.Context, opts LoadOptions) (map[string]environment.Environment, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	path := opts.Path
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, &issue.ConfigError{Msg: "cannot locate configuration", Cause: err}
		}
		path = p
	}

	data, err := os.ReadFile(path)
	found := err == nil
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && opts.Path == "":
		slog.Debug("no user configuration", "path", path)
	default:
		return nil, configNotFound(path, err)
	}

	parseOpts := []cueutil.Option{cueutil.WithFilename(path)}
	sources := []string{}
	if found {
		sources = append(sources, path)
	}
	if !opts.SkipLocal {
		local := opts.LocalPath
		if local == "" {
			local = LocalConfigFileName
		}
		if localData, err := os.ReadFile(local); err == nil {
			parseOpts = append(parseOpts, cueutil.WithSource(local, localData))
			sources = append(sources, local)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, &issue.ConfigError{Msg: "cannot read " + local, Cause: err}
		}
	}
	if opts.Expr != "" {
		parseOpts = append(parseOpts, cueutil.WithSource(exprSourceName, []byte(opts.Expr)))
		sources = append(sources, exprSourceName)
	}
	if len(sources) == 0 {
		return nil, configNotFound(path, fs.ErrNotExist)
	}
	if opts.Debug {
		slog.Debug("loading configuration", "sources", sources)
	}

	result, err := cueutil.ParseAndDecode[fileConfig](configSchema, data, "#Config", parseOpts...)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(strings.Join(sources, ", ")).
			WithSuggestion("Check that the files contain valid CUE matching the environment schema").
			WithIssue(issue.ConfigParseErrorId).
			Wrap(&issue.ConfigError{Msg: "invalid configuration", Cause: err}).
			BuildError()
	}

	envs := make(map[string]environment.Environment, len(result.Value.Environments))
	for name, decl := range result.Value.Environments {
		env, err := decl.toEnvironment()
		if err != nil {
			return nil, err
		}
		env.Original = originalOf(result.Unified, name)
		envs[name] = env
	}
	return envs, nil
}

// GetEnv returns the named environment or a ConfigError listing the known ones.
func GetEnv(envs map[string]environment.Environment, name string) (environment.Environment, error) {
	if env, ok := envs[name]; ok {
		return env, nil
	}
	return environment.Environment{}, issue.NewErrorContext().
		WithOperation("select environment").
		WithResource(name).
		WithSuggestion("Available environments: " + strings.Join(Names(envs), ", ")).
		WithIssue(issue.EnvNotFoundId).
		Wrap(issue.NewConfigError("%s: environment not found", name)).
		BuildError()
}

// Names returns the environment names sorted.
func Names(envs map[string]environment.Environment) []string {
	return slices.Sorted(maps.Keys(envs))
}

func (d envDecl) toEnvironment() (environment.Environment, error) {
	home, err := expandHome(d.Home)
	if err != nil {
		return environment.Environment{}, &issue.PathResolutionError{Path: d.Home, Cause: err}
	}
	if home != "" && !filepath.IsAbs(home) {
		return environment.Environment{}, issue.NewConfigError("%s: home %q must be an absolute path", d.Name, d.Home)
	}
	return environment.Environment{
		Name:          types.EnvName(d.Name),
		Description:   d.Description,
		Image:         d.Image,
		Command:       d.Command,
		Capabilities:  d.Capabilities,
		Environ:       d.Environ,
		Network:       d.Network,
		Home:          home,
		BaseImage:     d.BaseImage,
		Packages:      d.Packages,
		ContainerFile: d.ContainerFile,
	}, nil
}

// originalOf decodes the declaration of one environment for introspection.
func originalOf(root cue.Value, name string) any {
	var raw map[string]any
	v := root.LookupPath(cue.MakePath(cue.Str("environments"), cue.Str(name)))
	if err := v.Decode(&raw); err != nil {
		slog.Debug("cannot decode raw declaration", "env", name, "error", err)
		return nil
	}
	return raw
}

// expandHome expands a leading tilde. The directory itself is created when
// the pod is set up, so it does not need to exist yet.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

func configNotFound(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Create " + path + " or pass --config").
		WithSuggestion("Declare a one-off environment with -E").
		WithIssue(issue.ConfigNotFoundId).
		Wrap(&issue.ConfigError{Msg: "configuration not found", Cause: err}).
		BuildError()
}
