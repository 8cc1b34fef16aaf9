// SPDX-License-Identifier: MPL-2.0

package override

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/podenv/podenv/internal/capability"
	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/testutil"
)

func baseEnv() environment.Environment {
	return environment.Environment{
		Name:         "dev",
		Image:        "fedora",
		Command:      []string{"make", "test"},
		Capabilities: map[string]bool{"x11": true},
	}
}

func TestApplyCapabilities(t *testing.T) {
	t.Parallel()

	env := baseEnv()
	got, err := Apply(Flags{Enable: []string{"ssh"}, Disable: []string{"x11"}}, env)
	if err != nil {
		t.Fatal(err)
	}
	if on, explicit := got.Capability("ssh"); !on || !explicit {
		t.Errorf("ssh = %v/%v, want enabled explicitly", on, explicit)
	}
	if on, explicit := got.Capability("x11"); on || !explicit {
		t.Errorf("x11 = %v/%v, want disabled explicitly", on, explicit)
	}
	if on, _ := env.Capability("x11"); !on {
		t.Error("Apply modified its input")
	}
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		flags  Flags
		target error
	}{
		{"enable and disable", Flags{Enable: []string{"root"}, Disable: []string{"root"}}, capability.ErrConflict},
		{"unknown capability", Flags{Enable: []string{"teleport"}}, issue.ErrConfig},
		{"environ without equal sign", Flags{Environ: []string{"FOO"}}, issue.ErrConfig},
		{"environ without key", Flags{Environ: []string{"=bar"}}, issue.ErrConfig},
		{"shell with no-terminal", Flags{Shell: true, Disable: []string{"terminal"}}, issue.ErrConfig},
		{"missing home", Flags{Home: "/does/not/exist"}, issue.ErrPathResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Apply(tt.flags, baseEnv())
			if !errors.Is(err, tt.target) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.target)
			}
			if !errors.Is(err, issue.ErrRuntime) {
				t.Errorf("Apply() error %v is not a runtime error", err)
			}
		})
	}
}

func TestApplyEnviron(t *testing.T) {
	t.Parallel()

	env := baseEnv()
	got, err := Apply(Flags{Environ: []string{"A=1", "B=x=y", "A=2", "EMPTY="}}, env)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "2", "B": "x=y", "EMPTY": ""}
	if len(got.Environ) != len(want) {
		t.Fatalf("Environ = %v, want %v", got.Environ, want)
	}
	for k, v := range want {
		if got.Environ[k] != v {
			t.Errorf("Environ[%q] = %q, want %q", k, got.Environ[k], v)
		}
	}
	if env.Environ != nil {
		t.Error("Apply modified its input environ")
	}
}

func TestApplyShell(t *testing.T) {
	t.Parallel()

	for _, command := range [][]string{nil, {"make"}, {"sh", "-c", "exit 3"}} {
		env := baseEnv().WithCommand(command...)
		got, err := Apply(Flags{Shell: true}, env)
		if err != nil {
			t.Fatal(err)
		}
		if on, _ := got.Capability(capability.NameTerminal); !on {
			t.Error("shell did not enable terminal")
		}
		if !slices.Equal(got.Command, []string{"/bin/bash"}) {
			t.Errorf("Command = %q, want [/bin/bash]", got.Command)
		}
	}
}

func TestApplyImageAndNetwork(t *testing.T) {
	t.Parallel()

	got, err := Apply(Flags{Image: "registry.example.com/x:1", Network: "host"}, baseEnv())
	if err != nil {
		t.Fatal(err)
	}
	if got.Image != "registry.example.com/x:1" || got.Network != "host" {
		t.Errorf("Image/Network = %q/%q", got.Image, got.Network)
	}
}

func TestApplyHome(t *testing.T) {
	t.Parallel()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(t.TempDir(), "home-link")
	if err := os.Symlink(dir, link); err != nil {
		t.Fatal(err)
	}

	got, err := Apply(Flags{Home: link}, baseEnv())
	if err != nil {
		t.Fatal(err)
	}
	if got.Home != dir {
		t.Errorf("Home = %q, want %q", got.Home, dir)
	}
}

// Not parallel: changes HOME.
func TestResolvePathTilde(t *testing.T) {
	home, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(testutil.SetHomeDir(t, home))
	testutil.MustMkdirAll(t, filepath.Join(home, "envs", "dev"), 0o755)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/envs/dev", filepath.Join(home, "envs", "dev")},
	}
	for _, tt := range tests {
		got, err := ResolvePath(tt.in)
		if err != nil {
			t.Fatalf("ResolvePath(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ResolvePath("~/missing"); !errors.Is(err, issue.ErrPathResolution) {
		t.Errorf("ResolvePath(~/missing) error = %v", err)
	}
}
