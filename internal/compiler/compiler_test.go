// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/podenv/podenv/internal/capability"
	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/plan"
)

func testOptions() Options {
	return Options{Host: plan.HostInfo{
		UID: 1001, GID: 1001, User: "bob", Home: "/home/bob", Cwd: "/work",
		RuntimeDir: "/run/user/1001", CacheDir: "/home/bob/.cache/podenv",
	}}
}

func TestCompileLocalDev(t *testing.T) {
	t.Parallel()

	env := environment.Environment{Name: "dev", Image: "localhost/dev", Command: []string{"/bin/sh"}, Capabilities: map[string]bool{}}
	ec, err := Compile(env, nil, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if ec.ImageName() != "localhost/dev" {
		t.Errorf("ImageName() = %q", ec.ImageName())
	}
	if !slices.Equal(ec.CommandArgs(), []string{"/bin/sh"}) {
		t.Errorf("CommandArgs() = %q", ec.CommandArgs())
	}
	if !ec.LocalImage() {
		t.Error("LocalImage() = false")
	}
	if ec.ContainerFile() != "" {
		t.Errorf("ContainerFile() = %q, want empty without a recipe", ec.ContainerFile())
	}
	if !strings.HasPrefix(ec.ContainerUpdate(), "FROM localhost/dev\n") {
		t.Errorf("ContainerUpdate() = %q", ec.ContainerUpdate())
	}

	line := ec.CommandLine()
	n := len(line)
	if line[0] != "run" || line[n-2] != "localhost/dev" || line[n-1] != "/bin/sh" {
		t.Errorf("CommandLine() = %q", line)
	}
	if !slices.Equal(line[1:n-2], ec.Args()) {
		t.Errorf("CommandLine() args %q != Args() %q", line[1:n-2], ec.Args())
	}
}

func TestCompileDeterministic(t *testing.T) {
	t.Parallel()

	env := environment.Environment{
		Name:    "web",
		Image:   "registry.fedoraproject.org/fedora:40",
		Command: []string{"firefox"},
		Capabilities: map[string]bool{
			"x11": true, "wayland": true, "pulseaudio": true, "dbus": true, "dri": true,
			"network": true, "terminal": true, "mount-cache": true, "ssh": true,
		},
		Environ: map[string]string{"Z": "1", "A": "2", "M": "3", "MOZ_ENABLE_WAYLAND": "1"},
		Home:    "/home/bob/web",
	}
	first, err := Compile(env, []string{"--private"}, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	for range 20 {
		again, err := Compile(env, []string{"--private"}, testOptions())
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(first.Args(), again.Args()) || !slices.Equal(first.CommandArgs(), again.CommandArgs()) {
			t.Fatalf("compile is not deterministic:\n%q\n%q", first.Args(), again.Args())
		}
	}
	if !slices.Equal(first.CommandArgs(), []string{"firefox", "--private"}) {
		t.Errorf("CommandArgs() = %q", first.CommandArgs())
	}
}

func TestCompileRecipeOnly(t *testing.T) {
	t.Parallel()

	env := environment.Environment{Name: "tools", BaseImage: "fedora:40", Packages: []string{"git", "make"}}
	ec, err := Compile(env, nil, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if ec.ImageName() != "localhost/podenv-tools" {
		t.Errorf("ImageName() = %q", ec.ImageName())
	}
	want := "FROM fedora:40\nRUN dnf install -y git make && dnf clean all\n"
	if ec.ContainerFile() != want {
		t.Errorf("ContainerFile() = %q, want %q", ec.ContainerFile(), want)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		env    environment.Environment
		target error
	}{
		{"no image", environment.Environment{Name: "x"}, issue.ErrConfig},
		{"bad name", environment.Environment{Name: "a b", Image: "fedora"}, issue.ErrConfig},
		{"bad image", environment.Environment{Name: "x", Image: "UPPER/Case::"}, issue.ErrConfig},
		{"unknown capability", environment.Environment{Name: "x", Image: "fedora", Capabilities: map[string]bool{"warp": true}}, issue.ErrConfig},
		{"self network", environment.Environment{Name: "x", Image: "fedora", Network: "x"}, issue.ErrConfig},
		{
			"network conflict",
			environment.Environment{Name: "x", Image: "fedora", Network: "host", Capabilities: map[string]bool{"network": false}},
			capability.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Compile(tt.env, nil, testOptions()); !errors.Is(err, tt.target) {
				t.Errorf("Compile() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestCompileCustomTable(t *testing.T) {
	t.Parallel()

	table := capability.MustTable(capability.Capability{
		Name: "hello",
		Apply: func(b *plan.Builder, enabled bool) error {
			if enabled {
				b.AddArgs("--label=hello")
			}
			return nil
		},
	})
	env := environment.Environment{Name: "x", Image: "fedora", Capabilities: map[string]bool{"hello": true}}
	opts := testOptions()
	opts.Table = table
	ec, err := Compile(env, nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"--rm", "--name", "podenv-x", "--hostname", "x", "--label=hello", "--env", "HOME=/home/user"}
	if !slices.Equal(ec.Args(), want) {
		t.Errorf("Args() = %q, want %q", ec.Args(), want)
	}
}

func TestManagerFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		image string
		want  packageManager
	}{
		{"fedora:40", dnf},
		{"registry.fedoraproject.org/fedora", dnf},
		{"docker.io/library/debian:stable", apt},
		{"Ubuntu:24.04", apt},
	}
	for _, tt := range tests {
		if got := managerFor(tt.image); got != tt.want {
			t.Errorf("managerFor(%q) = %v, want %v", tt.image, got, tt.want)
		}
	}
}
