// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/pkg/types"
)

func TestEngineArgs(t *testing.T) {
	t.Parallel()

	e := NewEngine("podman")
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{
			name: "build",
			got:  e.BuildArgs(BuildOptions{Tag: "localhost/dev", ContainerFile: "/c/Containerfile", ContextDir: "/c", NoCache: true}),
			want: []string{"build", "-f", "/c/Containerfile", "-t", "localhost/dev", "--no-cache", "/c"},
		},
		{
			name: "build pull newer",
			got:  e.BuildArgs(BuildOptions{Tag: "x", ContextDir: "/c", PullNewerImage: true}),
			want: []string{"build", "-t", "x", "--pull=newer", "/c"},
		},
		{name: "pull", got: e.PullArgs("fedora"), want: []string{"pull", "fedora"}},
		{name: "image exists", got: e.ImageExistsArgs("fedora"), want: []string{"image", "exists", "fedora"}},
		{name: "rm", got: e.RemoveArgs("podenv-dev", true), want: []string{"rm", "-f", "podenv-dev"}},
		{name: "rm soft", got: e.RemoveArgs("podenv-dev", false), want: []string{"rm", "podenv-dev"}},
		{name: "kill", got: e.KillArgs("podenv-dev"), want: []string{"kill", "podenv-dev"}},
		{
			name: "run",
			got:  e.RunArgs([]string{"--rm", "--name", "podenv-dev"}, "localhost/dev", []string{"/bin/sh", "-c", "true"}),
			want: []string{"run", "--rm", "--name", "podenv-dev", "localhost/dev", "/bin/sh", "-c", "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !slices.Equal(tt.got, tt.want) {
				t.Errorf("args = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestRunCommandStatus(t *testing.T) {
	t.Parallel()

	e, recorder, _ := newMockEngine(t)
	recorder.Results["image exists"] = MockResult{ExitCode: 1}

	ok, err := e.RunCommandStatus(context.Background(), e.ImageExistsArgs("fedora")...)
	if err != nil || ok {
		t.Errorf("RunCommandStatus() = %v, %v, want false, nil", ok, err)
	}
	ok, err = e.RunCommandStatus(context.Background(), e.PullArgs("fedora")...)
	if err != nil || !ok {
		t.Errorf("RunCommandStatus() = %v, %v, want true, nil", ok, err)
	}
}

func TestRunCommandStreamingKeepsLastLine(t *testing.T) {
	t.Parallel()

	e, recorder, out := newMockEngine(t)
	recorder.Results["pull"] = MockResult{ExitCode: 125, Stderr: "Trying to pull...\nError: connection refused\n"}

	err := e.RunCommandStreaming(context.Background(), e.PullArgs("fedora")...)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "Error: connection refused: exit status 125" {
		t.Errorf("error = %q", got)
	}
	if !IsTransientError(err) {
		t.Error("exit 125 should be transient")
	}
	if out.Len() == 0 {
		t.Error("engine output was not streamed")
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	if code, err := ExitCodeOf(nil); code != types.ExitSuccess || err != nil {
		t.Errorf("ExitCodeOf(nil) = %v, %v", code, err)
	}
	if code, err := ExitCodeOf(newExitError(t.Context(), 3)); code != 3 || err != nil {
		t.Errorf("ExitCodeOf(exit 3) = %v, %v", code, err)
	}
	boom := errors.New("exec: not started")
	if code, err := ExitCodeOf(boom); code != types.ExitFailure || !errors.Is(err, boom) {
		t.Errorf("ExitCodeOf(boom) = %v, %v", code, err)
	}
}

func TestLookupEngineMissing(t *testing.T) {
	t.Parallel()

	_, err := LookupEngine("podenv-no-such-engine-binary")
	if !errors.Is(err, issue.ErrEngine) {
		t.Fatalf("LookupEngine() error = %v, want engine error", err)
	}
	if got := issue.Lookup(err); got == nil || got.Id() != issue.ContainerEngineNotFoundId {
		t.Errorf("Lookup() = %v", got)
	}
}
