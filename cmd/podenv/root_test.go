// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/podenv/podenv/internal/config"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/lifecycle"
	"github.com/podenv/podenv/internal/notify"
	"github.com/podenv/podenv/internal/plan"
	"github.com/podenv/podenv/internal/testutil"
	"github.com/podenv/podenv/pkg/types"
)

// The root command tests are not parallel: they set the default slog logger
// and the config directory override.

const testConfig = `
environments: {
	dev: {
		description: "development shell"
		image:       "localhost/dev"
		command: ["/bin/sh"]
	}
	web: {
		description: "web browser"
		image:       "registry.fedoraproject.org/fedora:40"
		command: ["firefox"]
		capabilities: {x11: true, terminal: false}
	}
	build: {
		description: "toolbox"
		base_image:  "fedora:40"
		packages: ["make", "gcc"]
		command: ["make"]
	}
}
`

type (
	fakeRuntime struct {
		mu    sync.Mutex
		calls []string
		code  types.ExitCode
		// args of the last Execute call
		runtimeArgs []string
		command     []string
	}

	recordingNotifier struct {
		mu       sync.Mutex
		failures []string
	}

	harness struct {
		deps     *Deps
		stdout   *bytes.Buffer
		stderr   *bytes.Buffer
		runtime  *fakeRuntime
		notifier *recordingNotifier
		created  int
		config   string
	}
)

func (f *fakeRuntime) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRuntime) BuildOrUpdateImage(context.Context, *plan.ExecutionContext, string) error {
	f.record("update")
	return nil
}

func (f *fakeRuntime) SetupImage(context.Context, *plan.ExecutionContext, bool, string) error {
	f.record("setup-image")
	return nil
}

func (f *fakeRuntime) SetupPod(context.Context, *plan.ExecutionContext, bool) error {
	f.record("setup-pod")
	return nil
}

func (f *fakeRuntime) Execute(_ context.Context, name string, runtimeArgs []string, _ string, command []string) (types.ExitCode, error) {
	f.record("execute:" + name)
	f.runtimeArgs, f.command = runtimeArgs, command
	return f.code, nil
}

func (f *fakeRuntime) Kill(_ context.Context, name string) error {
	f.record("kill:" + name)
	return nil
}

func (f *fakeRuntime) Cleanup(context.Context) error {
	f.record("cleanup")
	return nil
}

func (n *recordingNotifier) Notify(string) {}

func (n *recordingNotifier) NotifyFailure(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, msg)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	config.SetConfigDirOverride(dir)
	t.Cleanup(config.Reset)
	for _, key := range []string{"PODENV_CONFIG", "PODENV_CACHE_DIR", "PODENV_ENGINE", "PODENV_NOTIFY"} {
		t.Cleanup(testutil.MustUnsetenv(t, key))
	}
	t.Cleanup(testutil.MustChdir(t, dir))
	prevLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	h := &harness{
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		runtime:  &fakeRuntime{},
		notifier: &recordingNotifier{},
		config:   testutil.MustWriteFile(t, filepath.Join(dir, "envs.cue"), testConfig),
	}
	h.deps = &Deps{
		Stdout: h.stdout,
		Stderr: h.stderr,
		Host: func(cacheDir string) plan.HostInfo {
			return plan.HostInfo{UID: 1000, GID: 1000, User: "user", Home: "/home/user", Cwd: dir, CacheDir: cacheDir}
		},
		Notifier: func(string, bool) (notify.Notifier, error) { return h.notifier, nil },
		Runtime: func(*config.Settings, notify.Notifier) (lifecycle.Runtime, error) {
			h.created++
			return h.runtime, nil
		},
		Interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := NewRootCommand(h.deps)
	root.SetArgs(append([]string{"--config", h.config}, args...))
	root.SetOut(h.stdout)
	root.SetErr(h.stderr)
	return root.ExecuteContext(context.Background())
}

func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error %v is not an ExitError", err)
	}
	return exitErr.Code
}

func TestList(t *testing.T) {
	h := newHarness(t)

	if err := h.run("--list"); err != nil {
		t.Fatalf("--list error = %v", err)
	}
	want := "NAME     DESCRIPTION\n" +
		"build    toolbox\n" +
		"dev      development shell\n" +
		"web      web browser\n"
	if got := h.stdout.String(); got != want {
		t.Errorf("--list output:\n%s\nwant:\n%s", got, want)
	}
	if h.created != 0 {
		t.Error("--list created a runtime")
	}
}

func TestShow(t *testing.T) {
	h := newHarness(t)

	if err := h.run("--show", "dev"); err != nil {
		t.Fatalf("--show error = %v", err)
	}
	out := strings.TrimSpace(h.stdout.String())
	if !strings.HasPrefix(out, "podman run --rm --name podenv-dev --hostname dev ") {
		t.Errorf("command line = %q", out)
	}
	if !strings.HasSuffix(out, " localhost/dev /bin/sh") {
		t.Errorf("command line does not end with image and command: %q", out)
	}
	if h.created != 0 || len(h.runtime.calls) != 0 {
		t.Errorf("--show touched the runtime: created=%d calls=%q", h.created, h.runtime.calls)
	}
}

func TestShowVerboseLocalRecipe(t *testing.T) {
	h := newHarness(t)

	if err := h.run("--show", "--verbose", "build", "-j4"); err != nil {
		t.Fatalf("--show error = %v", err)
	}
	out := h.stdout.String()
	for _, want := range []string{
		"Environment(name=build",
		"FROM fedora:40\nRUN dnf install -y make gcc",
		"FROM localhost/podenv-build\nRUN dnf update -y",
		" localhost/podenv-build make -j4\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestShowDebugDumpsDeclaration(t *testing.T) {
	h := newHarness(t)

	if err := h.run("--show", "--debug", "web"); err != nil {
		t.Fatalf("--show error = %v", err)
	}
	out := h.stdout.String()
	if !strings.Contains(out, "description: web browser") || !strings.Contains(out, "x11: true") {
		t.Errorf("YAML declaration missing:\n%s", out)
	}
	if !strings.Contains(out, "--volume /tmp/.X11-unix:/tmp/.X11-unix") {
		t.Errorf("x11 volume missing:\n%s", out)
	}
}

func TestRun(t *testing.T) {
	h := newHarness(t)

	err := h.run("-e", "EDITOR=vi", "dev", "-c", "echo hi")
	if code := exitCode(t, err); code != types.ExitSuccess {
		t.Fatalf("exit code = %d (%v)", code, err)
	}
	want := []string{"setup-image", "setup-pod", "execute:podenv-dev", "cleanup"}
	if !slices.Equal(h.runtime.calls, want) {
		t.Errorf("calls = %q, want %q", h.runtime.calls, want)
	}
	if !slices.Equal(h.runtime.command, []string{"/bin/sh", "-c", "echo hi"}) {
		t.Errorf("command = %q, trailing flags must reach the pod", h.runtime.command)
	}
	if !slices.Contains(h.runtime.runtimeArgs, "EDITOR=vi") {
		t.Errorf("runtime args %q miss the environ override", h.runtime.runtimeArgs)
	}
}

func TestRunChildFailure(t *testing.T) {
	h := newHarness(t)
	h.runtime.code = 3

	if code := exitCode(t, h.run("dev")); code != types.ExitFailure {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestRunUpdateRebuild(t *testing.T) {
	h := newHarness(t)

	if code := exitCode(t, h.run("--update", "--rebuild", "dev")); code != types.ExitFailure {
		t.Errorf("exit code = %d", code)
	}
	if len(h.runtime.calls) != 0 {
		t.Errorf("calls = %q, want none", h.runtime.calls)
	}
	if len(h.notifier.failures) != 1 || !strings.Contains(h.notifier.failures[0], "--update --rebuild") {
		t.Errorf("failures = %q", h.notifier.failures)
	}
}

func TestHomeMissing(t *testing.T) {
	h := newHarness(t)

	err := h.run("--home", "/does/not/exist", "dev")
	if code := exitCode(t, err); code != types.ExitFailure {
		t.Fatalf("exit code = %d", code)
	}
	if h.created != 0 || len(h.runtime.calls) != 0 {
		t.Errorf("runtime used: created=%d calls=%q", h.created, h.runtime.calls)
	}
	if len(h.notifier.failures) != 1 || !strings.Contains(h.notifier.failures[0], "/does/not/exist") {
		t.Errorf("failures = %q", h.notifier.failures)
	}
}

func TestDebugReturnsRawError(t *testing.T) {
	h := newHarness(t)

	err := h.run("--debug", "--home", "/does/not/exist", "dev")
	if !errors.Is(err, issue.ErrPathResolution) {
		t.Fatalf("error = %v, want a path resolution error", err)
	}
	if len(h.notifier.failures) != 0 {
		t.Errorf("debug error was reported: %q", h.notifier.failures)
	}
}

// fakeXhost puts an xhost on PATH that grants access and fails to revoke it.
func fakeXhost(t *testing.T) {
	t.Helper()
	bin := t.TempDir()
	script := testutil.MustWriteFile(t, filepath.Join(bin, "xhost"), "#!/bin/sh\ncase \"$1\" in -*) echo \"xhost: unable to open display\" >&2; exit 1;; esac\nexit 0\n")
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(testutil.MustSetenv(t, "PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH")))
}

func TestPostTaskFailure(t *testing.T) {
	t.Run("reported", func(t *testing.T) {
		h := newHarness(t)
		fakeXhost(t)

		err := h.run("web")
		if code := exitCode(t, err); code != types.ExitSuccess {
			t.Fatalf("exit code = %d (%v), post task failures keep the exit code", code, err)
		}
		if len(h.notifier.failures) != 1 || !strings.Contains(h.notifier.failures[0], "unable to open display") {
			t.Errorf("failures = %q", h.notifier.failures)
		}
	})

	t.Run("debug", func(t *testing.T) {
		h := newHarness(t)
		fakeXhost(t)

		err := h.run("--debug", "web")
		if !errors.Is(err, issue.ErrHostTask) {
			t.Fatalf("error = %v, want the host task error", err)
		}
		if code := exitCode(t, err); code != types.ExitFailure {
			t.Errorf("exit code = %d, want %d", code, types.ExitFailure)
		}
		if code := processExitCode(err); code != types.ExitFailure {
			t.Errorf("process exit code = %d, want %d", code, types.ExitFailure)
		}
		if !slices.Contains(h.runtime.calls, "cleanup") {
			t.Errorf("calls = %q, cleanup must run", h.runtime.calls)
		}
	})
}

func TestProcessExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitSuccess},
		{"plain error", errors.New("boom"), types.ExitFailure},
		{"exit error", &ExitError{Code: 3}, 3},
		{"success code with error", &ExitError{Code: types.ExitSuccess, Err: errors.New("boom")}, types.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := processExitCode(tt.err); got != tt.want {
				t.Errorf("processExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOverrideErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"enable and disable", []string{"--x11", "--no-x11", "web"}, "x11"},
		{"shell without terminal", []string{"--shell", "--no-terminal", "dev"}, "terminal"},
		{"unknown environment", []string{"nope"}, "Available environments: build, dev, web"},
		{"bad environ", []string{"-e", "NOEQUALS", "dev"}, "NOEQUALS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if code := exitCode(t, h.run(tt.args...)); code != types.ExitFailure {
				t.Fatalf("exit code = %d", code)
			}
			if len(h.notifier.failures) != 1 || !strings.Contains(h.notifier.failures[0], tt.want) {
				t.Errorf("failures = %q, want one containing %q", h.notifier.failures, tt.want)
			}
			if h.created != 0 {
				t.Error("runtime created")
			}
		})
	}
}

func TestEnvironmentSelection(t *testing.T) {
	t.Run("several environments need a name", func(t *testing.T) {
		h := newHarness(t)
		if code := exitCode(t, h.run()); code != types.ExitFailure {
			t.Errorf("exit code = %d", code)
		}
		if !strings.Contains(h.stderr.String(), "Usage:") {
			t.Errorf("usage not printed: %q", h.stderr.String())
		}
	})

	t.Run("a single environment is selected", func(t *testing.T) {
		h := newHarness(t)
		h.config = testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "one.cue"),
			`environments: only: {image: "quay.io/fedora/fedora", command: ["true"]}`)
		if err := h.run("--show"); err != nil {
			t.Fatalf("error = %v", err)
		}
		if !strings.Contains(h.stdout.String(), "podenv-only") {
			t.Errorf("output = %q", h.stdout.String())
		}
	})

	t.Run("expression declares an environment", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("-E", `environments: tmp: {image: "quay.io/fedora/fedora", command: ["ls"]}`, "--show", "tmp", "/"); err != nil {
			t.Fatalf("error = %v", err)
		}
		if !strings.HasSuffix(strings.TrimSpace(h.stdout.String()), "quay.io/fedora/fedora ls /") {
			t.Errorf("output = %q", h.stdout.String())
		}
	})
}

func TestCapabilityFlagsRegistered(t *testing.T) {
	root := NewRootCommand(DefaultDeps())
	for _, name := range []string{"x11", "no-x11", "terminal", "no-terminal", "mount-cwd", "no-git"} {
		if root.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestQuoteCommand(t *testing.T) {
	t.Parallel()

	got, err := quoteCommand([]string{"run", "--env", "MSG=hello world", "img", "sh", "-c", "echo $HOME"})
	if err != nil {
		t.Fatal(err)
	}
	want := `run --env 'MSG=hello world' img sh -c 'echo $HOME'`
	if got != want {
		t.Errorf("quoteCommand() = %q, want %q", got, want)
	}
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})

	Version, Commit, BuildDate = "v1.2.3", "abc1234", "2025-06-15T10:00:00Z"
	if got, want := getVersionString(), "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q", got)
	}
}
