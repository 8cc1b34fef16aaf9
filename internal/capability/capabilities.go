// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/plan"
	"github.com/podenv/podenv/pkg/types"
)

const (
	// NameTerminal is forced on by the --shell override.
	NameTerminal = "terminal"
	// NameNetwork controls the pod network mode.
	NameNetwork = "network"

	// HostNetwork shares the host network namespace.
	HostNetwork = "host"

	cwdMountPoint = "/data"
	agentSocket   = "/tmp/ssh-agent.sock"
)

// runHostCommand runs a host-side command for tasks.
var runHostCommand = func(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// Default is the podenv capability table. Order matters.
var Default = MustTable(
	Capability{Name: "root", Description: "run as root", Apply: applyRoot},
	Capability{Name: "privileged", Description: "run as privileged container", Apply: flagWhenEnabled("--privileged")},
	Capability{Name: "uidmap", Description: "map host uid", Apply: applyUIDMap},
	Capability{Name: NameTerminal, Description: "interactive mode", Apply: applyTerminal},
	Capability{Name: "ipc", Description: "share host ipc", Apply: flagWhenEnabled("--ipc=host")},
	Capability{
		Name:        NameNetwork,
		Description: "enable network",
		Implied:     func(env environment.Environment) bool { return env.Network != "" },
		Apply:       applyNetwork,
	},
	Capability{Name: "mount-cwd", Description: "mount the current directory to /data", Apply: applyMountCwd},
	Capability{Name: "mount-cache", Description: "keep ~/.cache in a persistent volume", Apply: applyMountCache},
	Capability{Name: "x11", Description: "share x11 socket", Apply: applyX11},
	Capability{Name: "wayland", Description: "share wayland socket", Apply: applyWayland},
	Capability{Name: "pulseaudio", Description: "share pulseaudio socket", Apply: applyPulseaudio},
	Capability{Name: "dbus", Description: "share session dbus socket", Apply: applyDBus},
	Capability{Name: "dri", Description: "share graphic device", Apply: flagWhenEnabled("--device=/dev/dri")},
	Capability{Name: "kvm", Description: "share kvm device", Apply: flagWhenEnabled("--device=/dev/kvm")},
	Capability{Name: "tun", Description: "share tun device", Apply: flagWhenEnabled("--device=/dev/net/tun", "--cap-add=NET_ADMIN")},
	Capability{Name: "ssh", Description: "share ssh keys and agent", Apply: applySSH},
	Capability{Name: "gpg", Description: "share gpg keyring", Apply: homeMount(".gnupg", false)},
	Capability{Name: "git", Description: "share git configuration", Apply: homeMount(".gitconfig", true)},
)

func flagWhenEnabled(args ...string) ApplyFunc {
	return func(b *plan.Builder, enabled bool) error {
		if enabled {
			b.AddArgs(args...)
		}
		return nil
	}
}

func homeMount(name string, readOnly bool) ApplyFunc {
	return func(b *plan.Builder, enabled bool) error {
		if enabled {
			b.AddVolume(filepath.Join(b.Host().Home, name), path.Join(b.ContainerHome(), name), readOnly)
		}
		return nil
	}
}

func applyRoot(b *plan.Builder, enabled bool) error {
	switch {
	case enabled:
		b.SetUser(0, "/root")
		b.AddArgs("--user=0:0")
	case !b.Enabled("uidmap"):
		b.AddArgs(fmt.Sprintf("--user=%d:%d", plan.DefaultContainerUID, plan.DefaultContainerUID))
	}
	return nil
}

func applyUIDMap(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	b.AddArgs("--userns=keep-id")
	if !b.Enabled("root") {
		b.SetUser(b.Host().UID, plan.DefaultContainerHome)
	}
	return nil
}

func applyTerminal(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	b.AddArgs("--interactive", "--tty", "--detach-keys=")
	b.SetInteractive()
	term := b.Host().Term
	if term == "" {
		term = "xterm"
	}
	b.SetEnv("TERM", term)
	return nil
}

func applyNetwork(b *plan.Builder, enabled bool) error {
	mode := b.Env().Network
	switch {
	case !enabled && mode != "":
		return &ConflictError{
			Capability: NameNetwork,
			Reason:     fmt.Sprintf("network is disabled but network mode %q is requested", mode),
		}
	case !enabled:
		b.AddArgs("--network=none")
	case mode == "":
	case mode == HostNetwork:
		b.AddArgs("--network=host")
	default:
		target := types.EnvName(mode)
		if err := target.Validate(); err != nil {
			return &ConflictError{Capability: NameNetwork, Reason: err.Error()}
		}
		b.AddArgs("--network=container:" + target.PodName())
	}
	return nil
}

func applyMountCwd(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	if b.Host().Cwd == "" {
		return issue.NewConfigError("mount-cwd: current directory is unknown")
	}
	b.AddVolume(b.Host().Cwd, cwdMountPoint, false)
	b.AddArgs("--workdir=" + cwdMountPoint)
	return nil
}

func applyMountCache(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	dir := filepath.Join(b.Host().CacheDir, "volumes", b.Env().Name.String(), "cache")
	b.AddHostDir(dir)
	b.AddVolume(dir, path.Join(b.ContainerHome(), ".cache"), false)
	return nil
}

func applyX11(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	display := b.Host().Display
	if display == "" {
		display = ":0"
	}
	b.AddVolume("/tmp/.X11-unix", "/tmp/.X11-unix", false)
	b.SetEnv("DISPLAY", display)

	grant := "+SI:localuser:" + b.Host().User
	revoke := "-SI:localuser:" + b.Host().User
	b.AddPreTask(plan.Task{Name: "xhost " + grant, Run: func(ctx context.Context) error {
		return runHostCommand(ctx, "xhost", grant)
	}})
	b.AddPostTask(plan.Task{Name: "xhost " + revoke, Run: func(ctx context.Context) error {
		return runHostCommand(ctx, "xhost", revoke)
	}})
	return nil
}

func applyWayland(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	display := b.Host().WaylandDisplay
	if display == "" {
		display = "wayland-0"
	}
	runtimeDir := b.ContainerRuntimeDir()
	b.AddVolume(filepath.Join(b.Host().RuntimeDir, display), path.Join(runtimeDir, display), false)
	b.SetEnv("WAYLAND_DISPLAY", display)
	b.SetEnv("XDG_RUNTIME_DIR", runtimeDir)
	return nil
}

func applyPulseaudio(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	runtimeDir := b.ContainerRuntimeDir()
	b.AddVolume(filepath.Join(b.Host().RuntimeDir, "pulse"), path.Join(runtimeDir, "pulse"), false)
	b.SetEnv("PULSE_SERVER", "unix:"+path.Join(runtimeDir, "pulse", "native"))
	b.SetEnv("XDG_RUNTIME_DIR", runtimeDir)
	return nil
}

func applyDBus(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	runtimeDir := b.ContainerRuntimeDir()
	b.AddVolume(filepath.Join(b.Host().RuntimeDir, "bus"), path.Join(runtimeDir, "bus"), false)
	b.SetEnv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+path.Join(runtimeDir, "bus"))
	b.SetEnv("XDG_RUNTIME_DIR", runtimeDir)
	return nil
}

func applySSH(b *plan.Builder, enabled bool) error {
	if !enabled {
		return nil
	}
	b.AddVolume(filepath.Join(b.Host().Home, ".ssh"), path.Join(b.ContainerHome(), ".ssh"), true)
	if sock := b.Host().SSHAuthSock; sock != "" {
		b.AddVolume(sock, agentSocket, false)
		b.SetEnv("SSH_AUTH_SOCK", agentSocket)
	}
	return nil
}
