// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// HostInfo is a snapshot of the host facts capabilities depend on. It is
// captured once per process so that compilation is a pure function of the
// environment, the extra arguments and this value.
type HostInfo struct {
	UID  int
	GID  int
	User string
	Home string
	Cwd  string

	RuntimeDir     string // XDG_RUNTIME_DIR
	Display        string
	WaylandDisplay string
	SSHAuthSock    string
	DBusAddress    string
	Term           string

	// CacheDir is the podenv cache directory (default ~/.cache/podenv).
	CacheDir string
}

// CurrentHost reads the host facts from the running process.
func CurrentHost(cacheDir string) HostInfo {
	h := HostInfo{
		UID:            os.Getuid(),
		GID:            os.Getgid(),
		RuntimeDir:     os.Getenv("XDG_RUNTIME_DIR"),
		Display:        os.Getenv("DISPLAY"),
		WaylandDisplay: os.Getenv("WAYLAND_DISPLAY"),
		SSHAuthSock:    os.Getenv("SSH_AUTH_SOCK"),
		DBusAddress:    os.Getenv("DBUS_SESSION_BUS_ADDRESS"),
		Term:           os.Getenv("TERM"),
		CacheDir:       cacheDir,
	}
	if u, err := user.Current(); err == nil {
		h.User = u.Username
		h.Home = u.HomeDir
	}
	if h.Home == "" {
		h.Home, _ = os.UserHomeDir()
	}
	if h.User == "" {
		h.User = os.Getenv("USER")
	}
	h.Cwd, _ = os.Getwd()
	if h.RuntimeDir == "" {
		h.RuntimeDir = filepath.Join("/run/user", strconv.Itoa(h.UID))
	}
	return h
}
