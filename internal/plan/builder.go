// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"maps"
	"path"
	"slices"
	"strconv"

	"github.com/podenv/podenv/internal/environment"
)

const (
	// DefaultContainerUID is the uid used inside the pod when neither root
	// nor the host uid mapping is requested.
	DefaultContainerUID = 1000
	// DefaultContainerHome is the home of the default container user.
	DefaultContainerHome = "/home/user"
)

// Builder accumulates the ExecutionContext while capabilities are applied.
// It is seeded from the environment and only mutated through its methods.
type Builder struct {
	env  environment.Environment
	host HostInfo

	enabled map[string]bool

	name    string
	image   string
	command []string

	args        []string
	volumes     []string
	environ     map[string]string
	hostDirs    []string
	pre         []Task
	post        []Task
	interactive bool

	containerUID  int
	containerHome string

	containerFile   string
	containerUpdate string
}

// NewBuilder seeds a builder with the environment's name, image and command.
// enabled holds the resolved state of every capability.
func NewBuilder(env environment.Environment, host HostInfo, enabled map[string]bool) *Builder {
	podName := env.Name.PodName()
	return &Builder{
		env:           env.Clone(),
		host:          host,
		enabled:       maps.Clone(enabled),
		name:          podName,
		image:         env.Image,
		command:       slices.Clone(env.Command),
		args:          []string{"--rm", "--name", podName, "--hostname", env.Name.String()},
		environ:       make(map[string]string),
		containerUID:  DefaultContainerUID,
		containerHome: DefaultContainerHome,
	}
}

// Env returns the environment being compiled.
func (b *Builder) Env() environment.Environment { return b.env }

// Host returns the host snapshot.
func (b *Builder) Host() HostInfo { return b.host }

// Enabled reports the resolved state of a capability.
func (b *Builder) Enabled(name string) bool { return b.enabled[name] }

// AddArgs appends runtime arguments.
func (b *Builder) AddArgs(args ...string) { b.args = append(b.args, args...) }

// AddVolume registers a bind mount. Volumes are emitted after capability
// arguments, in registration order.
func (b *Builder) AddVolume(hostPath, containerPath string, readOnly bool) {
	v := hostPath + ":" + containerPath
	if readOnly {
		v += ":ro"
	}
	b.volumes = append(b.volumes, v)
}

// SetEnv sets an environment variable inside the pod. User environ entries
// are applied last and win over values set here.
func (b *Builder) SetEnv(key, value string) { b.environ[key] = value }

// AddHostDir registers a host directory to create before the pod starts.
func (b *Builder) AddHostDir(dir string) {
	if !slices.Contains(b.hostDirs, dir) {
		b.hostDirs = append(b.hostDirs, dir)
	}
}

// AddPreTask registers a host task run before the pod.
func (b *Builder) AddPreTask(t Task) { b.pre = append(b.pre, t) }

// AddPostTask registers a host task run after the pod.
func (b *Builder) AddPostTask(t Task) { b.post = append(b.post, t) }

// SetInteractive marks the pod as needing a terminal.
func (b *Builder) SetInteractive() { b.interactive = true }

// Interactive reports whether a terminal was requested so far.
func (b *Builder) Interactive() bool { return b.interactive }

// SetUser sets the uid and home directory used inside the pod.
func (b *Builder) SetUser(uid int, home string) {
	b.containerUID = uid
	b.containerHome = home
}

// ContainerUID returns the uid used inside the pod.
func (b *Builder) ContainerUID() int { return b.containerUID }

// ContainerHome returns the home directory inside the pod.
func (b *Builder) ContainerHome() string { return b.containerHome }

// ContainerRuntimeDir returns the XDG runtime directory inside the pod.
func (b *Builder) ContainerRuntimeDir() string {
	return path.Join("/run/user", strconv.Itoa(b.containerUID))
}

// SetImage replaces the image name.
func (b *Builder) SetImage(image string) { b.image = image }

// Image returns the current image name.
func (b *Builder) Image() string { return b.image }

// AppendCommand appends positional arguments to the command.
func (b *Builder) AppendCommand(args ...string) { b.command = append(b.command, args...) }

// SetRecipes records the generated build recipes of a local image.
func (b *Builder) SetRecipes(containerFile, containerUpdate string) {
	b.containerFile = containerFile
	b.containerUpdate = containerUpdate
}

// Build freezes the builder into an ExecutionContext. The runtime arguments
// are the seed and capability arguments, then the volumes, then the
// environment variables sorted by key.
func (b *Builder) Build() *ExecutionContext {
	environ := maps.Clone(b.environ)
	if _, ok := environ["HOME"]; !ok {
		environ["HOME"] = b.containerHome
	}
	maps.Copy(environ, b.env.Environ)

	volumes := slices.Clone(b.volumes)
	hostDirs := slices.Clone(b.hostDirs)
	if b.env.Home != "" {
		volumes = append(volumes, b.env.Home+":"+b.containerHome)
		if !slices.Contains(hostDirs, b.env.Home) {
			hostDirs = append(hostDirs, b.env.Home)
		}
	}

	args := slices.Clone(b.args)
	for _, v := range volumes {
		args = append(args, "--volume", v)
	}
	for _, k := range slices.Sorted(maps.Keys(environ)) {
		args = append(args, "--env", k+"="+environ[k])
	}

	return &ExecutionContext{
		name:            b.name,
		imageName:       b.image,
		runtimeArgs:     args,
		commandArgs:     slices.Clone(b.command),
		containerFile:   b.containerFile,
		containerUpdate: b.containerUpdate,
		hostPreTasks:    slices.Clone(b.pre),
		hostPostTasks:   slices.Clone(b.post),
		hostDirs:        hostDirs,
		interactive:     b.interactive,
		localImage:      environment.IsLocalImage(b.image),
	}
}
