// SPDX-License-Identifier: MPL-2.0

package plan

import "slices"

// ExecutionContext is the immutable, fully compiled plan for one environment.
type ExecutionContext struct {
	name            string
	imageName       string
	runtimeArgs     []string
	commandArgs     []string
	containerFile   string
	containerUpdate string
	hostPreTasks    []Task
	hostPostTasks   []Task
	hostDirs        []string
	interactive     bool
	localImage      bool
}

// Name returns the pod name, stable across invocations of the same environment.
func (c *ExecutionContext) Name() string { return c.name }

// ImageName returns the resolved image reference.
func (c *ExecutionContext) ImageName() string { return c.imageName }

// Args returns the runtime arguments in table order.
func (c *ExecutionContext) Args() []string { return slices.Clone(c.runtimeArgs) }

// CommandArgs returns the command run inside the pod.
func (c *ExecutionContext) CommandArgs() []string { return slices.Clone(c.commandArgs) }

// ContainerFile returns the build recipe of a local image, or "".
func (c *ExecutionContext) ContainerFile() string { return c.containerFile }

// ContainerUpdate returns the recipe used by --update on a local image, or "".
func (c *ExecutionContext) ContainerUpdate() string { return c.containerUpdate }

// HostPreTasks returns the tasks to run before the pod starts.
func (c *ExecutionContext) HostPreTasks() []Task { return slices.Clone(c.hostPreTasks) }

// HostPostTasks returns the tasks to run after the pod exits.
func (c *ExecutionContext) HostPostTasks() []Task { return slices.Clone(c.hostPostTasks) }

// HostDirs returns the host directories that must exist before the pod starts.
func (c *ExecutionContext) HostDirs() []string { return slices.Clone(c.hostDirs) }

// Interactive reports whether the pod needs a terminal attached.
func (c *ExecutionContext) Interactive() bool { return c.interactive }

// LocalImage reports whether the image is built on the host.
func (c *ExecutionContext) LocalImage() bool { return c.localImage }

// CommandLine returns the full "run" invocation: run, the runtime arguments,
// the image and the command, in that order.
func (c *ExecutionContext) CommandLine() []string {
	out := make([]string, 0, 2+len(c.runtimeArgs)+len(c.commandArgs))
	out = append(out, "run")
	out = append(out, c.runtimeArgs...)
	out = append(out, c.imageName)
	out = append(out, c.commandArgs...)
	return out
}
