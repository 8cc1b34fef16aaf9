// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/pkg/types"
)

// LocalImagePrefix marks images built on the host from a recipe.
const LocalImagePrefix = "localhost/"

// Environment is one named, resolved environment declaration.
type Environment struct {
	Name        types.EnvName
	Description string
	// Image is the runtime image reference.
	Image   string
	Command []string
	// Capabilities maps capability names to their state. Absent keys use the
	// table default; an explicit false is distinct from absent.
	Capabilities map[string]bool
	Environ      map[string]string
	// Network is "host" or the name of an environment to share network with.
	Network string
	// Home is an absolute host path mounted as the container home.
	Home string

	// BaseImage and Packages feed the generated Containerfile of local images.
	BaseImage string
	Packages  []string
	// ContainerFile is an explicit build recipe; it wins over generation.
	ContainerFile string

	// Original is the raw declaration, kept for introspection.
	Original any
}

// Clone returns a deep copy of the Environment. Original is shared since it is
// never modified.
func (e Environment) Clone() Environment {
	out := e
	out.Command = slices.Clone(e.Command)
	out.Packages = slices.Clone(e.Packages)
	out.Capabilities = maps.Clone(e.Capabilities)
	out.Environ = maps.Clone(e.Environ)
	return out
}

// Capability returns the state of the named capability and whether it was set
// explicitly.
func (e Environment) Capability(name string) (enabled, explicit bool) {
	enabled, explicit = e.Capabilities[name]
	return enabled, explicit
}

// WithCapability returns a copy with the capability forced to enabled.
func (e Environment) WithCapability(name string, enabled bool) Environment {
	out := e.Clone()
	if out.Capabilities == nil {
		out.Capabilities = make(map[string]bool)
	}
	out.Capabilities[name] = enabled
	return out
}

// WithEnviron returns a copy with key set to value, creating the map if absent.
func (e Environment) WithEnviron(key, value string) Environment {
	out := e.Clone()
	if out.Environ == nil {
		out.Environ = make(map[string]string)
	}
	out.Environ[key] = value
	return out
}

// WithCommand returns a copy with the command replaced.
func (e Environment) WithCommand(command ...string) Environment {
	out := e.Clone()
	out.Command = slices.Clone(command)
	return out
}

// WithImage returns a copy with the image replaced verbatim.
func (e Environment) WithImage(image string) Environment {
	out := e.Clone()
	out.Image = image
	return out
}

// WithNetwork returns a copy with the network mode replaced.
func (e Environment) WithNetwork(network string) Environment {
	out := e.Clone()
	out.Network = network
	return out
}

// WithHome returns a copy with the home path replaced.
func (e Environment) WithHome(home string) Environment {
	out := e.Clone()
	out.Home = home
	return out
}

// IsLocalImage reports whether Image denotes a locally built image.
func (e Environment) IsLocalImage() bool {
	return IsLocalImage(e.Image)
}

// HasRecipe reports whether a build recipe can be produced for the environment.
func (e Environment) HasRecipe() bool {
	return e.ContainerFile != "" || e.BaseImage != ""
}

// Validate checks the invariants of a resolved environment: a valid name, an
// image (or a recipe to build one) and a parseable image reference.
func (e Environment) Validate() error {
	if err := e.Name.Validate(); err != nil {
		return &issue.ConfigError{Msg: "invalid environment", Cause: err}
	}
	if e.Network != "" && e.Network == e.Name.String() {
		return issue.NewConfigError("%s: an environment cannot share its own network", e.Name)
	}
	if e.Image == "" {
		if !e.HasRecipe() {
			return issue.NewConfigError("%s: image is required when no containerfile or base_image is declared", e.Name)
		}
		return nil
	}
	if _, err := name.ParseReference(e.Image, name.WeakValidation); err != nil {
		return &issue.ConfigError{Msg: fmt.Sprintf("%s: invalid image reference %q", e.Name, e.Image), Cause: err}
	}
	return nil
}

// String renders the environment for verbose output. Keys are sorted so the
// output is stable.
func (e Environment) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Environment(name=%s", e.Name)
	if e.Description != "" {
		fmt.Fprintf(&sb, ", description=%q", e.Description)
	}
	fmt.Fprintf(&sb, ", image=%s, command=%q", e.Image, e.Command)
	if len(e.Capabilities) > 0 {
		sb.WriteString(", capabilities={")
		for i, k := range slices.Sorted(maps.Keys(e.Capabilities)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %t", k, e.Capabilities[k])
		}
		sb.WriteString("}")
	}
	if len(e.Environ) > 0 {
		sb.WriteString(", environ={")
		for i, k := range slices.Sorted(maps.Keys(e.Environ)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%q", k, e.Environ[k])
		}
		sb.WriteString("}")
	}
	if e.Network != "" {
		fmt.Fprintf(&sb, ", network=%s", e.Network)
	}
	if e.Home != "" {
		fmt.Fprintf(&sb, ", home=%s", e.Home)
	}
	if len(e.Packages) > 0 {
		fmt.Fprintf(&sb, ", packages=%q", e.Packages)
	}
	sb.WriteString(")")
	return sb.String()
}

// IsLocalImage reports whether an image reference uses the local prefix.
func IsLocalImage(image string) bool {
	return strings.HasPrefix(image, LocalImagePrefix)
}

// LocalImageFor returns the image name used for an environment that only
// declares a recipe.
func LocalImageFor(envName types.EnvName) string {
	return LocalImagePrefix + envName.PodName()
}
