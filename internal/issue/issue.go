// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ConfigNotFoundId Id = iota + 1
	ConfigParseErrorId
	EnvNotFoundId
	ContainerEngineNotFoundId
	ImageSetupFailedId
	HomeNotFoundId
	CapabilityConflictId
)

type MarkdownMsg string

type HttpLink string

// Issue is a catalog entry with Markdown guidance for a class of failures.
type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the Markdown message with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			md.WriteString("- [" + string(link) + "](" + string(link) + ")\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# No podenv configuration found!

podenv reads its environments from a CUE file.

## Search locations (in order of precedence):
1. $PODENV_CONFIG
2. The --config flag (default ~/.config/podenv/config.cue)
3. ./.podenv.cue (merged, unless an environment is selected)

## Example configuration:
~~~cue
environments: {
  shell: {
    description: "A fedora toolbox"
    image:       "registry.fedoraproject.org/fedora:latest"
    command: ["/bin/bash"]
    capabilities: terminal: true
  }
}
~~~`,
		docLinks: []HttpLink{"https://github.com/podenv/podenv"},
	}

	configParseErrorIssue = &Issue{
		id: ConfigParseErrorId,
		mdMsg: `
# Failed to evaluate the podenv configuration!

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names in an environment
- Capabilities that are not booleans

## Things you can try:
- Evaluate the file directly:
~~~
$ cue eval ~/.config/podenv/config.cue
~~~`,
	}

	envNotFoundIssue = &Issue{
		id: EnvNotFoundId,
		mdMsg: `
# Environment not found!

## Things you can try:
- List the available environments:
~~~
$ podenv --list
~~~
- Check the key used under ` + "`environments`" + ` in your configuration`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# podman is not available!

podenv drives podman to build images and run environments.

## Things you can try:
- Install podman with your distribution package manager
- Point the ` + "`engine`" + ` setting (or $PODENV_ENGINE) to the podman binary`,
		docLinks: []HttpLink{"https://podman.io/docs/installation"},
	}

	imageSetupFailedIssue = &Issue{
		id: ImageSetupFailedId,
		mdMsg: `
# Failed to prepare the image!

## Things you can try:
- Check your network connection when pulling remote images
- Inspect the generated Containerfile:
~~~
$ podenv --show <env>
~~~
- Force a clean build:
~~~
$ podenv --rebuild <env>
~~~`,
	}

	homeNotFoundIssue = &Issue{
		id: HomeNotFoundId,
		mdMsg: `
# Home directory not found!

The path given to ` + "`--home`" + ` must exist on the host.

## Things you can try:
- Create it first:
~~~
$ mkdir -p ~/.local/share/podenv/home
~~~`,
	}

	capabilityConflictIssue = &Issue{
		id: CapabilityConflictId,
		mdMsg: `
# Conflicting capabilities!

A capability was both enabled and disabled, or two settings ask for
incompatible modes (for example ` + "`--no-network`" + ` with ` + "`--net host`" + `).

## Things you can try:
- Keep only one of ` + "`--<name>`" + ` / ` + "`--no-<name>`" + `
- Check the capabilities declared in your configuration`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():          configNotFoundIssue,
		configParseErrorIssue.Id():        configParseErrorIssue,
		envNotFoundIssue.Id():             envNotFoundIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		imageSetupFailedIssue.Id():        imageSetupFailedIssue,
		homeNotFoundIssue.Id():            homeNotFoundIssue,
		capabilityConflictIssue.Id():      capabilityConflictIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup returns the catalog entry attached to err, if any error in the
// chain carries one.
func Lookup(err error) *Issue {
	var carrier interface{ IssueID() Id }
	if errors.As(err, &carrier) && carrier.IssueID() != 0 {
		return Get(carrier.IssueID())
	}
	return nil
}
