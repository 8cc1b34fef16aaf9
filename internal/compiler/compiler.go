// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"strings"

	"github.com/podenv/podenv/internal/capability"
	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/plan"
)

// Options parametrize a compilation. A nil Table means capability.Default.
type Options struct {
	Table *capability.Table
	Host  plan.HostInfo
}

// Compile turns a resolved environment into an ExecutionContext. The result
// depends only on env, extraArgs and opts: the same input always yields the
// same runtime and command arguments.
func Compile(env environment.Environment, extraArgs []string, opts Options) (*plan.ExecutionContext, error) {
	table := opts.Table
	if table == nil {
		table = capability.Default
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if unknown := table.Unknown(env); len(unknown) > 0 {
		return nil, issue.NewConfigError("%s: unknown capabilities: %s", env.Name, strings.Join(unknown, ", "))
	}

	b := plan.NewBuilder(env, opts.Host, table.Resolve(env))
	image := env.Image
	if image == "" {
		image = environment.LocalImageFor(env.Name)
	}
	b.SetImage(image)
	if environment.IsLocalImage(image) {
		b.SetRecipes(ContainerFile(env), UpdateFile(env, image))
	}

	for _, c := range table.All() {
		if err := c.Apply(b, b.Enabled(c.Name)); err != nil {
			return nil, err
		}
	}
	b.AppendCommand(extraArgs...)
	return b.Build(), nil
}
