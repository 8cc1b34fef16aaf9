// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/podenv/podenv/internal/capability"
	"github.com/podenv/podenv/internal/override"
)

// options holds the flag values of one root command.
type options struct {
	verbose bool
	debug   bool
	config  string
	expr    string
	show    bool
	list    bool

	shell   bool
	net     string
	home    string
	image   string
	environ []string
	rebuild bool
	update  bool

	// enable and disable hold the --<cap> and --no-<cap> flags by name.
	enable  map[string]*bool
	disable map[string]*bool
}

func newOptions() *options {
	return &options{
		enable:  make(map[string]*bool),
		disable: make(map[string]*bool),
	}
}

func (o *options) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")
	f.BoolVar(&o.debug, "debug", false, "enable debug output and return raw errors (implies --verbose)")
	f.StringVarP(&o.config, "config", "c", "", "config file (default is $HOME/.config/podenv/config.cue)")
	f.StringVarP(&o.expr, "expr", "E", "", "CUE expression unified with the configuration")
	f.BoolVar(&o.show, "show", false, "print the podman command line and exit")
	f.BoolVar(&o.list, "list", false, "list the environments and exit")
	f.BoolVar(&o.shell, "shell", false, "run "+override.ShellCommand[0]+" with a terminal instead of the command")
	f.StringVar(&o.net, "net", "", "network mode: host or the name of another environment")
	f.StringVar(&o.home, "home", "", "host directory mounted as the container home")
	f.StringVarP(&o.image, "image", "i", "", "override the image")
	f.StringArrayVarP(&o.environ, "environ", "e", nil, "set a container variable (KEY=VALUE, repeatable)")
	f.BoolVar(&o.rebuild, "rebuild", false, "rebuild the image and recreate the pod")
	f.BoolVar(&o.update, "update", false, "update the image before running")

	for _, c := range capability.Default.All() {
		o.enable[c.Name] = f.Bool(c.Name, false, "enable "+c.Description)
		o.disable[c.Name] = f.Bool("no-"+c.Name, false, "disable "+c.Description)
	}
}

// overrides collects the command line overrides, capabilities in table order.
func (o *options) overrides() override.Flags {
	flags := override.Flags{
		Environ: o.environ,
		Shell:   o.shell,
		Image:   o.image,
		Network: o.net,
		Home:    o.home,
	}
	for _, name := range capability.Default.Names() {
		if *o.enable[name] {
			flags.Enable = append(flags.Enable, name)
		}
		if *o.disable[name] {
			flags.Disable = append(flags.Disable, name)
		}
	}
	return flags
}
