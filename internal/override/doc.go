// SPDX-License-Identifier: MPL-2.0

// Package override merges command-line overrides into an environment.
//
// Overrides run as an ordered list of steps, each returning a new
// environment value: capability flags, environ entries, shell mode, image,
// network and finally home. Later steps never override an explicit
// per-capability flag.
package override
