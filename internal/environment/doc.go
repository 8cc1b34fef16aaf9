// SPDX-License-Identifier: MPL-2.0

// Package environment holds the Environment model: the resolved description of
// one named podenv environment (image, command, capabilities, environ, network,
// home and build recipe inputs).
//
// Environment is a value type. The With* methods return modified copies and
// never touch the receiver, so override steps can be applied one after the
// other and each intermediate value stays inspectable.
package environment
