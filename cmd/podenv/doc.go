// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the podenv command line.
//
// The root command takes an optional environment name followed by the
// command to run in the pod. Flags after the environment name are passed to
// the pod untouched.
package cmd
