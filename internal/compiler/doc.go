// SPDX-License-Identifier: MPL-2.0

// Package compiler folds the capability table over an environment and
// produces the frozen execution context handed to the lifecycle.
package compiler
