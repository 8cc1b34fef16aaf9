// SPDX-License-Identifier: MPL-2.0

// Package plan defines the ExecutionContext produced by the compiler and the
// Builder that capabilities mutate while it is being produced.
//
// An ExecutionContext is frozen: its fields are unexported and every accessor
// returns a copy, so nothing downstream of compilation can change the runtime
// arguments or the command once the lifecycle has started.
package plan
