// SPDX-License-Identifier: MPL-2.0

// Package container drives the podman CLI on behalf of the lifecycle.
//
// Engine wraps the binary: argument builders are pure methods and the exec
// function is injectable so tests can record invocations. Podman builds on
// Engine to implement the lifecycle operations (image build/pull, pod setup,
// execution, kill and cleanup of transient build contexts).
//
// Build and pull operations are retried with exponential backoff when the
// engine reports a transient failure (registry timeouts, storage races).
package container
