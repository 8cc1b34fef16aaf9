// SPDX-License-Identifier: MPL-2.0

// Package lifecycle drives a compiled execution context through the pod
// lifecycle:
//
//	UPDATE_IMAGE? -> SETUP_IMAGE -> SETUP_POD -> PRE_TASKS -> EXECUTE -> POST_TASKS -> CLEANUP
//
// The Orchestrator owns failure reporting, interrupt handling during
// EXECUTE, and the derivation of the process exit code.
package lifecycle
