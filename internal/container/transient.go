// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are substrings of podman output that denote failures
// worth retrying: registry and DNS hiccups during pulls and builds, and
// rootless storage races.
var transientMarkers = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"connection reset by peer",
	"TLS handshake timeout",
	"i/o timeout",
	"unexpected EOF",
	"502 Bad Gateway",
	"503 Service Unavailable",
	"toomanyrequests",
	"OCI runtime error",
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientError reports whether err is a podman failure that may succeed
// on retry. Context cancellation and deadline errors are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Exit code 125 is podman's own failure, as opposed to a failing RUN step.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
