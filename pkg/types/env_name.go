// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// PodNamePrefix is prepended to every environment name to form the
// container name managed by the runtime.
const PodNamePrefix = "podenv-"

// ErrInvalidEnvName is the sentinel error wrapped by InvalidEnvNameError.
var ErrInvalidEnvName = errors.New("invalid environment name")

type (
	// EnvName is the name of an environment declaration.
	// A valid name is non-empty and contains no whitespace or '/'.
	EnvName string

	// InvalidEnvNameError is returned when an EnvName is empty or contains
	// characters that cannot be part of a declaration key.
	InvalidEnvNameError struct {
		Value  EnvName
		Reason string
	}
)

// String returns the string representation of the EnvName.
func (n EnvName) String() string { return string(n) }

// Validate returns an error if the EnvName is empty, contains whitespace or a slash.
func (n EnvName) Validate() error {
	switch {
	case n == "":
		return &InvalidEnvNameError{Value: n, Reason: "must be non-empty"}
	case strings.ContainsAny(string(n), " \t\n/"):
		return &InvalidEnvNameError{Value: n, Reason: "must not contain whitespace or '/'"}
	}
	return nil
}

// PodName returns the stable container name for the environment. Characters
// outside [a-zA-Z0-9_.-] are replaced by '-' so the name is accepted by the
// container engine; the mapping does not depend on anything but the name.
func (n EnvName) PodName() string {
	var sb strings.Builder
	sb.WriteString(PodNamePrefix)
	for _, r := range string(n) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Error implements the error interface for InvalidEnvNameError.
func (e *InvalidEnvNameError) Error() string {
	return fmt.Sprintf("invalid environment name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidEnvName for errors.Is() compatibility.
func (e *InvalidEnvNameError) Unwrap() error { return ErrInvalidEnvName }
