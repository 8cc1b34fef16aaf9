// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntime matches every recoverable podenv failure.
	ErrRuntime = errors.New("podenv error")

	// ErrConfig is the sentinel for ConfigError.
	ErrConfig = errors.New("configuration error")

	// ErrPathResolution is the sentinel for PathResolutionError.
	ErrPathResolution = errors.New("path resolution error")

	// ErrInvalidAction is the sentinel for InvalidActionError.
	ErrInvalidAction = errors.New("invalid action")

	// ErrHostTask is the sentinel for HostTaskError.
	ErrHostTask = errors.New("host task failed")

	// ErrEngine is the sentinel for EngineError.
	ErrEngine = errors.New("container engine error")
)

type (
	// ConfigError reports an invalid configuration or override combination.
	ConfigError struct {
		Msg   string
		Cause error
	}

	// PathResolutionError is returned when a user supplied path does not
	// resolve to an existing location.
	PathResolutionError struct {
		Path  string
		Cause error
	}

	// InvalidActionError is returned for flag combinations the lifecycle
	// refuses to run, before any side effect happens.
	InvalidActionError struct {
		Action string
	}

	// HostTaskError wraps the failure of a host-side task.
	HostTaskError struct {
		Task  string
		Cause error
	}

	// EngineError wraps a container engine failure with the operation that failed.
	EngineError struct {
		Op    string
		Msg   string
		Cause error
	}
)

// NewConfigError formats a ConfigError.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrConfig or ErrRuntime.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig || target == ErrRuntime
}

func (e *PathResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: cannot resolve path: %v", e.Path, e.Cause)
	}
	return e.Path + ": cannot resolve path"
}

func (e *PathResolutionError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrPathResolution or ErrRuntime.
func (e *PathResolutionError) Is(target error) bool {
	return target == ErrPathResolution || target == ErrRuntime
}

func (e *InvalidActionError) Error() string {
	return "Invalid action " + e.Action
}

// Is reports whether target is ErrInvalidAction or ErrRuntime.
func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction || target == ErrRuntime
}

func (e *HostTaskError) Error() string {
	return fmt.Sprintf("host task %q failed: %v", e.Task, e.Cause)
}

func (e *HostTaskError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrHostTask or ErrRuntime.
func (e *HostTaskError) Is(target error) bool {
	return target == ErrHostTask || target == ErrRuntime
}

func (e *EngineError) Error() string {
	msg := e.Op + " failed"
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrEngine or ErrRuntime.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine || target == ErrRuntime
}

// IsRuntimeError reports whether err belongs to the recoverable podenv error
// family. ActionableErrors count when they wrap one.
func IsRuntimeError(err error) bool {
	return errors.Is(err, ErrRuntime)
}
