// SPDX-License-Identifier: MPL-2.0

// Package issue provides the podenv error kinds and user-facing error rendering.
//
// Every failure that reaches the process boundary is a RuntimeError in the broad
// sense: errors.Is(err, ErrRuntime) holds for configuration errors, path
// resolution errors, invalid action requests, host task failures and container
// engine failures alike. The narrower sentinels (ErrConfig, ErrPathResolution,
// ...) let callers and tests tell them apart.
//
// ActionableError adds operation/resource/suggestion context, and the issue
// catalog holds Markdown guidance rendered with glamour for the most common
// failures.
package issue
