// SPDX-License-Identifier: MPL-2.0

// Package notify delivers user-facing progress and failure messages.
//
// A Notifier is chosen once per process with Select and handed to the
// lifecycle orchestrator. Sinks are a desktop notification (notify-send),
// the slog default logger, or a styled line on stderr.
package notify
