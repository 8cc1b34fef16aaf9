// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

const logPrefix = "[+]"

// newLogger returns the slog handler used by every package: a
// charmbracelet/log logger writing to w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          logPrefix,
		Level:           level,
		ReportTimestamp: false,
	})
	styles := log.DefaultStyles()
	styles.Prefix = SuccessStyle
	logger.SetStyles(styles)
	return slog.New(logger)
}
