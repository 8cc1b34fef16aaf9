// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// SourceError is a CUE failure attributed to one of the unified sources.
type SourceError struct {
	// Source is the file name, or the pseudo name of an expression.
	Source string
	// Path is the field path, such as environments.dev.command[0].
	Path string
	Msg  string
}

func (e *SourceError) Error() string {
	if e.Path == "" {
		return e.Source + ": " + e.Msg
	}
	return e.Source + ": " + e.Path + ": " + e.Msg
}

// formatError splits a CUE error into SourceErrors. Each one names the
// source its first position points at, or fallback when CUE has none.
func formatError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", fallback, err)
	}

	errs := make([]error, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		errs = append(errs, &SourceError{
			Source: sourceOf(e, fallback),
			Path:   fieldPath(e.Path()),
			Msg:    fmt.Sprintf(format, args...),
		})
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func sourceOf(e cueerrors.Error, fallback string) string {
	for _, pos := range cueerrors.Positions(e) {
		if name := pos.Filename(); name != "" {
			return name
		}
	}
	return fallback
}

// fieldPath joins CUE path elements, writing list indices as [i].
func fieldPath(elems []string) string {
	var b strings.Builder
	for i, elem := range elems {
		if _, err := strconv.Atoi(elem); err == nil && i > 0 {
			b.WriteString("[" + elem + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(elem)
	}
	return b.String()
}

func checkSize(name string, data []byte, limit int64) error {
	if size := int64(len(data)); size > limit {
		return fmt.Errorf("%s: %d bytes exceeds maximum of %d bytes", name, size, limit)
	}
	return nil
}
