// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the unified CUE value, available for callers that need to
	// decode parts of the document differently.
	Unified cue.Value
}

// ParseAndDecode compiles schema, unifies the root definition at schemaPath
// with data and every WithSource document, validates the result and decodes
// it into T. Errors carry the file name and the CUE path of the culprit.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}
	sources := append([]Source{{Name: filename, Data: data}}, options.sources...)

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	unified := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if unified.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, unified.Err())
	}

	for _, src := range sources {
		if err := checkSize(src.Name, src.Data, options.maxFileSize); err != nil {
			return nil, err
		}
		v := ctx.CompileBytes(src.Data, cue.Filename(src.Name))
		if v.Err() != nil {
			return nil, formatError(v.Err(), src.Name)
		}
		unified = unified.Unify(v)
	}

	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, formatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, formatError(err, filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}
