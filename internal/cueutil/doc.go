// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Parsing follows three steps:
//
//  1. Compile the embedded schema
//  2. Compile every source and unify them with the schema
//  3. Validate and decode to a Go value
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[fileConfig](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Config",
//	    cueutil.WithFilename("config.cue"),
//	    cueutil.WithSource(".podenv.cue", localBytes),
//	)
//	if err != nil {
//	    return nil, err  // Error includes CUE path for debugging
//	}
package cueutil
