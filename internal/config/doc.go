// SPDX-License-Identifier: MPL-2.0

// Package config loads podenv environments and settings.
//
// Environments are declared in CUE. The user file (~/.config/podenv/config.cue
// or XDG equivalent), an optional ./.podenv.cue and an optional command-line
// expression are unified and validated against an embedded schema
// (config_schema.cue), then converted into environment values.
//
// Settings (config path, cache directory, engine binary, notification sink)
// come from Viper with the PODENV_ environment prefix, merged with an optional
// settings.toml next to the config file.
package config
