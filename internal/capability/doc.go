// SPDX-License-Identifier: MPL-2.0

// Package capability defines the closed, ordered table of podenv capabilities.
//
// A capability is a named boolean toggle with a description and an apply
// function that mutates a plan.Builder. The table order is significant:
// later capabilities read state left by earlier ones (root decides the
// container user and home that mount-cache, ssh and gpg mount into).
// Dispatch always goes through the Table; there is no lookup by reflection.
package capability
