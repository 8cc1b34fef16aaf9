// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/podenv/podenv/cmd/podenv"

func main() {
	cmd.Execute()
}
