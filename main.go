// SPDX-License-Identifier: MPL-2.0

// Command bmad discovers BMAD installations and resolves their agents,
// workflows and tasks.
package main

import cmd "github.com/mkellerman/bmad-mcp-server-sub003/cmd/bmad"

func main() {
	cmd.Execute()
}
