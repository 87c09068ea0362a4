// trustgate — trust checks for AI agent manifests. Validates manifests
// before deployment: sandboxed $ref resolution, governance policy,
// source-tree integrity, and tamper-evident audit chains.
package main

import "github.com/rvachev/trustgate/internal/cli"

func main() {
	cli.Execute()
}
