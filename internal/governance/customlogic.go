package governance

import (
	"regexp"
	"strings"
)

// Patterns that mark a conditional-edge expression as executable logic
// rather than a plain comparison.
var (
	// callSyntax matches an identifier immediately applied to an
	// argument list.
	callSyntax = regexp.MustCompile(`\w+\s*\(`)

	// importStmt matches inline import statements.
	importStmt = regexp.MustCompile(`(^|\W)import\s`)

	// dunderToken matches dunder-like tokens used to reach interpreter
	// internals.
	dunderToken = regexp.MustCompile(`__\w+`)
)

// expressionHasLogic reports whether an edge condition embeds call
// syntax, an import statement, or a dunder-like token.
func expressionHasLogic(expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	return callSyntax.MatchString(expr) ||
		importStmt.MatchString(expr) ||
		dunderToken.MatchString(expr)
}
