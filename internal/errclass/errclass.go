// Package errclass defines the stable, machine-readable error classes of
// the trust pipeline. Every failure surfaced to a caller is one of these
// five kinds; stages never convert one kind into another.
package errclass

import "fmt"

// Error is a stable error class with an optional specific message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by Code, so errors.Is(err, ErrSecurity) works regardless of
// the specific message attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code and a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// The five error classes of the trust pipeline.
var (
	// ErrSchema: structural or type failure in the raw manifest. Fatal.
	ErrSchema = &Error{Code: "E_SCHEMA"}

	// ErrPolicy: one or more named governance rule breaches. Recoverable;
	// the caller decides whether to block.
	ErrPolicy = &Error{Code: "E_POLICY"}

	// ErrIntegrity: digest mismatch or missing expected digest. Fatal;
	// the source tree is untrusted.
	ErrIntegrity = &Error{Code: "E_INTEGRITY"}

	// ErrSecurity: jail escape, symlink, or circular reference. Always
	// fatal, never retried, never downgraded.
	ErrSecurity = &Error{Code: "E_SECURITY"}

	// ErrEvaluator: the external policy evaluator is missing or produced
	// unparsable output. Fatal, and distinct from ErrPolicy: it signals
	// evaluator malfunction, not manifest non-compliance.
	ErrEvaluator = &Error{Code: "E_EVALUATOR"}
)
