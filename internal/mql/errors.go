package mql

import (
	"fmt"

	"github.com/maruel/macrokit/internal/macro"
)

// SyntaxError reports MQL that cannot be parsed or refers to something that
// does not exist. It matches macro.ErrQuerySyntax.
type SyntaxError struct {
	// Pos is the rune offset of the offending token.
	Pos int
	Msg string
}

func newSyntaxError(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mql: %s at position %d", e.Msg, e.Pos)
}

// Is makes errors.Is(err, macro.ErrQuerySyntax) true.
func (e *SyntaxError) Is(target error) bool {
	return target == macro.ErrQuerySyntax
}
