package walker

import (
	"errors"
	"fmt"
)

// ErrMappedSingleton is returned by New when the catalog would replace a
// named singleton. Named singletons always register by name.
var ErrMappedSingleton = errors.New("catalog maps a named singleton")

// ReservedWordError reports a function or class that uses the reserved
// inline marker as its name.
type ReservedWordError struct {
	Name string
}

func (e *ReservedWordError) Error() string {
	return fmt.Sprintf("%q is a reserved word", e.Name)
}

// BadWithBlockError reports a with block containing a statement that
// cannot run as a detached unit.
type BadWithBlockError struct {
	Line      int
	Statement string
}

func (e *BadWithBlockError) Error() string {
	return fmt.Sprintf("%s not supported in a with block (line %d)", e.Statement, e.Line)
}

// InternalError is a broken walker invariant. It is a bug, not bad input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

func internalf(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
