package interp

import (
	"errors"
	"fmt"
)

// Interpreter errors.
var (
	// ErrRuntime marks every fault raised while executing a script.
	ErrRuntime = errors.New("script runtime error")

	// ErrUnknownFunction is raised for unknown @functions in strict mode.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrStackUnderflow is raised when an operator or function needs more
	// operands than the echo stack holds.
	ErrStackUnderflow = errors.New("operand stack underflow")
)

// RuntimeError describes a fault in one script step. It matches both
// ErrRuntime and the underlying cause with errors.Is.
type RuntimeError struct {
	// Op names the failing step, e.g. "FOR i", "echo /" or "@decfmt".
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRuntime, e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() []error {
	return []error{ErrRuntime, e.Err}
}

func fault(op string, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &RuntimeError{Op: op, Err: err}
}
