// Package interp executes parsed scripts.
//
// The interpreter walks a *script.Document and writes text to a
// *response.Context. FOR loops keep their variable on a per-name stack, so
// an inner loop may reuse an outer loop's name and the outer value returns
// when the inner loop ends.
//
// Echo tags are postfix programs. Elements are processed left to right on
// an operand stack: variables and constants push, operators pop two cells
// (right operand first) and push the result, and @functions pop and push
// according to their arity. Whatever is left on the stack afterwards is
// written out from bottom to top.
//
// Faults abort the run with an error matching ErrRuntime. Text written
// before the fault stays written.
package interp
