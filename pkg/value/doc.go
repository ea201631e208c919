// Package value provides the coercing value cell used by the script
// interpreter and the named variable stacks that give for-loop variables
// their scoping.
//
// # Coercion
//
// Arithmetic and comparison coerce both operands to numbers first:
//   - an absent cell is integer 0
//   - a string must parse as an integer or a decimal, otherwise ErrNotNumeric
//
// The result is integer-typed only when both operands are integer-typed.
// Division by a value whose magnitude is below Epsilon fails with
// ErrDivisionByZero.
//
// # Stacks
//
// Stacks keeps a private LIFO stack per name. Pushing never overwrites and
// popping or peeking a missing name fails with ErrEmptyStack.
package value
