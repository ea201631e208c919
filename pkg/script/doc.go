// Package script implements the lexer, parser and document tree of the
// server's template language.
//
// # Syntax
//
// Text outside tags is copied verbatim. In text, `\\` and `\{` are the only
// escapes. Tags are delimited by `{$` and `$}`:
//
//	{$ FOR i 1 10 2 $} ... {$ END $}   repeat the body, step defaults to 1
//	{$= i 2 * "x" @dup $}             evaluate a postfix program and print it
//
// Inside tags the lexer recognises identifiers, integers and decimals
// (a leading '-' directly followed by a digit is part of the number),
// "quoted strings" with \n \r \t \" \\ escapes, @function names and
// single-character symbols. Keywords FOR and END are case-insensitive.
//
// # Errors
//
// Malformed input yields a *SyntaxError that wraps ErrLex or ErrParse and
// carries the 1-based line and column of the offending token.
package script
