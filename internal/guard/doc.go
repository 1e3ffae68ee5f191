// Package guard evaluates, validates and renders guard expressions.
//
// Guards are ir.Guard trees: Condition leaves compare a context variable
// against a literal or another variable, and Group nodes combine children
// with and/or. Every function in this package is pure. Evaluate is total: it
// never panics and never returns an error, so a malformed or partially
// defined guard simply does not match.
//
// Comparison rules:
//   - Literal strings that parse as finite numbers are compared as numbers
//   - Numbers of any Go numeric type compare numerically
//   - Strings order lexicographically; ordering across other type pairs is
//     false
//   - A missing variable is undefined: ordering against it is false, and it
//     equals only another undefined operand
//   - Negation applies last, after the comparison or group combination
package guard
