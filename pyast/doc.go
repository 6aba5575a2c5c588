// Package pyast parses Python source with tree-sitter and answers the
// static questions the walker asks about a definition:
//
//   - which def, lambda, class or with statement starts at a given line
//   - which dotted member-access chains the definition reads from outside
//     its own scopes, and where each one first appears
//   - which names the definition's own scope binds
//   - where return and yield occur in the definition's outer scope
//   - which attributes a class's __init__ assigns on self
//
// Lines are 1-based and columns are 0-based byte offsets, matching the
// positions carried in unresolved free variable errors.
package pyast
