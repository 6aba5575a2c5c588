// Package pyobj models a live Python object heap in Go.
//
// This package contains:
//   - Primitive values (None, bool, int, float, str)
//   - Containers (tuple, list, dict) and ordered namespaces
//   - Code-carrying objects (functions, classes, modules, bound methods)
//   - Runtime markers the walker understands (futures, remote handles,
//     packed arrays, tracebacks, with-blocks, unconvertible markers)
//   - The builtin namespace and the fixed named-singleton table
//
// Every Value is a pointer, so Go pointer identity is Python object identity.
package pyobj
