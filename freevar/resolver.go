// Package freevar resolves the free member-access chains of a definition
// to live values.
package freevar

import (
	"fmt"
	"strings"

	"github.com/chazu/pywalk/pyast"
	"github.com/chazu/pywalk/pyobj"
)

// DefaultExclude lists chain roots that are never resolved.
var DefaultExclude = []string{"staticmethod", "property", "__inline_fora"}

// Resolution is one resolved chain: the prefix that was consumed and the
// value it names.
type Resolution struct {
	Subchain pyast.Chain
	Value    pyobj.Value
}

// Resolver maps free chains to values. Resolution never mutates its
// inputs.
type Resolver struct {
	// Opaque reports whether attribute walking must stop at a module. A nil
	// Opaque walks into every module.
	Opaque func(*pyobj.Module) bool
	// Substitute returns the recorded replacement for a resolved value.
	Substitute func(pyobj.Value) (pyobj.Value, bool)

	exclude map[string]bool
}

// NewResolver returns a resolver skipping chains rooted at any name in
// exclude.
func NewResolver(exclude []string) *Resolver {
	r := &Resolver{exclude: make(map[string]bool, len(exclude))}
	for _, name := range exclude {
		r.exclude[name] = true
	}
	return r
}

// Excludes reports whether chains rooted at name are skipped.
func (r *Resolver) Excludes(name string) bool { return r.exclude[name] }

// Resolve resolves chains against bindings, falling back to builtins for
// the root name. Results are unique by dotted subchain; the first chain
// producing a subchain wins.
func (r *Resolver) Resolve(chains []pyast.Chain, bindings *pyobj.Namespace) ([]Resolution, error) {
	var out []Resolution
	seen := make(map[string]bool)
	for _, c := range chains {
		if len(c.Names) == 0 || r.exclude[c.Root()] {
			continue
		}
		res, err := r.ResolveChain(c, bindings)
		if err != nil {
			return nil, err
		}
		key := res.Subchain.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res)
	}
	return out, nil
}

// ResolveChain resolves a single chain. Attribute access continues only
// through modules the resolver is allowed to look into; the chain stops at
// the first value that is not such a module.
func (r *Resolver) ResolveChain(c pyast.Chain, bindings *pyobj.Namespace) (Resolution, error) {
	root := c.Root()
	v, ok := bindings.Get(root)
	if !ok {
		v, ok = pyobj.Builtin(root)
	}
	if !ok {
		return Resolution{}, &UnresolvedFreeVariableError{Chain: c, Pos: c.Pos}
	}

	n := 1
	for n < len(c.Names) {
		m, isModule := v.(*pyobj.Module)
		if !isModule || (r.Opaque != nil && r.Opaque(m)) {
			break
		}
		next, ok := m.Attrs.Get(c.Names[n])
		if !ok {
			return Resolution{}, &UnresolvedFreeVariableError{Chain: c, Pos: c.Pos}
		}
		v = next
		n++
	}

	if r.Substitute != nil {
		if sub, ok := r.Substitute(v); ok {
			v = sub
		}
	}
	return Resolution{
		Subchain: pyast.Chain{Names: c.Names[:n:n], Pos: c.Pos},
		Value:    v,
	}, nil
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Frame is one stack-trace entry of an unresolved free variable: the file
// and position of the reference in one enclosing definition.
type Frame struct {
	Path string
	Line int
	Col  int
}

// UnresolvedFreeVariableError reports a chain code reads whose root, or a
// module attribute along it, is bound nowhere. Chain is the whole chain as
// written. Trace starts at the definition containing the reference and
// gains one frame for each enclosing definition the error passes through.
type UnresolvedFreeVariableError struct {
	Chain pyast.Chain
	Pos   pyast.Position
	Trace []Frame
}

func (e *UnresolvedFreeVariableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unable to resolve free variable %q at %s", e.Chain.String(), e.Pos)
	for _, f := range e.Trace {
		fmt.Fprintf(&b, "\n  in %s:%d", f.Path, f.Line)
	}
	return b.String()
}

// AddTrace appends a frame.
func (e *UnresolvedFreeVariableError) AddTrace(path string, pos pyast.Position) {
	e.Trace = append(e.Trace, Frame{Path: path, Line: pos.Line, Col: pos.Col})
}

// HasTrace reports whether the error already carries its innermost frame.
func (e *UnresolvedFreeVariableError) HasTrace() bool { return len(e.Trace) > 0 }
