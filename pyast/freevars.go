package pyast

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Position is a source location: 1-based line, 0-based column.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Chain is a dotted member-access chain such as a.b.c, with the position
// where it first appears.
type Chain struct {
	Names []string
	Pos   Position
}

// String returns the dotted form of the chain.
func (c Chain) String() string { return strings.Join(c.Names, ".") }

// Root returns the first name of the chain.
func (c Chain) Root() string { return c.Names[0] }

// Options tune free-variable extraction.
type Options struct {
	// ExcludeCall names a function whose call expressions are skipped
	// entirely, arguments included.
	ExcludeCall string
}

// FreeChains returns the member-access chains d reads from outside its
// own scopes, deduplicated by dotted form and ordered by first position.
//
// For a def or lambda this includes parameter defaults and annotations.
// For a class it includes base class expressions. Decorators of d itself
// are not included. A with block is analyzed as a zero-argument function
// whose body is the block's body.
func FreeChains(d *Def, opts Options) []Chain {
	enclosing, _ := analyze(d, opts)
	return dedupe(enclosing.free(nil))
}

// BoundNames returns the names d's own scope binds, as single-name chains
// positioned at their first binding, in binding order.
func BoundNames(d *Def, opts Options) []Chain {
	_, own := analyze(d, opts)
	out := make([]Chain, 0, len(own.order))
	for _, name := range own.order {
		if !own.binds(name) {
			continue
		}
		out = append(out, Chain{Names: []string{name}, Pos: own.bound[name]})
	}
	return out
}

// analyze builds the scope tree for d under an empty enclosing scope and
// returns both.
func analyze(d *Def, opts Options) (enclosing, own *scope) {
	b := &binder{mod: d.mod, exclude: opts.ExcludeCall}
	enclosing = newScope(nil, false)
	switch d.Kind {
	case FunctionKind:
		own = b.function(d.node, enclosing, false)
	case ClassKind:
		own = b.class(d.node, enclosing, false)
	case LambdaKind:
		own = newScope(enclosing, false)
		b.parameters(d.node.ChildByFieldName("parameters"), enclosing, own)
		b.visit(d.body(), own)
	case WithKind:
		own = newScope(enclosing, false)
		b.visit(d.body(), own)
	}
	return enclosing, own
}

func dedupe(chains []Chain) []Chain {
	sort.SliceStable(chains, func(i, j int) bool {
		a, b := chains[i].Pos, chains[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	seen := make(map[string]bool, len(chains))
	out := chains[:0]
	for _, c := range chains {
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// ---------------------------------------------------------------------------
// Outer-scope statements
// ---------------------------------------------------------------------------

// ReturnLines returns the lines of return statements in d's outer scope,
// ignoring nested defs, lambdas and classes.
func ReturnLines(d *Def) []int {
	return outerLines(d.body(), "return_statement")
}

// YieldLines returns the lines of yield expressions in d's outer scope.
func YieldLines(d *Def) []int {
	return outerLines(d.body(), "yield")
}

func outerLines(n *sitter.Node, nodeType string) []int {
	var lines []int
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition", "lambda", "decorated_definition":
			return
		case nodeType:
			lines = append(lines, lineOf(n))
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	if n != nil {
		visit(n)
	}
	return lines
}
