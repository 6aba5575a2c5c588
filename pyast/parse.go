package pyast

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var (
	ErrNoDefinition        = errors.New("no definition at line")
	ErrAmbiguousDefinition = errors.New("more than one definition at line")
	ErrParse               = errors.New("tree-sitter parse failed")
)

// Module is a parsed source file. Nodes handed out through Def stay valid
// until Close is called.
type Module struct {
	Filename string
	src      []byte
	tree     *sitter.Tree
	root     *sitter.Node
}

// Parse parses Python source text.
//
// Files with syntax errors still parse; HasErrors reports them so callers
// can decide whether the affected definitions are trustworthy.
func Parse(ctx context.Context, filename string, src []byte) (*Module, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, filename, err)
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("%w: %s: empty tree", ErrParse, filename)
	}
	return &Module{Filename: filename, src: src, tree: tree, root: root}, nil
}

// HasErrors reports whether tree-sitter had to recover from syntax errors.
func (m *Module) HasErrors() bool { return m.root.HasError() }

// Close releases the underlying syntax tree.
func (m *Module) Close() {
	if m.tree != nil {
		m.tree.Close()
		m.tree = nil
	}
}

func (m *Module) text(n *sitter.Node) string {
	return string(m.src[n.StartByte():n.EndByte()])
}

func lineOf(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

func posOf(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Line: int(p.Row) + 1, Col: int(p.Column)}
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// Kind distinguishes the definitions a Def can wrap.
type Kind int

const (
	FunctionKind Kind = iota
	LambdaKind
	ClassKind
	WithKind
)

func (k Kind) String() string {
	switch k {
	case FunctionKind:
		return "function"
	case LambdaKind:
		return "lambda"
	case ClassKind:
		return "class"
	case WithKind:
		return "with"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Def is a located definition inside a parsed module.
type Def struct {
	Kind Kind
	Name string
	// Line is the line the definition was requested at. For decorated
	// definitions located by their first decorator it differs from the
	// line of the def keyword.
	Line int
	node *sitter.Node
	mod  *Module
}

// Filename returns the name of the file the definition lives in.
func (d *Def) Filename() string { return d.mod.Filename }

// body returns the statements or expression executed by the definition.
func (d *Def) body() *sitter.Node { return d.node.ChildByFieldName("body") }

// FunctionAt locates the def or lambda starting at line. A def wins over
// lambdas that start on the same line.
func (m *Module) FunctionAt(line int) (*Def, error) {
	var defs, lambdas []*Def
	m.each(func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			if lineOf(n) == line {
				defs = append(defs, m.def(FunctionKind, n, line))
			}
		case "decorated_definition":
			inner := n.ChildByFieldName("definition")
			if lineOf(n) == line && inner != nil && inner.Type() == "function_definition" && lineOf(inner) != line {
				defs = append(defs, m.def(FunctionKind, inner, line))
			}
		case "lambda":
			if lineOf(n) == line {
				lambdas = append(lambdas, m.def(LambdaKind, n, line))
			}
		}
	})
	if len(defs) > 0 {
		return m.unique(defs, "function", line)
	}
	return m.unique(lambdas, "lambda", line)
}

// ClassAt locates the class statement starting at line.
func (m *Module) ClassAt(line int) (*Def, error) {
	var found []*Def
	m.each(func(n *sitter.Node) {
		switch n.Type() {
		case "class_definition":
			if lineOf(n) == line {
				found = append(found, m.def(ClassKind, n, line))
			}
		case "decorated_definition":
			inner := n.ChildByFieldName("definition")
			if lineOf(n) == line && inner != nil && inner.Type() == "class_definition" && lineOf(inner) != line {
				found = append(found, m.def(ClassKind, inner, line))
			}
		}
	})
	return m.unique(found, "class", line)
}

// WithAt locates the with statement starting at line.
func (m *Module) WithAt(line int) (*Def, error) {
	var found []*Def
	m.each(func(n *sitter.Node) {
		if n.Type() == "with_statement" && lineOf(n) == line {
			found = append(found, m.def(WithKind, n, line))
		}
	})
	return m.unique(found, "with block", line)
}

func (m *Module) def(kind Kind, n *sitter.Node, line int) *Def {
	d := &Def{Kind: kind, Line: line, node: n, mod: m}
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = m.text(name)
	}
	return d
}

func (m *Module) unique(found []*Def, what string, line int) (*Def, error) {
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: no %s at %s:%d", ErrNoDefinition, what, m.Filename, line)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: %d %ss at %s:%d", ErrAmbiguousDefinition, len(found), what, m.Filename, line)
}

// each visits every named node in document order.
func (m *Module) each(fn func(*sitter.Node)) {
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		fn(n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(m.root)
}
