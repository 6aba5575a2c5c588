package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// scope is one Python name-binding scope: a function, lambda, class body
// or comprehension. Names bound anywhere in a scope are local to it for
// the whole scope.
type scope struct {
	parent   *scope
	class    bool
	bound    map[string]Position
	order    []string
	globals  map[string]bool
	nonlocal map[string]bool
	loads    []Chain
	children []*scope
}

func newScope(parent *scope, class bool) *scope {
	s := &scope{
		parent:   parent,
		class:    class,
		bound:    make(map[string]Position),
		globals:  make(map[string]bool),
		nonlocal: make(map[string]bool),
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

func (s *scope) bind(name string, pos Position) {
	if _, ok := s.bound[name]; ok {
		return
	}
	s.bound[name] = pos
	s.order = append(s.order, name)
}

// binds reports whether name is local to s. Names declared global or
// nonlocal belong to an outer scope.
func (s *scope) binds(name string) bool {
	if s.globals[name] || s.nonlocal[name] {
		return false
	}
	_, ok := s.bound[name]
	return ok
}

func (s *scope) load(names []string, pos Position) {
	s.loads = append(s.loads, Chain{Names: names, Pos: pos})
}

// resolvesLocally reports whether a load of name made directly in s is
// satisfied by s or one of its ancestors. Class bodies are only visible to
// loads made directly in them. A global declaration on the way up sends
// the load straight to module scope.
func (s *scope) resolvesLocally(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.class && cur != s {
			continue
		}
		if cur.globals[name] {
			return false
		}
		if cur.binds(name) {
			return true
		}
	}
	return false
}

// free appends every load under s that no scope from s upward binds.
func (s *scope) free(out []Chain) []Chain {
	for _, c := range s.loads {
		if !s.resolvesLocally(c.Names[0]) {
			out = append(out, c)
		}
	}
	for _, child := range s.children {
		out = child.free(out)
	}
	return out
}

// ---------------------------------------------------------------------------
// binder: walks tree-sitter nodes, recording bindings and loads per scope
// ---------------------------------------------------------------------------

type binder struct {
	mod     *Module
	exclude string
}

func (b *binder) visit(n *sitter.Node, s *scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		s.load([]string{b.mod.text(n)}, posOf(n))

	case "attribute", "dotted_name":
		if names, ok := b.chain(n); ok {
			s.load(names, posOf(n))
			return
		}
		b.visit(n.ChildByFieldName("object"), s)

	case "call":
		if b.excluded(n) {
			return
		}
		b.visitChildren(n, s)

	case "keyword_argument":
		b.visit(n.ChildByFieldName("value"), s)

	case "function_definition":
		b.function(n, s, true)

	case "class_definition":
		b.class(n, s, true)

	case "decorated_definition":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "decorator" {
				b.visitChildren(c, s)
			}
		}
		b.visit(n.ChildByFieldName("definition"), s)

	case "lambda":
		inner := newScope(s, false)
		b.parameters(n.ChildByFieldName("parameters"), s, inner)
		b.visit(n.ChildByFieldName("body"), inner)

	case "assignment":
		b.target(n.ChildByFieldName("left"), s)
		b.visit(n.ChildByFieldName("type"), s)
		b.visit(n.ChildByFieldName("right"), s)

	case "augmented_assignment":
		left := n.ChildByFieldName("left")
		b.visit(left, s)
		b.target(left, s)
		b.visit(n.ChildByFieldName("right"), s)

	case "named_expression":
		b.target(n.ChildByFieldName("name"), s)
		b.visit(n.ChildByFieldName("value"), s)

	case "for_statement":
		b.target(n.ChildByFieldName("left"), s)
		b.visit(n.ChildByFieldName("right"), s)
		b.visit(n.ChildByFieldName("body"), s)
		b.visit(n.ChildByFieldName("alternative"), s)

	case "with_item":
		value := n.ChildByFieldName("value")
		b.visit(value, s)
		if alias := n.ChildByFieldName("alias"); alias != nil {
			b.target(alias, s)
		}

	case "as_pattern":
		if n.NamedChildCount() > 0 {
			b.visit(n.NamedChild(0), s)
		}
		b.target(n.ChildByFieldName("alias"), s)

	case "except_clause":
		b.exceptClause(n, s)

	case "import_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.importName(n.NamedChild(i), s, true)
		}

	case "import_from_statement":
		// The first named child is the module being imported from.
		for i := 1; i < int(n.NamedChildCount()); i++ {
			b.importName(n.NamedChild(i), s, false)
		}

	case "future_import_statement", "wildcard_import":

	case "global_statement", "nonlocal_statement":
		decl := s.globals
		if n.Type() == "nonlocal_statement" {
			decl = s.nonlocal
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "identifier" {
				decl[b.mod.text(c)] = true
			}
		}

	case "delete_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.target(n.NamedChild(i), s)
		}

	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		b.comprehension(n, s)

	case "comment", "integer", "float", "true", "false", "none", "ellipsis", "escape_sequence", "string_content":

	default:
		b.visitChildren(n, s)
	}
}

func (b *binder) visitChildren(n *sitter.Node, s *scope) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.visit(n.NamedChild(i), s)
	}
}

// chain returns the dotted names of a pure member-access expression.
func (b *binder) chain(n *sitter.Node) ([]string, bool) {
	switch n.Type() {
	case "identifier":
		return []string{b.mod.text(n)}, true
	case "attribute":
		names, ok := b.chain(n.ChildByFieldName("object"))
		if !ok {
			return nil, false
		}
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return nil, false
		}
		return append(names, b.mod.text(attr)), true
	case "dotted_name":
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			names = append(names, b.mod.text(n.NamedChild(i)))
		}
		return names, len(names) > 0
	}
	return nil, false
}

// excluded reports whether a call is to the configured marker function,
// whose arguments are not free variables of the enclosing code.
func (b *binder) excluded(call *sitter.Node) bool {
	if b.exclude == "" {
		return false
	}
	fn := call.ChildByFieldName("function")
	return fn != nil && fn.Type() == "identifier" && b.mod.text(fn) == b.exclude
}

// target records the names bound by an assignment target. Attribute and
// subscript targets bind nothing; their object parts are loads.
func (b *binder) target(n *sitter.Node, s *scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		s.bind(b.mod.text(n), posOf(n))
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"expression_list", "parenthesized_expression", "as_pattern_target",
		"list_splat_pattern", "list_splat":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.target(n.NamedChild(i), s)
		}
	case "attribute":
		b.visit(n.ChildByFieldName("object"), s)
	case "subscript":
		b.visit(n.ChildByFieldName("value"), s)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); i > 0 {
				b.visit(c, s)
			}
		}
	default:
		b.visit(n, s)
	}
}

func (b *binder) exceptClause(n *sitter.Node, s *scope) {
	afterAs := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case !c.IsNamed():
			if t := c.Type(); t == "as" || t == "," {
				afterAs = true
			}
		case afterAs:
			b.target(c, s)
			afterAs = false
		default:
			b.visit(c, s)
		}
	}
}

// importName binds the local name introduced by one imported item.
// `import a.b` binds a; `from m import a` and any alias bind the last name.
func (b *binder) importName(n *sitter.Node, s *scope, plain bool) {
	switch n.Type() {
	case "aliased_import":
		if alias := n.ChildByFieldName("alias"); alias != nil {
			s.bind(b.mod.text(alias), posOf(alias))
		}
	case "dotted_name":
		if n.NamedChildCount() == 0 {
			return
		}
		id := n.NamedChild(int(n.NamedChildCount()) - 1)
		if plain {
			id = n.NamedChild(0)
		}
		s.bind(b.mod.text(id), posOf(n))
	case "identifier":
		s.bind(b.mod.text(n), posOf(n))
	}
}

// function binds a def's name in outer and analyzes its parameters and
// body in a fresh scope. Decorators are handled by the caller.
func (b *binder) function(n *sitter.Node, outer *scope, bindName bool) *scope {
	if name := n.ChildByFieldName("name"); name != nil && bindName {
		outer.bind(b.mod.text(name), posOf(name))
	}
	inner := newScope(outer, false)
	b.parameters(n.ChildByFieldName("parameters"), outer, inner)
	b.visit(n.ChildByFieldName("return_type"), outer)
	b.visit(n.ChildByFieldName("body"), inner)
	return inner
}

// class binds a class name in outer. Base class expressions are evaluated
// in outer; the body gets a class scope.
func (b *binder) class(n *sitter.Node, outer *scope, bindName bool) *scope {
	if name := n.ChildByFieldName("name"); name != nil && bindName {
		outer.bind(b.mod.text(name), posOf(name))
	}
	b.visit(n.ChildByFieldName("superclasses"), outer)
	inner := newScope(outer, true)
	b.visit(n.ChildByFieldName("body"), inner)
	return inner
}

// parameters binds parameter names in inner. Defaults and annotations are
// evaluated in outer.
func (b *binder) parameters(params *sitter.Node, outer, inner *scope) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			inner.bind(b.mod.text(p), posOf(p))
		case "default_parameter":
			b.target(p.ChildByFieldName("name"), inner)
			b.visit(p.ChildByFieldName("value"), outer)
		case "typed_default_parameter":
			b.target(p.ChildByFieldName("name"), inner)
			b.visit(p.ChildByFieldName("type"), outer)
			b.visit(p.ChildByFieldName("value"), outer)
		case "typed_parameter":
			if p.NamedChildCount() > 0 {
				b.paramName(p.NamedChild(0), inner)
			}
			b.visit(p.ChildByFieldName("type"), outer)
		case "list_splat_pattern", "dictionary_splat_pattern":
			b.paramName(p, inner)
		case "tuple_pattern":
			b.target(p, inner)
		}
	}
}

func (b *binder) paramName(n *sitter.Node, inner *scope) {
	switch n.Type() {
	case "identifier":
		inner.bind(b.mod.text(n), posOf(n))
	case "list_splat_pattern", "dictionary_splat_pattern":
		if n.NamedChildCount() > 0 {
			b.paramName(n.NamedChild(0), inner)
		}
	}
}

// comprehension analyzes a comprehension in its own scope. The first
// iterable is evaluated in the enclosing scope.
func (b *binder) comprehension(n *sitter.Node, outer *scope) {
	inner := newScope(outer, false)
	first := true
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "for_in_clause":
			right := c.ChildByFieldName("right")
			if first {
				b.visit(right, outer)
				first = false
			} else {
				b.visit(right, inner)
			}
			b.target(c.ChildByFieldName("left"), inner)
		case "if_clause":
			b.visitChildren(c, inner)
		default:
			b.visit(c, inner)
		}
	}
}
