package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// DataMembersSetInInit returns the attribute names a class's __init__
// assigns on its first parameter, in order of first assignment. A class
// without __init__ has none.
func DataMembersSetInInit(class *Def) []string {
	init := class.method("__init__")
	if init == nil {
		return nil
	}
	self := firstParameter(class.mod, init.ChildByFieldName("parameters"))
	if self == "" {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	var collect func(target *sitter.Node)
	collect = func(target *sitter.Node) {
		if target == nil {
			return
		}
		switch target.Type() {
		case "attribute":
			obj := target.ChildByFieldName("object")
			attr := target.ChildByFieldName("attribute")
			if obj != nil && attr != nil && obj.Type() == "identifier" && class.mod.text(obj) == self {
				if name := class.mod.text(attr); !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "parenthesized_expression":
			for i := 0; i < int(target.NamedChildCount()); i++ {
				collect(target.NamedChild(i))
			}
		}
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition", "lambda", "decorated_definition":
			return
		case "assignment", "augmented_assignment":
			collect(n.ChildByFieldName("left"))
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	if body := init.ChildByFieldName("body"); body != nil {
		visit(body)
	}
	return names
}

// method returns the def named name directly inside a class body.
func (d *Def) method(name string) *sitter.Node {
	body := d.body()
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		if n.Type() == "decorated_definition" {
			n = n.ChildByFieldName("definition")
		}
		if n == nil || n.Type() != "function_definition" {
			continue
		}
		if id := n.ChildByFieldName("name"); id != nil && d.mod.text(id) == name {
			return n
		}
	}
	return nil
}

func firstParameter(m *Module, params *sitter.Node) string {
	if params == nil || params.NamedChildCount() == 0 {
		return ""
	}
	p := params.NamedChild(0)
	switch p.Type() {
	case "identifier":
		return m.text(p)
	case "typed_parameter":
		if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == "identifier" {
			return m.text(p.NamedChild(0))
		}
	case "default_parameter", "typed_default_parameter":
		if name := p.ChildByFieldName("name"); name != nil {
			return m.text(name)
		}
	}
	return ""
}
