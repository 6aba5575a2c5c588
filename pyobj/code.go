package pyobj

// ---------------------------------------------------------------------------
// Modules and code locations
// ---------------------------------------------------------------------------

// Module is a loaded module and its attribute namespace.
type Module struct {
	Name  string
	File  string
	Attrs *Namespace
}

func (*Module) TypeName() string  { return "module" }
func (m *Module) String() string { return "<module '" + m.Name + "'>" }

// NewModule creates an empty module.
func NewModule(name, file string) *Module {
	return &Module{Name: name, File: file, Attrs: NewNamespace()}
}

// Code records where a function or class was defined. FirstLine is the
// 1-based line of the def/class/lambda keyword.
type Code struct {
	Filename  string
	FirstLine int
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// Function is a user-defined function (or lambda).
//
// Closure holds the captured cells of enclosing function scopes as they
// were when the function object was created; Globals is the defining
// module's namespace.
type Function struct {
	Name     string
	Module   string
	Globals  *Namespace
	Closure  *Namespace
	Code     *Code
	Defaults []Value
}

func (*Function) TypeName() string  { return "function" }
func (f *Function) String() string { return "<function " + f.Name + ">" }

// BoundVariables returns the names visible to the function body from
// outside it: closure cells first, then module globals.
func (f *Function) BoundVariables() *Namespace {
	return mergeScopes(f.Closure, f.Globals)
}

// BuiltinFunction is a callable implemented by the runtime.
type BuiltinFunction struct {
	Name   string
	Module string
}

func (*BuiltinFunction) TypeName() string { return "builtin_function_or_method" }
func (b *BuiltinFunction) String() string {
	return "<built-in function " + b.Name + ">"
}

// ---------------------------------------------------------------------------
// Classes and instances
// ---------------------------------------------------------------------------

// Class is a user-defined or builtin class.
//
// Bases lists only the explicitly declared base classes. Builtin classes
// have no Code and are named singletons.
type Class struct {
	Name    string
	Module  string
	Bases   []*Class
	Attrs   *Namespace
	Closure *Namespace
	Globals *Namespace
	Code    *Code
	Builtin bool
}

func (*Class) TypeName() string  { return "classobj" }
func (c *Class) String() string { return "<class '" + c.Name + "'>" }

// NewClass creates a class with an empty attribute namespace.
func NewClass(name, module string, bases ...*Class) *Class {
	return &Class{Name: name, Module: module, Bases: bases, Attrs: NewNamespace()}
}

// BoundVariables returns the names visible to the class body from its
// defining scope: closure cells first, then module globals.
func (c *Class) BoundVariables() *Namespace {
	return mergeScopes(c.Closure, c.Globals)
}

// IsSubclassOf returns true if c is other or derives from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	if c == other {
		return true
	}
	for _, b := range c.Bases {
		if b.IsSubclassOf(other) {
			return true
		}
	}
	return false
}

// Lookup finds name in the class dict or, depth first, in its bases.
func (c *Class) Lookup(name string) (Value, bool) {
	if v, ok := c.Attrs.Get(name); ok {
		return v, true
	}
	for _, b := range c.Bases {
		if v, ok := b.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Instance is an instance of a user-defined class.
//
// Dict is nil when the instance has no per-instance attribute mapping; its
// attributes then live in Slots.
type Instance struct {
	Class *Class
	Dict  *Namespace
	Slots *Namespace
}

func (i *Instance) TypeName() string { return i.Class.Name }

// NewInstance creates an instance with an empty attribute dict.
func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Dict: NewNamespace()}
}

// NewSlotsInstance creates an instance without an attribute dict.
func NewSlotsInstance(c *Class) *Instance {
	return &Instance{Class: c, Slots: NewNamespace()}
}

// Exception is an instance of an exception class.
type Exception struct {
	Class *Class
	Args  *Tuple
	Attrs *Namespace
}

func (e *Exception) TypeName() string { return e.Class.Name }

// NewException creates an exception instance with the given constructor args.
func NewException(c *Class, args ...Value) *Exception {
	return &Exception{Class: c, Args: NewTuple(args...), Attrs: NewNamespace()}
}

// BoundMethod is a method bound to a receiver.
type BoundMethod struct {
	Self Value
	Name string
}

func (*BoundMethod) TypeName() string { return "instancemethod" }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// mergeScopes layers inner over outer without mutating either.
func mergeScopes(inner, outer *Namespace) *Namespace {
	out := NewNamespace()
	for _, name := range inner.Names() {
		v, _ := inner.Get(name)
		out.Set(name, v)
	}
	for _, name := range outer.Names() {
		if out.Has(name) {
			continue
		}
		v, _ := outer.Get(name)
		out.Set(name, v)
	}
	return out
}
