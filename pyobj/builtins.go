package pyobj

import "sort"

// ---------------------------------------------------------------------------
// Builtin namespace
// ---------------------------------------------------------------------------

// Builtins is the __builtin__ module. It is built once and never mutated.
var Builtins = NewModule("__builtin__", "")

// Connect is the library's "open a remote connection" entry point. The
// walker treats it as a terminal unconvertible value.
var Connect = &BuiltinFunction{Name: "connect", Module: "pyfora"}

var builtinTypeNames = []string{
	"object", "type", "int", "long", "float", "str", "unicode", "bool",
	"list", "tuple", "dict", "set", "frozenset", "slice", "xrange",
	"staticmethod", "classmethod", "property", "super",
}

// builtinExceptions maps each builtin exception to its base.
var builtinExceptions = [][2]string{
	{"BaseException", ""},
	{"Exception", "BaseException"},
	{"StandardError", "Exception"},
	{"ArithmeticError", "StandardError"},
	{"ZeroDivisionError", "ArithmeticError"},
	{"OverflowError", "ArithmeticError"},
	{"FloatingPointError", "ArithmeticError"},
	{"AssertionError", "StandardError"},
	{"AttributeError", "StandardError"},
	{"LookupError", "StandardError"},
	{"IndexError", "LookupError"},
	{"KeyError", "LookupError"},
	{"NameError", "StandardError"},
	{"UnboundLocalError", "NameError"},
	{"RuntimeError", "StandardError"},
	{"NotImplementedError", "RuntimeError"},
	{"TypeError", "StandardError"},
	{"ValueError", "StandardError"},
	{"StopIteration", "Exception"},
	{"Warning", "Exception"},
	{"UserWarning", "Warning"},
}

var builtinFunctionNames = []string{
	"abs", "all", "any", "callable", "chr", "divmod", "enumerate", "filter",
	"getattr", "hasattr", "hash", "isinstance", "issubclass", "iter", "len",
	"map", "max", "min", "next", "ord", "pow", "range", "reduce", "reversed",
	"round", "setattr", "sorted", "sum", "zip",
}

var namedSingletons = map[Value]string{}

func init() {
	for _, name := range builtinTypeNames {
		c := &Class{Name: name, Module: "__builtin__", Attrs: NewNamespace(), Builtin: true}
		Builtins.Attrs.Set(name, c)
		namedSingletons[c] = name
	}
	for _, pair := range builtinExceptions {
		c := &Class{Name: pair[0], Module: "exceptions", Attrs: NewNamespace(), Builtin: true}
		if pair[1] != "" {
			base, _ := Builtins.Attrs.Get(pair[1])
			c.Bases = []*Class{base.(*Class)}
		}
		Builtins.Attrs.Set(pair[0], c)
		namedSingletons[c] = pair[0]
	}
	for _, name := range builtinFunctionNames {
		f := &BuiltinFunction{Name: name, Module: "__builtin__"}
		Builtins.Attrs.Set(name, f)
		namedSingletons[f] = name
	}
	Builtins.Attrs.Set("None", None)
}

// Builtin returns the builtin bound to name.
func Builtin(name string) (Value, bool) {
	return Builtins.Attrs.Get(name)
}

// BuiltinClass returns the builtin class bound to name, or nil.
func BuiltinClass(name string) *Class {
	v, ok := Builtin(name)
	if !ok {
		return nil
	}
	c, _ := v.(*Class)
	return c
}

// SingletonName returns the canonical name of a named singleton.
func SingletonName(v Value) (string, bool) {
	name, ok := namedSingletons[v]
	return name, ok
}

// NamedSingletons returns every named singleton, sorted by name.
func NamedSingletons() []Value {
	out := make([]Value, 0, len(namedSingletons))
	for v := range namedSingletons {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return namedSingletons[out[i]] < namedSingletons[out[j]]
	})
	return out
}
