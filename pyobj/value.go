package pyobj

import (
	"fmt"
	"strconv"
)

// Value is any live object the walker can visit.
//
// Implementations must be pointer types: the walker keys its caches on
// interface identity, and two distinct pointers are two distinct objects
// even when they hold equal data.
type Value interface {
	TypeName() string
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// NoneType is the type of None. There is exactly one instance.
type NoneType struct{}

// None is the single None value.
var None = &NoneType{}

func (*NoneType) TypeName() string { return "NoneType" }
func (*NoneType) String() string   { return "None" }

// Bool is a Python bool.
type Bool struct{ V bool }

// Int is a Python int.
type Int struct{ V int64 }

// Float is a Python float.
type Float struct{ V float64 }

// Str is a Python byte string.
type Str struct{ V string }

func (*Bool) TypeName() string  { return "bool" }
func (*Int) TypeName() string   { return "int" }
func (*Float) TypeName() string { return "float" }
func (*Str) TypeName() string   { return "str" }

func (b *Bool) String() string {
	if b.V {
		return "True"
	}
	return "False"
}
func (i *Int) String() string   { return strconv.FormatInt(i.V, 10) }
func (f *Float) String() string { return strconv.FormatFloat(f.V, 'g', -1, 64) }
func (s *Str) String() string   { return strconv.Quote(s.V) }

// NewBool returns a fresh bool object.
func NewBool(b bool) *Bool { return &Bool{V: b} }

// NewInt returns a fresh int object.
func NewInt(i int64) *Int { return &Int{V: i} }

// NewFloat returns a fresh float object.
func NewFloat(f float64) *Float { return &Float{V: f} }

// NewStr returns a fresh str object.
func NewStr(s string) *Str { return &Str{V: s} }

// IsPrimitive reports whether v is None, bool, int, float or str.
func IsPrimitive(v Value) bool {
	switch v.(type) {
	case *NoneType, *Bool, *Int, *Float, *Str:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

// Tuple is an immutable sequence.
type Tuple struct{ Items []Value }

// List is a mutable sequence.
type List struct{ Items []Value }

func (*Tuple) TypeName() string { return "tuple" }
func (*List) TypeName() string  { return "list" }

// NewTuple builds a tuple from items.
func NewTuple(items ...Value) *Tuple { return &Tuple{Items: items} }

// NewList builds a list from items.
func NewList(items ...Value) *List { return &List{Items: items} }

// Range returns a list holding the ints 0..n-1, like range(n).
func Range(n int) *List {
	items := make([]Value, n)
	for i := range items {
		items[i] = NewInt(int64(i))
	}
	return &List{Items: items}
}

// Dict is an insertion-ordered mapping. Keys are compared by identity, or
// by value for primitive keys.
type Dict struct {
	keys   []Value
	values []Value
}

func (*Dict) TypeName() string { return "dict" }

// NewDict returns an empty dict.
func NewDict() *Dict { return &Dict{} }

// Set inserts or replaces the value stored under key.
func (d *Dict) Set(key, value Value) {
	for i, k := range d.keys {
		if keysEqual(k, key) {
			d.values[i] = value
			return
		}
	}
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
}

// Get returns the value stored under key.
func (d *Dict) Get(key Value) (Value, bool) {
	for i, k := range d.keys {
		if keysEqual(k, key) {
			return d.values[i], true
		}
	}
	return nil, false
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Items calls fn for each entry in insertion order.
func (d *Dict) Items(fn func(key, value Value)) {
	for i, k := range d.keys {
		fn(k, d.values[i])
	}
}

func keysEqual(a, b Value) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *Int:
		y, ok := b.(*Int)
		return ok && x.V == y.V
	case *Str:
		y, ok := b.(*Str)
		return ok && x.V == y.V
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.V == y.V
	case *Float:
		y, ok := b.(*Float)
		return ok && x.V == y.V
	}
	return false
}

// ---------------------------------------------------------------------------
// Namespace: ordered name -> value mapping
// ---------------------------------------------------------------------------

// Namespace is an insertion-ordered mapping from names to values. It backs
// module attributes, class dicts, instance dicts and closure cells.
type Namespace struct {
	names  []string
	values map[string]Value
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{values: make(map[string]Value)}
}

// Set binds name to v, keeping the original position of an existing name.
func (ns *Namespace) Set(name string, v Value) {
	if _, ok := ns.values[name]; !ok {
		ns.names = append(ns.names, name)
	}
	ns.values[name] = v
}

// Get returns the value bound to name.
func (ns *Namespace) Get(name string) (Value, bool) {
	if ns == nil {
		return nil, false
	}
	v, ok := ns.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (ns *Namespace) Has(name string) bool {
	_, ok := ns.Get(name)
	return ok
}

// Names returns the bound names in insertion order.
func (ns *Namespace) Names() []string {
	if ns == nil {
		return nil
	}
	out := make([]string, len(ns.names))
	copy(out, ns.names)
	return out
}

// Len returns the number of bound names.
func (ns *Namespace) Len() int {
	if ns == nil {
		return 0
	}
	return len(ns.names)
}

// Describe returns a short human-readable description of v for diagnostics.
func Describe(v Value) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return "<" + v.TypeName() + ">"
}
