// Package registry receives the flattened object graph produced by the
// walker. Every node is allocated an ID and then defined exactly once;
// definitions refer to other nodes only by ID.
//
// Implementations:
//   - Memory keeps the node table in memory and enforces write-once ids
//   - Binary appends each definition to a little-endian byte stream
//   - Decode replays a binary stream into any Definer
//   - Snapshot is the canonical CBOR form of a node table, addressed by
//     the SHA-256 of its encoding
package registry

import "fmt"

// ID identifies a node. IDs are allocated from 0 upward.
type ID int64

// Definer receives one definition per node.
type Definer interface {
	DefinePrimitive(id ID, p Primitive)
	DefinePrimitiveList(id ID, items []Primitive)
	DefineTuple(id ID, items []ID)
	DefineList(id ID, items []ID)
	DefineDict(id ID, keys, values []ID)
	DefinePackedArray(id ID, dtype string, data []byte)
	DefineNamedSingleton(id ID, name string)
	DefineBuiltinException(id ID, typeName string, args ID)
	DefineStackTrace(id ID, frames []Frame)
	DefineFile(id ID, path, text string)
	DefineRemoteHandle(id ID, arg any)
	DefineWithBlock(id ID, def Definition)
	DefineFunction(id ID, def Definition)
	DefineClass(id ID, def Definition, bases []ID)
	DefineInstanceMethod(id ID, self ID, name string)
	DefineClassInstance(id ID, class ID, members []Member)
	DefineUnconvertible(id ID, modulePath []string)
}

// Registry is the sink the walker writes to.
type Registry interface {
	Definer
	Allocate() ID
	// IsUnconvertible reports whether id was defined as unconvertible.
	IsUnconvertible(id ID) bool
}

// ---------------------------------------------------------------------------
// Payload types
// ---------------------------------------------------------------------------

// PrimitiveKind tags a Primitive.
type PrimitiveKind uint8

const (
	PrimNone PrimitiveKind = iota + 1
	PrimInt
	PrimFloat
	PrimBool
	PrimStr
)

// Primitive is an inline scalar value.
type Primitive struct {
	Kind  PrimitiveKind `cbor:"1,keyasint"`
	Int   int64         `cbor:"2,keyasint,omitempty"`
	Float float64       `cbor:"3,keyasint,omitempty"`
	Bool  bool          `cbor:"4,keyasint,omitempty"`
	Str   string        `cbor:"5,keyasint,omitempty"`
}

func (p Primitive) String() string {
	switch p.Kind {
	case PrimNone:
		return "None"
	case PrimInt:
		return fmt.Sprint(p.Int)
	case PrimFloat:
		return fmt.Sprint(p.Float)
	case PrimBool:
		if p.Bool {
			return "True"
		}
		return "False"
	case PrimStr:
		return fmt.Sprintf("%q", p.Str)
	}
	return "<invalid primitive>"
}

// Binding maps a dotted free-variable chain to the node it resolved to.
type Binding struct {
	Chain string `cbor:"1,keyasint"`
	ID    ID     `cbor:"2,keyasint"`
}

// Definition is the payload shared by functions, classes and with-blocks.
type Definition struct {
	File     ID        `cbor:"1,keyasint"`
	Line     int       `cbor:"2,keyasint"`
	FreeVars []Binding `cbor:"3,keyasint,omitempty"`
}

// Lookup returns the node bound to a dotted chain.
func (d Definition) Lookup(chain string) (ID, bool) {
	for _, b := range d.FreeVars {
		if b.Chain == chain {
			return b.ID, true
		}
	}
	return 0, false
}

// Member is one data member of a class instance.
type Member struct {
	Name string `cbor:"1,keyasint"`
	ID   ID     `cbor:"2,keyasint"`
}

// Frame is one stack-trace entry.
type Frame struct {
	Path string `cbor:"1,keyasint"`
	Line int    `cbor:"2,keyasint"`
}
