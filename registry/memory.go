package registry

import "fmt"

// Kind is the node kind recorded by Memory.
type Kind uint8

const (
	KindPrimitive Kind = iota + 1
	KindPrimitiveList
	KindTuple
	KindList
	KindDict
	KindPackedArray
	KindNamedSingleton
	KindBuiltinException
	KindStackTrace
	KindFile
	KindRemoteHandle
	KindWithBlock
	KindFunction
	KindClass
	KindInstanceMethod
	KindClassInstance
	KindUnconvertible
)

var kindNames = map[Kind]string{
	KindPrimitive:        "primitive",
	KindPrimitiveList:    "primitive-list",
	KindTuple:            "tuple",
	KindList:             "list",
	KindDict:             "dict",
	KindPackedArray:      "packed-array",
	KindNamedSingleton:   "named-singleton",
	KindBuiltinException: "builtin-exception",
	KindStackTrace:       "stack-trace",
	KindFile:             "file",
	KindRemoteHandle:     "remote-handle",
	KindWithBlock:        "with-block",
	KindFunction:         "function",
	KindClass:            "class",
	KindInstanceMethod:   "instance-method",
	KindClassInstance:    "class-instance",
	KindUnconvertible:    "unconvertible",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Node is one defined node. Only the fields for its Kind are set.
type Node struct {
	ID   ID   `cbor:"1,keyasint"`
	Kind Kind `cbor:"2,keyasint"`

	Primitive  *Primitive  `cbor:"3,keyasint,omitempty"`
	Primitives []Primitive `cbor:"4,keyasint,omitempty"`
	// Items holds tuple and list elements.
	Items  []ID `cbor:"5,keyasint,omitempty"`
	Keys   []ID `cbor:"6,keyasint,omitempty"`
	Values []ID `cbor:"7,keyasint,omitempty"`

	DType string `cbor:"8,keyasint,omitempty"`
	Data  []byte `cbor:"9,keyasint,omitempty"`

	// Name is the singleton name, the exception type name or the bound
	// method name.
	Name string `cbor:"10,keyasint,omitempty"`
	// Ref is the exception args tuple, the bound receiver or the class of
	// an instance.
	Ref ID `cbor:"11,keyasint,omitempty"`

	Frames []Frame `cbor:"12,keyasint,omitempty"`
	Path   string  `cbor:"13,keyasint,omitempty"`
	Text   string  `cbor:"14,keyasint,omitempty"`
	Handle any     `cbor:"15,keyasint,omitempty"`

	Def     *Definition `cbor:"16,keyasint,omitempty"`
	Bases   []ID        `cbor:"17,keyasint,omitempty"`
	Members []Member    `cbor:"18,keyasint,omitempty"`

	// ModulePath is set for unconvertible nodes whose module-level name is
	// known.
	ModulePath []string `cbor:"19,keyasint,omitempty"`
}

// Children returns the IDs n refers to, in payload order.
func (n *Node) Children() []ID {
	var out []ID
	switch n.Kind {
	case KindTuple, KindList:
		out = append(out, n.Items...)
	case KindDict:
		for i := range n.Keys {
			out = append(out, n.Keys[i], n.Values[i])
		}
	case KindBuiltinException, KindInstanceMethod:
		out = append(out, n.Ref)
	case KindClassInstance:
		out = append(out, n.Ref)
		for _, m := range n.Members {
			out = append(out, m.ID)
		}
	case KindFunction, KindClass, KindWithBlock:
		out = append(out, n.Def.File)
		for _, b := range n.Def.FreeVars {
			out = append(out, b.ID)
		}
		out = append(out, n.Bases...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Memory: in-memory write-once node table
// ---------------------------------------------------------------------------

// Memory records nodes in definition order. Defining an id twice is a
// programming error and panics.
type Memory struct {
	next  ID
	nodes map[ID]*Node
	order []ID
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{nodes: make(map[ID]*Node)}
}

// Allocate returns the next unused id.
func (m *Memory) Allocate() ID {
	id := m.next
	m.next++
	return id
}

// Node returns the node defined under id.
func (m *Memory) Node(id ID) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Nodes returns the nodes in definition order.
func (m *Memory) Nodes() []*Node {
	out := make([]*Node, len(m.order))
	for i, id := range m.order {
		out[i] = m.nodes[id]
	}
	return out
}

// Len returns the number of defined nodes.
func (m *Memory) Len() int { return len(m.order) }

// IsUnconvertible reports whether id was defined as unconvertible.
func (m *Memory) IsUnconvertible(id ID) bool {
	n, ok := m.nodes[id]
	return ok && n.Kind == KindUnconvertible
}

func (m *Memory) define(n *Node) {
	if _, dup := m.nodes[n.ID]; dup {
		panic(fmt.Sprintf("registry: node %d defined twice", n.ID))
	}
	m.nodes[n.ID] = n
	m.order = append(m.order, n.ID)
	if n.ID >= m.next {
		m.next = n.ID + 1
	}
}

func (m *Memory) DefinePrimitive(id ID, p Primitive) {
	m.define(&Node{ID: id, Kind: KindPrimitive, Primitive: &p})
}

func (m *Memory) DefinePrimitiveList(id ID, items []Primitive) {
	m.define(&Node{ID: id, Kind: KindPrimitiveList, Primitives: items})
}

func (m *Memory) DefineTuple(id ID, items []ID) {
	m.define(&Node{ID: id, Kind: KindTuple, Items: items})
}

func (m *Memory) DefineList(id ID, items []ID) {
	m.define(&Node{ID: id, Kind: KindList, Items: items})
}

func (m *Memory) DefineDict(id ID, keys, values []ID) {
	m.define(&Node{ID: id, Kind: KindDict, Keys: keys, Values: values})
}

func (m *Memory) DefinePackedArray(id ID, dtype string, data []byte) {
	m.define(&Node{ID: id, Kind: KindPackedArray, DType: dtype, Data: data})
}

func (m *Memory) DefineNamedSingleton(id ID, name string) {
	m.define(&Node{ID: id, Kind: KindNamedSingleton, Name: name})
}

func (m *Memory) DefineBuiltinException(id ID, typeName string, args ID) {
	m.define(&Node{ID: id, Kind: KindBuiltinException, Name: typeName, Ref: args})
}

func (m *Memory) DefineStackTrace(id ID, frames []Frame) {
	m.define(&Node{ID: id, Kind: KindStackTrace, Frames: frames})
}

func (m *Memory) DefineFile(id ID, path, text string) {
	m.define(&Node{ID: id, Kind: KindFile, Path: path, Text: text})
}

func (m *Memory) DefineRemoteHandle(id ID, arg any) {
	m.define(&Node{ID: id, Kind: KindRemoteHandle, Handle: arg})
}

func (m *Memory) DefineWithBlock(id ID, def Definition) {
	m.define(&Node{ID: id, Kind: KindWithBlock, Def: &def})
}

func (m *Memory) DefineFunction(id ID, def Definition) {
	m.define(&Node{ID: id, Kind: KindFunction, Def: &def})
}

func (m *Memory) DefineClass(id ID, def Definition, bases []ID) {
	m.define(&Node{ID: id, Kind: KindClass, Def: &def, Bases: bases})
}

func (m *Memory) DefineInstanceMethod(id ID, self ID, name string) {
	m.define(&Node{ID: id, Kind: KindInstanceMethod, Ref: self, Name: name})
}

func (m *Memory) DefineClassInstance(id ID, class ID, members []Member) {
	m.define(&Node{ID: id, Kind: KindClassInstance, Ref: class, Members: members})
}

func (m *Memory) DefineUnconvertible(id ID, modulePath []string) {
	m.define(&Node{ID: id, Kind: KindUnconvertible, ModulePath: modulePath})
}

// Replay defines every node again, in definition order, on d.
func (m *Memory) Replay(d Definer) {
	for _, id := range m.order {
		n := m.nodes[id]
		switch n.Kind {
		case KindPrimitive:
			d.DefinePrimitive(id, *n.Primitive)
		case KindPrimitiveList:
			d.DefinePrimitiveList(id, n.Primitives)
		case KindTuple:
			d.DefineTuple(id, n.Items)
		case KindList:
			d.DefineList(id, n.Items)
		case KindDict:
			d.DefineDict(id, n.Keys, n.Values)
		case KindPackedArray:
			d.DefinePackedArray(id, n.DType, n.Data)
		case KindNamedSingleton:
			d.DefineNamedSingleton(id, n.Name)
		case KindBuiltinException:
			d.DefineBuiltinException(id, n.Name, n.Ref)
		case KindStackTrace:
			d.DefineStackTrace(id, n.Frames)
		case KindFile:
			d.DefineFile(id, n.Path, n.Text)
		case KindRemoteHandle:
			d.DefineRemoteHandle(id, n.Handle)
		case KindWithBlock:
			d.DefineWithBlock(id, *n.Def)
		case KindFunction:
			d.DefineFunction(id, *n.Def)
		case KindClass:
			d.DefineClass(id, *n.Def, n.Bases)
		case KindInstanceMethod:
			d.DefineInstanceMethod(id, n.Ref, n.Name)
		case KindClassInstance:
			d.DefineClassInstance(id, n.Ref, n.Members)
		case KindUnconvertible:
			d.DefineUnconvertible(id, n.ModulePath)
		}
	}
}
