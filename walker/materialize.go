package walker

import (
	"errors"
	"fmt"

	"github.com/chazu/pywalk/pyobj"
	"github.com/chazu/pywalk/registry"
)

// ErrNotMaterializable is returned for nodes that only the remote side can
// rebuild, such as functions and classes.
var ErrNotMaterializable = errors.New("node cannot be materialized locally")

// Materialize rebuilds the data value registered as id. Shared nodes come
// back as shared values.
func Materialize(mem *registry.Memory, id registry.ID) (pyobj.Value, error) {
	m := &materializer{mem: mem, done: make(map[registry.ID]pyobj.Value)}
	return m.value(id)
}

type materializer struct {
	mem  *registry.Memory
	done map[registry.ID]pyobj.Value
}

func (m *materializer) value(id registry.ID) (pyobj.Value, error) {
	if v, ok := m.done[id]; ok {
		return v, nil
	}
	n, ok := m.mem.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %d is not defined", id)
	}

	switch n.Kind {
	case registry.KindPrimitive:
		return m.keep(id, fromPrimitive(*n.Primitive)), nil
	case registry.KindPrimitiveList:
		l := &pyobj.List{Items: make([]pyobj.Value, len(n.Primitives))}
		for i, p := range n.Primitives {
			l.Items[i] = fromPrimitive(p)
		}
		return m.keep(id, l), nil
	case registry.KindList:
		l := &pyobj.List{}
		m.keep(id, l)
		items, err := m.values(n.Items)
		if err != nil {
			return nil, err
		}
		l.Items = items
		return l, nil
	case registry.KindTuple:
		t := &pyobj.Tuple{}
		m.keep(id, t)
		items, err := m.values(n.Items)
		if err != nil {
			return nil, err
		}
		t.Items = items
		return t, nil
	case registry.KindDict:
		d := pyobj.NewDict()
		m.keep(id, d)
		keys, err := m.values(n.Keys)
		if err != nil {
			return nil, err
		}
		values, err := m.values(n.Values)
		if err != nil {
			return nil, err
		}
		for i := range keys {
			d.Set(keys[i], values[i])
		}
		return d, nil
	case registry.KindNamedSingleton:
		v, ok := pyobj.Builtin(n.Name)
		if !ok {
			return nil, fmt.Errorf("unknown named singleton %q", n.Name)
		}
		return m.keep(id, v), nil
	case registry.KindBuiltinException:
		cls := pyobj.BuiltinClass(n.Name)
		if cls == nil || !cls.IsSubclassOf(pyobj.BuiltinClass("BaseException")) {
			return nil, fmt.Errorf("unknown builtin exception %q", n.Name)
		}
		e := &pyobj.Exception{Class: cls, Attrs: pyobj.NewNamespace()}
		m.keep(id, e)
		args, err := m.value(n.Ref)
		if err != nil {
			return nil, err
		}
		t, ok := args.(*pyobj.Tuple)
		if !ok {
			return nil, fmt.Errorf("exception args node %d is a %s", n.Ref, args.TypeName())
		}
		e.Args = t
		return e, nil
	case registry.KindFile:
		return m.keep(id, &pyobj.File{Name: n.Path, Text: n.Text}), nil
	case registry.KindRemoteHandle:
		return m.keep(id, &pyobj.RemoteHandle{ComputedValueArg: n.Handle}), nil
	case registry.KindPackedArray:
		return m.keep(id, &pyobj.PackedArray{DType: n.DType, Data: n.Data}), nil
	}
	return nil, fmt.Errorf("%w: node %d is a %s", ErrNotMaterializable, id, n.Kind)
}

func (m *materializer) values(ids []registry.ID) ([]pyobj.Value, error) {
	out := make([]pyobj.Value, len(ids))
	for i, id := range ids {
		v, err := m.value(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *materializer) keep(id registry.ID, v pyobj.Value) pyobj.Value {
	m.done[id] = v
	return v
}

func fromPrimitive(p registry.Primitive) pyobj.Value {
	switch p.Kind {
	case registry.PrimBool:
		return pyobj.NewBool(p.Bool)
	case registry.PrimInt:
		return pyobj.NewInt(p.Int)
	case registry.PrimFloat:
		return pyobj.NewFloat(p.Float)
	case registry.PrimStr:
		return pyobj.NewStr(p.Str)
	}
	return pyobj.None
}
