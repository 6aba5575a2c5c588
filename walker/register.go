package walker

import (
	"sort"

	"github.com/chazu/pywalk/pyast"
	"github.com/chazu/pywalk/pyobj"
	"github.com/chazu/pywalk/registry"
)

// dispatch classifies v and defines node id for it. It returns the kind
// the node was defined as.
func (w *Walker) dispatch(id registry.ID, v pyobj.Value) (Kind, error) {
	kind, ok := Classify(v)
	if !ok {
		return 0, internalf("don't know how to register %s", pyobj.Describe(v))
	}

	var err error
	switch kind {
	case KindRemoteHandle:
		w.reg.DefineRemoteHandle(id, v.(*pyobj.RemoteHandle).ComputedValueArg)
	case KindPackedArray:
		p := v.(*pyobj.PackedArray)
		w.reg.DefinePackedArray(id, p.DType, p.Data)
	case KindFuture:
		// The future is transparent: its result takes the future's node.
		return w.dispatch(id, v.(*pyobj.Future).Result())
	case KindFile:
		f := v.(*pyobj.File)
		w.reg.DefineFile(id, f.Name, f.Text)
		if _, ok := w.files[f.Name]; !ok {
			w.files[f.Name] = id
		}
	case KindBuiltinException:
		err = w.registerBuiltinException(id, v.(*pyobj.Exception))
	case KindNamedSingleton:
		name, _ := pyobj.SingletonName(v)
		w.reg.DefineNamedSingleton(id, name)
	case KindStackTrace:
		w.reg.DefineStackTrace(id, stackFrames(v.(*pyobj.Traceback)))
	case KindWithBlock:
		err = w.registerWithBlock(id, v.(*pyobj.WithBlock))
	case KindUnconvertible:
		w.reg.DefineUnconvertible(id, w.opts.Modules.PathTo(v.(*pyobj.Unconvertible).Object))
	case KindTuple:
		err = w.registerTuple(id, v.(*pyobj.Tuple))
	case KindList:
		err = w.registerList(id, v.(*pyobj.List))
	case KindDict:
		err = w.registerDict(id, v.(*pyobj.Dict))
	case KindPrimitive:
		w.reg.DefinePrimitive(id, primitive(v))
	case KindFunction:
		err = w.registerFunction(id, v.(*pyobj.Function))
	case KindClass:
		err = w.registerClass(id, v.(*pyobj.Class))
	case KindBoundMethod:
		err = w.registerBoundMethod(id, v.(*pyobj.BoundMethod))
	case KindClassInstance:
		kind, err = w.registerClassInstance(id, v)
	}
	return kind, err
}

// primitive converts a value accepted by pyobj.IsPrimitive.
func primitive(v pyobj.Value) registry.Primitive {
	switch x := v.(type) {
	case *pyobj.Bool:
		return registry.Primitive{Kind: registry.PrimBool, Bool: x.V}
	case *pyobj.Int:
		return registry.Primitive{Kind: registry.PrimInt, Int: x.V}
	case *pyobj.Float:
		return registry.Primitive{Kind: registry.PrimFloat, Float: x.V}
	case *pyobj.Str:
		return registry.Primitive{Kind: registry.PrimStr, Str: x.V}
	}
	return registry.Primitive{Kind: registry.PrimNone}
}

// stackFrames lists a traceback's frames innermost first.
func stackFrames(tb *pyobj.Traceback) []registry.Frame {
	out := make([]registry.Frame, 0, len(tb.Frames))
	for i := len(tb.Frames) - 1; i >= 0; i-- {
		f := tb.Frames[i]
		out = append(out, registry.Frame{Path: f.Filename, Line: f.Line})
	}
	return out
}

func (w *Walker) walkAll(items []pyobj.Value) ([]registry.ID, error) {
	ids := make([]registry.ID, 0, len(items))
	for _, item := range items {
		id, err := w.Walk(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *Walker) registerTuple(id registry.ID, t *pyobj.Tuple) error {
	ids, err := w.walkAll(t.Items)
	if err != nil {
		return err
	}
	w.reg.DefineTuple(id, ids)
	return nil
}

// registerList defines a list of primitives inline; any other list gets
// one node per element.
func (w *Walker) registerList(id registry.ID, l *pyobj.List) error {
	allPrimitive := true
	for _, item := range l.Items {
		if !pyobj.IsPrimitive(item) {
			allPrimitive = false
			break
		}
	}
	if allPrimitive {
		prims := make([]registry.Primitive, len(l.Items))
		for i, item := range l.Items {
			prims[i] = primitive(item)
		}
		w.reg.DefinePrimitiveList(id, prims)
		return nil
	}

	ids, err := w.walkAll(l.Items)
	if err != nil {
		return err
	}
	w.reg.DefineList(id, ids)
	return nil
}

func (w *Walker) registerDict(id registry.ID, d *pyobj.Dict) error {
	keys := make([]registry.ID, 0, d.Len())
	values := make([]registry.ID, 0, d.Len())
	var err error
	d.Items(func(k, v pyobj.Value) {
		if err != nil {
			return
		}
		var kid, vid registry.ID
		if kid, err = w.Walk(k); err != nil {
			return
		}
		if vid, err = w.Walk(v); err != nil {
			return
		}
		keys = append(keys, kid)
		values = append(values, vid)
	})
	if err != nil {
		return err
	}
	w.reg.DefineDict(id, keys, values)
	return nil
}

func (w *Walker) registerBuiltinException(id registry.ID, e *pyobj.Exception) error {
	args := e.Args
	if args == nil {
		args = pyobj.NewTuple()
	}
	argsID, err := w.Walk(args)
	if err != nil {
		return err
	}
	name, _ := pyobj.SingletonName(e.Class)
	w.reg.DefineBuiltinException(id, name, argsID)
	return nil
}

func (w *Walker) registerBoundMethod(id registry.ID, m *pyobj.BoundMethod) error {
	selfID, err := w.Walk(m.Self)
	if err != nil {
		return err
	}
	w.reg.DefineInstanceMethod(id, selfID, m.Name)
	return nil
}

// registerClassInstance walks the instance's class, then its data
// members. An instance of an unconvertible class is itself unconvertible.
func (w *Walker) registerClassInstance(id registry.ID, v pyobj.Value) (Kind, error) {
	cls := pyobj.ClassOf(v)
	classID, err := w.Walk(cls)
	if err != nil {
		return 0, err
	}
	if w.reg.IsUnconvertible(classID) {
		w.reg.DefineUnconvertible(id, w.opts.Modules.PathTo(v))
		return KindUnconvertible, nil
	}

	names, err := w.dataMembers(v, cls)
	if err != nil {
		return 0, err
	}
	members := make([]registry.Member, 0, len(names))
	for _, name := range names {
		attr, ok := pyobj.GetAttr(v, name)
		if !ok {
			return 0, internalf("%s has no attribute %q", pyobj.Describe(v), name)
		}
		mid, err := w.Walk(attr)
		if err != nil {
			return 0, err
		}
		members = append(members, registry.Member{Name: name, ID: mid})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	w.reg.DefineClassInstance(id, classID, members)
	return KindClassInstance, nil
}

// dataMembers returns the names of v's data members: its attribute
// dictionary when it has one, else the self attributes __init__ assigns.
func (w *Walker) dataMembers(v pyobj.Value, cls *pyobj.Class) ([]string, error) {
	switch x := v.(type) {
	case *pyobj.Instance:
		if x.Dict != nil {
			return x.Dict.Names(), nil
		}
	case *pyobj.Exception:
		return x.Attrs.Names(), nil
	default:
		return nil, nil
	}

	src, err := w.opts.Files.SourceOf(cls)
	if err != nil {
		return nil, err
	}
	m, err := w.parse(src.Filename, src.Text)
	if err != nil {
		return nil, err
	}
	def, err := m.ClassAt(src.Line)
	if err != nil {
		return nil, err
	}
	return pyast.DataMembersSetInInit(def), nil
}
