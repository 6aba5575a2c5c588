package walker

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/chazu/pywalk/freevar"
	"github.com/chazu/pywalk/inspect"
	"github.com/chazu/pywalk/purity"
	"github.com/chazu/pywalk/pyobj"
	"github.com/chazu/pywalk/registry"
)

const appSource = `import math

SCALE = 3

def helper(x):
    return x * SCALE

def outer(y):
    def inner(z):
        return helper(z) + y
    return inner

class Base(object):
    def describe(self):
        return "base"

class Derived(Base):
    def __init__(self, v):
        self.v = v

class Point(object):
    __slots__ = ("x", "y")
    def __init__(self, x, y):
        self.x = x
        self.y = y

def uses_missing():
    return nowhere.attr.leaf + 1

def calls_missing():
    return uses_missing()

def uses_math(x):
    return math.sqrt(x)

def mapped():
    return pureMapping(Hidden)

with ctx:
    total = helper(4) + SCALE

with ctx:
    return 3

with ctx:
    y = yield 5
`

func lineOf(t *testing.T, needle string) int {
	t.Helper()
	for i, line := range strings.Split(appSource, "\n") {
		if strings.Contains(line, needle) {
			return i + 1
		}
	}
	t.Fatalf("%q not in source", needle)
	return 0
}

// app is the live image of appSource as a module would hold it after
// import.
type app struct {
	files   *inspect.Files
	modules *pyobj.ModuleTable
	mod     *pyobj.Module
	math    *pyobj.Module
	sqrt    *pyobj.BuiltinFunction
	helper  *pyobj.Function
	outer   *pyobj.Function
	base    *pyobj.Class
	derived *pyobj.Class
	point   *pyobj.Class
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{files: inspect.NewFiles(), modules: pyobj.NewModuleTable()}
	a.files.ReadFile = nil
	a.files.Register("app.py", appSource)

	a.math = pyobj.NewModule("math", "")
	a.sqrt = &pyobj.BuiltinFunction{Name: "sqrt", Module: "math"}
	a.math.Attrs.Set("sqrt", a.sqrt)
	a.modules.Add(a.math)

	a.mod = pyobj.NewModule("app", "app.py")
	a.modules.Add(a.mod)
	g := a.mod.Attrs
	code := func(needle string) *pyobj.Code {
		return &pyobj.Code{Filename: "app.py", FirstLine: lineOf(t, needle)}
	}
	fn := func(name string) *pyobj.Function {
		f := &pyobj.Function{Name: name, Module: "app", Globals: g, Code: code("def " + name + "(")}
		g.Set(name, f)
		return f
	}
	class := func(name string, bases ...*pyobj.Class) *pyobj.Class {
		c := pyobj.NewClass(name, "app", bases...)
		c.Globals = g
		c.Code = code("class " + name + "(")
		g.Set(name, c)
		return c
	}

	g.Set("math", a.math)
	g.Set("SCALE", pyobj.NewInt(3))
	a.helper = fn("helper")
	a.outer = fn("outer")
	a.base = class("Base", pyobj.BuiltinClass("object"))
	a.derived = class("Derived", a.base)
	a.point = class("Point", pyobj.BuiltinClass("object"))
	fn("uses_missing")
	fn("calls_missing")
	fn("uses_math")
	fn("mapped")
	return a
}

func (a *app) fn(name string) *pyobj.Function {
	v, _ := a.mod.Attrs.Get(name)
	return v.(*pyobj.Function)
}

func (a *app) walker(t *testing.T, reg registry.Registry, catalog Catalog) *Walker {
	t.Helper()
	w, err := New(reg, catalog, Options{Files: a.files, Modules: a.modules})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func walk(t *testing.T, w *Walker, v pyobj.Value) registry.ID {
	t.Helper()
	id, err := w.Walk(v)
	if err != nil {
		t.Fatalf("Walk(%s): %v", pyobj.Describe(v), err)
	}
	return id
}

func node(t *testing.T, mem *registry.Memory, id registry.ID) *registry.Node {
	t.Helper()
	n, ok := mem.Node(id)
	if !ok {
		t.Fatalf("node %d not defined", id)
	}
	return n
}

func binding(t *testing.T, n *registry.Node, chain string) registry.ID {
	t.Helper()
	if n.Def == nil {
		t.Fatalf("node %d has no definition: %s", n.ID, spew.Sdump(n))
	}
	id, ok := n.Def.Lookup(chain)
	if !ok {
		t.Fatalf("node %d does not bind %q: %s", n.ID, chain, spew.Sdump(n.Def))
	}
	return id
}

// ---------------------------------------------------------------------------
// Data values
// ---------------------------------------------------------------------------

func TestSharedObjectRegisteredOnce(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	shared := pyobj.NewTuple(pyobj.NewInt(1), pyobj.NewStr("x"))
	root := pyobj.NewList(shared, shared)

	id := walk(t, w, root)
	n := node(t, mem, id)
	if n.Kind != registry.KindList {
		t.Fatalf("root kind = %s, want list", n.Kind)
	}
	if len(n.Items) != 2 || n.Items[0] != n.Items[1] {
		t.Errorf("items = %v, want two equal ids", n.Items)
	}
	if again := walk(t, w, shared); again != n.Items[0] {
		t.Errorf("second walk of shared = %d, want %d", again, n.Items[0])
	}
	if mem.Len() != 4 {
		t.Errorf("registered %d nodes, want 4", mem.Len())
	}
}

func TestCycleTerminates(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	l := pyobj.NewList(pyobj.NewInt(1))
	l.Items = append(l.Items, l)

	id := walk(t, w, l)
	n := node(t, mem, id)
	if len(n.Items) != 2 || n.Items[1] != id {
		t.Errorf("items = %v, want second item %d", n.Items, id)
	}
}

func TestPrimitiveListRegisteredInline(t *testing.T) {
	tests := []struct {
		name string
		list *pyobj.List
		want int
	}{
		{"mixed", pyobj.NewList(pyobj.NewInt(1), pyobj.NewStr("a"), pyobj.None, pyobj.NewFloat(2.5), pyobj.NewBool(true)), 5},
		{"empty", pyobj.NewList(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := registry.NewMemory()
			w, _ := New(mem, nil, Options{})
			id := walk(t, w, tt.list)
			n := node(t, mem, id)
			if n.Kind != registry.KindPrimitiveList {
				t.Fatalf("kind = %s, want primitive-list", n.Kind)
			}
			if len(n.Primitives) != tt.want {
				t.Errorf("len = %d, want %d", len(n.Primitives), tt.want)
			}
			if mem.Len() != 1 {
				t.Errorf("registered %d nodes, want 1", mem.Len())
			}
		})
	}
}

func TestListWithContainerGetsNodePerItem(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	id := walk(t, w, pyobj.NewList(pyobj.NewInt(1), pyobj.NewTuple()))
	if n := node(t, mem, id); n.Kind != registry.KindList || len(n.Items) != 2 {
		t.Errorf("node = %s", spew.Sdump(n))
	}
}

func TestRangeRoundTrip(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	id := walk(t, w, pyobj.Range(100))

	got, err := Materialize(mem, id)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	l, ok := got.(*pyobj.List)
	if !ok || len(l.Items) != 100 {
		t.Fatalf("got %s, want a list of 100", pyobj.Describe(got))
	}
	for i, item := range l.Items {
		if n, ok := item.(*pyobj.Int); !ok || n.V != int64(i) {
			t.Errorf("item %d = %v", i, item)
		}
	}
}

func TestDictRoundTripKeepsSharing(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	shared := pyobj.NewTuple(pyobj.NewInt(7))
	d := pyobj.NewDict()
	d.Set(pyobj.NewStr("a"), shared)
	d.Set(pyobj.NewStr("b"), shared)
	d.Set(pyobj.NewInt(3), pyobj.NewException(pyobj.BuiltinClass("KeyError"), pyobj.NewStr("k")))

	id := walk(t, w, d)
	n := node(t, mem, id)
	if len(n.Keys) != 3 || len(n.Values) != 3 {
		t.Fatalf("dict node = %s", spew.Sdump(n))
	}
	if n.Keys[0] >= n.Values[0] || n.Values[0] >= n.Keys[1] {
		t.Errorf("keys %v and values %v were not walked pairwise", n.Keys, n.Values)
	}

	got, err := Materialize(mem, id)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	out := got.(*pyobj.Dict)
	a, _ := out.Get(pyobj.NewStr("a"))
	b, _ := out.Get(pyobj.NewStr("b"))
	if a == nil || a != b {
		t.Errorf("values of a and b = %v, %v, want one shared tuple", a, b)
	}
	e, _ := out.Get(pyobj.NewInt(3))
	if exc, ok := e.(*pyobj.Exception); !ok || exc.Class != pyobj.BuiltinClass("KeyError") || len(exc.Args.Items) != 1 {
		t.Errorf("exception = %s", spew.Sdump(e))
	}
}

func TestMaterializeRejectsCode(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)
	id := walk(t, w, a.helper)
	if _, err := Materialize(mem, id); !errors.Is(err, ErrNotMaterializable) {
		t.Errorf("Materialize(function) error = %v, want ErrNotMaterializable", err)
	}
}

func TestMaterializeChecksExceptionClass(t *testing.T) {
	mem := registry.NewMemory()
	args := mem.Allocate()
	mem.DefineTuple(args, nil)
	bad := mem.Allocate()
	mem.DefineBuiltinException(bad, "int", args)
	if _, err := Materialize(mem, bad); err == nil {
		t.Error("an int node posing as an exception should not materialize")
	}

	good := mem.Allocate()
	mem.DefineBuiltinException(good, "KeyError", args)
	v, err := Materialize(mem, good)
	if err != nil {
		t.Fatalf("Materialize(KeyError): %v", err)
	}
	if e, ok := v.(*pyobj.Exception); !ok || e.Class != pyobj.BuiltinClass("KeyError") {
		t.Errorf("materialized %v, want a KeyError", v)
	}
}

func TestTerminalKinds(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	tb := &pyobj.Traceback{Frames: []pyobj.Frame{{Filename: "outer.py", Line: 1}, {Filename: "inner.py", Line: 9}}}

	tests := []struct {
		name  string
		value pyobj.Value
		kind  registry.Kind
		check func(t *testing.T, n *registry.Node)
	}{
		{"remote handle", &pyobj.RemoteHandle{ComputedValueArg: "handle-7"}, registry.KindRemoteHandle, func(t *testing.T, n *registry.Node) {
			if n.Handle != "handle-7" {
				t.Errorf("handle = %v", n.Handle)
			}
		}},
		{"packed array", &pyobj.PackedArray{DType: "<i8", Data: []byte{1, 0, 0, 0, 0, 0, 0, 0}}, registry.KindPackedArray, func(t *testing.T, n *registry.Node) {
			if n.DType != "<i8" || len(n.Data) != 8 {
				t.Errorf("packed array = %s %v", n.DType, n.Data)
			}
		}},
		{"named singleton", pyobj.BuiltinClass("int"), registry.KindNamedSingleton, func(t *testing.T, n *registry.Node) {
			if n.Name != "int" {
				t.Errorf("name = %q", n.Name)
			}
		}},
		{"builtin function", mustBuiltin(t, "len"), registry.KindNamedSingleton, nil},
		{"builtin exception", pyobj.NewException(pyobj.BuiltinClass("ValueError"), pyobj.NewStr("bad")), registry.KindBuiltinException, func(t *testing.T, n *registry.Node) {
			if n.Name != "ValueError" {
				t.Errorf("name = %q", n.Name)
			}
			if args := node(t, mem, n.Ref); args.Kind != registry.KindTuple || len(args.Items) != 1 {
				t.Errorf("args = %s", spew.Sdump(args))
			}
		}},
		{"stack trace", tb, registry.KindStackTrace, func(t *testing.T, n *registry.Node) {
			if len(n.Frames) != 2 || n.Frames[0].Path != "inner.py" {
				t.Errorf("frames = %v, want innermost first", n.Frames)
			}
		}},
		{"file", &pyobj.File{Name: "f.py", Text: "x = 1\n"}, registry.KindFile, func(t *testing.T, n *registry.Node) {
			if n.Path != "f.py" || n.Text != "x = 1\n" {
				t.Errorf("file = %q %q", n.Path, n.Text)
			}
		}},
		{"future", pyobj.ResolvedFuture(pyobj.NewStr("done")), registry.KindPrimitive, func(t *testing.T, n *registry.Node) {
			if n.Primitive.Str != "done" {
				t.Errorf("primitive = %v", n.Primitive)
			}
		}},
		{"connect", pyobj.Connect, registry.KindUnconvertible, func(t *testing.T, n *registry.Node) {
			if n.ModulePath != nil {
				t.Errorf("module path = %v, want none", n.ModulePath)
			}
		}},
		{"none", pyobj.None, registry.KindPrimitive, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := walk(t, w, tt.value)
			n := node(t, mem, id)
			if n.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", n.Kind, tt.kind)
			}
			if tt.check != nil {
				tt.check(t, n)
			}
		})
	}
}

func mustBuiltin(t *testing.T, name string) pyobj.Value {
	t.Helper()
	v, ok := pyobj.Builtin(name)
	if !ok {
		t.Fatalf("no builtin %q", name)
	}
	return v
}

func TestFutureTakesNoExtraNode(t *testing.T) {
	mem := registry.NewMemory()
	w, _ := New(mem, nil, Options{})
	f := pyobj.NewFuture(func() pyobj.Value { return pyobj.NewTuple(pyobj.NewInt(1)) })
	id := walk(t, w, f)
	if n := node(t, mem, id); n.Kind != registry.KindTuple {
		t.Errorf("future node kind = %s, want tuple", n.Kind)
	}
	if mem.Len() != 2 {
		t.Errorf("registered %d nodes, want 2", mem.Len())
	}
}

func TestClassify(t *testing.T) {
	user := pyobj.NewClass("MyError", "app", pyobj.BuiltinClass("Exception"))
	tests := []struct {
		value pyobj.Value
		want  Kind
	}{
		{pyobj.NewException(pyobj.BuiltinClass("TypeError")), KindBuiltinException},
		{pyobj.NewException(user), KindClassInstance},
		{pyobj.BuiltinClass("Exception"), KindNamedSingleton},
		{user, KindClass},
		{&pyobj.BuiltinFunction{Name: "sqrt", Module: "math"}, KindClassInstance},
		{pyobj.NewModule("m", ""), KindClassInstance},
		{&pyobj.BoundMethod{Self: pyobj.NewInt(1), Name: "bit_length"}, KindBoundMethod},
		{&pyobj.Unconvertible{Object: pyobj.None}, KindUnconvertible},
		{pyobj.NewFloat(1), KindPrimitive},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.value)
		if !ok || got != tt.want {
			t.Errorf("Classify(%s) = %s, %v, want %s", pyobj.Describe(tt.value), got, ok, tt.want)
		}
	}
	if _, ok := Classify(&stranger{}); ok {
		t.Error("Classify(stranger) should not match")
	}
}

// stranger is a value no registration routine accepts.
type stranger struct{}

func (*stranger) TypeName() string { return "stranger" }

func TestUnclassifiableIsInternalError(t *testing.T) {
	w, _ := New(registry.NewMemory(), nil, Options{})
	_, err := w.Walk(&stranger{})
	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Errorf("Walk(stranger) error = %v, want InternalError", err)
	}
}

// ---------------------------------------------------------------------------
// Functions and classes
// ---------------------------------------------------------------------------

func TestFunctionBindsFreeVariables(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	id := walk(t, w, a.helper)
	n := node(t, mem, id)
	if n.Kind != registry.KindFunction {
		t.Fatalf("kind = %s, want function", n.Kind)
	}
	if n.Def.Line != lineOf(t, "def helper(") {
		t.Errorf("line = %d", n.Def.Line)
	}
	scale := node(t, mem, binding(t, n, "SCALE"))
	if scale.Primitive == nil || scale.Primitive.Int != 3 {
		t.Errorf("SCALE = %s", spew.Sdump(scale))
	}
	file := node(t, mem, n.Def.File)
	if file.Kind != registry.KindFile || file.Path != "app.py" || file.Text != appSource {
		t.Errorf("file node = %s %q", file.Kind, file.Path)
	}
	if len(n.Def.FreeVars) != 1 {
		t.Errorf("free vars = %v, want only SCALE", n.Def.FreeVars)
	}
}

func TestClosureCapture(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	closure := pyobj.NewNamespace()
	closure.Set("y", pyobj.NewInt(2))
	inner := &pyobj.Function{
		Name:    "inner",
		Module:  "app",
		Globals: a.mod.Attrs,
		Closure: closure,
		Code:    &pyobj.Code{Filename: "app.py", FirstLine: lineOf(t, "def inner(")},
	}

	n := node(t, mem, walk(t, w, inner))
	y := node(t, mem, binding(t, n, "y"))
	if y.Primitive == nil || y.Primitive.Int != 2 {
		t.Errorf("y = %s", spew.Sdump(y))
	}
	helperID := binding(t, n, "helper")
	if got, _ := w.ID(a.helper); got != helperID {
		t.Errorf("helper bound to %d, want %d", helperID, got)
	}
	if node(t, mem, helperID).Kind != registry.KindFunction {
		t.Error("helper should be registered as a function")
	}
}

func TestFilesShareOneNode(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	f1 := node(t, mem, walk(t, w, a.helper))
	f2 := node(t, mem, walk(t, w, a.outer))
	if f1.Def.File != f2.Def.File {
		t.Errorf("file ids = %d, %d, want one node", f1.Def.File, f2.Def.File)
	}
}

func TestInheritanceLinksBases(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	derived := node(t, mem, walk(t, w, a.derived))
	if derived.Kind != registry.KindClass {
		t.Fatalf("kind = %s, want class", derived.Kind)
	}
	baseID, _ := w.ID(a.base)
	if len(derived.Bases) != 1 || derived.Bases[0] != baseID {
		t.Errorf("bases = %v, want [%d]", derived.Bases, baseID)
	}
	if binding(t, derived, "Base") != baseID {
		t.Error("Base free variable should be the base class node")
	}
	base := node(t, mem, baseID)
	object := node(t, mem, base.Bases[0])
	if object.Kind != registry.KindNamedSingleton || object.Name != "object" {
		t.Errorf("base of Base = %s", spew.Sdump(object))
	}
}

func TestMissingBaseIsInternalError(t *testing.T) {
	a := newApp(t)
	w := a.walker(t, registry.NewMemory(), nil)
	a.derived.Bases = append(a.derived.Bases, pyobj.NewClass("Hidden", "app"))

	_, err := w.Walk(a.derived)
	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Errorf("error = %v, want InternalError", err)
	}
}

func TestClassInstanceMembers(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	inst := pyobj.NewInstance(a.derived)
	inst.Dict.Set("v", pyobj.NewStr("value"))
	inst.Dict.Set("a", pyobj.NewInt(1))
	method := &pyobj.BoundMethod{Self: inst, Name: "describe"}

	m := node(t, mem, walk(t, w, method))
	if m.Kind != registry.KindInstanceMethod || m.Name != "describe" {
		t.Fatalf("method node = %s", spew.Sdump(m))
	}
	n := node(t, mem, m.Ref)
	if n.Kind != registry.KindClassInstance {
		t.Fatalf("kind = %s, want class-instance", n.Kind)
	}
	if classID, _ := w.ID(a.derived); n.Ref != classID {
		t.Errorf("class = %d, want %d", n.Ref, classID)
	}
	if len(n.Members) != 2 || n.Members[0].Name != "a" || n.Members[1].Name != "v" {
		t.Errorf("members = %v, want a and v in name order", n.Members)
	}
}

func TestSlotsInstanceUsesInitAssignments(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	p := pyobj.NewSlotsInstance(a.point)
	p.Slots.Set("x", pyobj.NewInt(1))
	p.Slots.Set("y", pyobj.NewInt(2))

	n := node(t, mem, walk(t, w, p))
	if len(n.Members) != 2 || n.Members[0].Name != "x" || n.Members[1].Name != "y" {
		t.Errorf("members = %v, want x and y", n.Members)
	}
}

func TestSourceUnavailableDegrades(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)
	lost := &pyobj.Function{Name: "lost", Module: "app", Globals: a.mod.Attrs, Code: &pyobj.Code{Filename: "gone.py", FirstLine: 1}}
	a.mod.Attrs.Set("lost", lost)
	a.modules.Add(a.mod)

	n := node(t, mem, walk(t, w, lost))
	if n.Kind != registry.KindUnconvertible {
		t.Fatalf("kind = %s, want unconvertible", n.Kind)
	}
	if strings.Join(n.ModulePath, ".") != "app.lost" {
		t.Errorf("module path = %v, want [app lost]", n.ModulePath)
	}
}

func TestWrongLineDegrades(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)
	f := &pyobj.Function{Name: "f", Module: "app", Globals: a.mod.Attrs, Code: &pyobj.Code{Filename: "app.py", FirstLine: lineOf(t, "SCALE = 3")}}

	if n := node(t, mem, walk(t, w, f)); n.Kind != registry.KindUnconvertible {
		t.Errorf("kind = %s, want unconvertible", n.Kind)
	}
}

func TestInstanceOfUnconvertibleClass(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)
	ghost := pyobj.NewClass("Ghost", "app")
	ghost.Code = &pyobj.Code{Filename: "gone.py", FirstLine: 3}
	inst := pyobj.NewInstance(ghost)
	inst.Dict.Set("payload", pyobj.NewList(pyobj.NewTuple()))

	n := node(t, mem, walk(t, w, inst))
	if n.Kind != registry.KindUnconvertible {
		t.Fatalf("kind = %s, want unconvertible", n.Kind)
	}
	if mem.Len() != 2 {
		t.Errorf("registered %d nodes, want class and instance only", mem.Len())
	}
}

func TestModuleAttributeChains(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	n := node(t, mem, walk(t, w, a.fn("uses_math")))
	sqrt := node(t, mem, binding(t, n, "math.sqrt"))
	if sqrt.Kind != registry.KindUnconvertible {
		t.Fatalf("math.sqrt kind = %s, want unconvertible", sqrt.Kind)
	}
	if strings.Join(sqrt.ModulePath, ".") != "math.sqrt" {
		t.Errorf("module path = %v", sqrt.ModulePath)
	}
}

func TestOpaqueModuleStopsChain(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	catalog := purity.NewCatalog()
	catalog.MarkOpaque("math")
	w := a.walker(t, mem, catalog)

	n := node(t, mem, walk(t, w, a.fn("uses_math")))
	if _, ok := n.Def.Lookup("math.sqrt"); ok {
		t.Error("chain should stop at the opaque module")
	}
	m := node(t, mem, binding(t, n, "math"))
	if m.Kind != registry.KindUnconvertible || strings.Join(m.ModulePath, ".") != "math" {
		t.Errorf("math = %s", spew.Sdump(m))
	}
}

func TestPureMappingCallIgnored(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)

	n := node(t, mem, walk(t, w, a.fn("mapped")))
	if len(n.Def.FreeVars) != 0 {
		t.Errorf("free vars = %v, want none", n.Def.FreeVars)
	}
}

func TestUnresolvedFreeVariableTrace(t *testing.T) {
	a := newApp(t)
	w := a.walker(t, registry.NewMemory(), nil)

	_, err := w.Walk(a.fn("calls_missing"))
	var u *freevar.UnresolvedFreeVariableError
	if !errors.As(err, &u) {
		t.Fatalf("error = %v, want UnresolvedFreeVariableError", err)
	}
	if u.Chain.String() != "nowhere.attr.leaf" {
		t.Errorf("chain = %q, want nowhere.attr.leaf", u.Chain)
	}
	want := []int{lineOf(t, "return nowhere"), lineOf(t, "return uses_missing()")}
	if len(u.Trace) != len(want) {
		t.Fatalf("trace = %v, want %d frames", u.Trace, len(want))
	}
	for i, line := range want {
		if u.Trace[i].Path != "app.py" || u.Trace[i].Line != line {
			t.Errorf("trace[%d] = %+v, want app.py:%d", i, u.Trace[i], line)
		}
	}
}

func TestReservedWord(t *testing.T) {
	w, _ := New(registry.NewMemory(), nil, Options{})
	f := &pyobj.Function{Name: "__inline_fora", Code: &pyobj.Code{Filename: "x.py", FirstLine: 1}}
	_, err := w.Walk(f)
	var rw *ReservedWordError
	if !errors.As(err, &rw) {
		t.Errorf("error = %v, want ReservedWordError", err)
	}
}

// ---------------------------------------------------------------------------
// With blocks
// ---------------------------------------------------------------------------

func withBlock(t *testing.T, a *app, needle string) *pyobj.WithBlock {
	bound := pyobj.NewNamespace()
	bound.Set("helper", a.helper)
	bound.Set("SCALE", pyobj.NewInt(3))
	bound.Set("total", pyobj.NewInt(7))
	return &pyobj.WithBlock{
		SourceFileName: "app.py",
		LineNumber:     lineOf(t, needle),
		BoundVariables: bound,
		UnboundLocals:  map[string]bool{},
	}
}

func TestWithBlockBindings(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)
	wb := withBlock(t, a, "total = helper(4)")
	wb.LineNumber--

	n := node(t, mem, walk(t, w, wb))
	if n.Kind != registry.KindWithBlock {
		t.Fatalf("kind = %s, want with-block", n.Kind)
	}
	for _, chain := range []string{"helper", "SCALE", "total"} {
		binding(t, n, chain)
	}
}

func TestWithBlockSkipsUnboundLocals(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	w := a.walker(t, mem, nil)
	wb := withBlock(t, a, "total = helper(4)")
	wb.LineNumber--
	wb.UnboundLocals["total"] = true

	n := node(t, mem, walk(t, w, wb))
	if _, ok := n.Def.Lookup("total"); ok {
		t.Error("total is an unbound local and should not be walked")
	}
}

func TestWithBlockRejectsReturnAndYield(t *testing.T) {
	tests := []struct {
		needle string
		stmt   string
	}{
		{"return 3", "return"},
		{"yield 5", "yield"},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			a := newApp(t)
			w := a.walker(t, registry.NewMemory(), nil)
			wb := withBlock(t, a, tt.needle)
			wb.LineNumber--

			_, err := w.Walk(wb)
			var bad *BadWithBlockError
			if !errors.As(err, &bad) {
				t.Fatalf("error = %v, want BadWithBlockError", err)
			}
			if bad.Line != lineOf(t, tt.needle) {
				t.Errorf("line = %d, want %d", bad.Line, lineOf(t, tt.needle))
			}
			if !strings.Contains(bad.Error(), tt.stmt) {
				t.Errorf("message %q does not name %s", bad.Error(), tt.stmt)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Substitution and construction
// ---------------------------------------------------------------------------

func TestSubstitution(t *testing.T) {
	a := newApp(t)
	mem := registry.NewMemory()
	native := pyobj.NewClass("NativeArray", "numpy")
	pure := pyobj.NewList(pyobj.NewInt(1), pyobj.NewInt(2))
	catalog := purity.NewCatalog()
	catalog.MapType(native, func(pyobj.Value) (pyobj.Value, error) { return pure, nil })
	w := a.walker(t, mem, catalog)

	arr := pyobj.NewInstance(native)
	root := pyobj.NewTuple(arr, arr, pure)
	n := node(t, mem, walk(t, w, root))
	if n.Items[0] != n.Items[1] || n.Items[1] != n.Items[2] {
		t.Errorf("items = %v, want one shared node", n.Items)
	}
	if node(t, mem, n.Items[0]).Kind != registry.KindPrimitiveList {
		t.Error("substituted value should register as the replacement")
	}
}

func TestMappedSingletonRejected(t *testing.T) {
	catalog := purity.NewCatalog()
	catalog.MapInstance(pyobj.BuiltinClass("int"), pyobj.NewInt(0))
	if _, err := New(registry.NewMemory(), catalog, Options{}); !errors.Is(err, ErrMappedSingleton) {
		t.Errorf("New error = %v, want ErrMappedSingleton", err)
	}
}

func TestWalkIsDeterministic(t *testing.T) {
	a := newApp(t)
	stream := func() []byte {
		reg := registry.NewBinary()
		w := a.walker(t, reg, nil)
		inst := pyobj.NewInstance(a.derived)
		inst.Dict.Set("v", pyobj.Range(5))
		walk(t, w, pyobj.NewTuple(a.outer, inst, a.fn("uses_math")))
		if err := reg.Err(); err != nil {
			t.Fatalf("binary registry: %v", err)
		}
		data, err := reg.Bytes()
		if err != nil {
			t.Fatalf("binary registry: %v", err)
		}
		return data
	}
	first, second := stream(), stream()
	if !bytes.Equal(first, second) {
		t.Error("two walkers produced different streams")
	}

	mem := registry.NewMemory()
	if err := registry.Decode(first, mem); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mem.Len() == 0 {
		t.Error("decoded stream is empty")
	}
}
