package pyobj

import "testing"

func TestDictKeysCompareByValueForPrimitives(t *testing.T) {
	d := NewDict()
	d.Set(NewStr("cats"), NewFloat(2.3))
	d.Set(NewInt(100), NewTuple(NewStr("dogs"), NewDict()))
	d.Set(NewStr("cats"), NewFloat(4.5))

	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	v, ok := d.Get(NewStr("cats"))
	if !ok {
		t.Fatal("Get(cats) missing")
	}
	if f := v.(*Float).V; f != 4.5 {
		t.Errorf("Get(cats) = %v, want 4.5", f)
	}

	var keys []string
	d.Items(func(k, _ Value) { keys = append(keys, Describe(k)) })
	if len(keys) != 2 || keys[0] != `"cats"` || keys[1] != "100" {
		t.Errorf("Items order = %v, want [\"cats\" 100]", keys)
	}
}

func TestDictObjectKeysCompareByIdentity(t *testing.T) {
	a := NewTuple()
	b := NewTuple()
	d := NewDict()
	d.Set(a, NewInt(1))
	d.Set(b, NewInt(2))
	if d.Len() != 2 {
		t.Errorf("Len = %d, want 2", d.Len())
	}
}

func TestNamespaceKeepsInsertionOrder(t *testing.T) {
	ns := NewNamespace()
	ns.Set("b", None)
	ns.Set("a", None)
	ns.Set("b", NewInt(1))

	names := ns.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names = %v, want [b a]", names)
	}

	var nilNS *Namespace
	if nilNS.Len() != 0 || nilNS.Has("x") || nilNS.Names() != nil {
		t.Error("nil namespace should behave as empty")
	}
}

func TestFunctionBoundVariablesClosureShadowsGlobals(t *testing.T) {
	globals := NewNamespace()
	globals.Set("x", NewInt(1))
	globals.Set("y", NewInt(2))
	closure := NewNamespace()
	closure.Set("x", NewInt(3))

	f := &Function{Name: "f", Globals: globals, Closure: closure}
	bound := f.BoundVariables()
	x, _ := bound.Get("x")
	if x.(*Int).V != 3 {
		t.Errorf("x = %v, want 3", x)
	}
	if !bound.Has("y") {
		t.Error("y should be visible through globals")
	}
	if globals.Len() != 2 {
		t.Errorf("globals mutated: Len = %d", globals.Len())
	}
}

func TestClassLookupSearchesBases(t *testing.T) {
	base := NewClass("Base", "m")
	base.Attrs.Set("f", NewInt(1))
	child := NewClass("Child", "m", base)

	if v, ok := child.Lookup("f"); !ok || v.(*Int).V != 1 {
		t.Errorf("Lookup(f) = %v, %v; want 1, true", v, ok)
	}
	if !child.IsSubclassOf(base) {
		t.Error("Child should be a subclass of Base")
	}
	if base.IsSubclassOf(child) {
		t.Error("Base should not be a subclass of Child")
	}
}

func TestGetAttrInstanceDictThenClass(t *testing.T) {
	c := NewClass("C", "m")
	c.Attrs.Set("shared", NewStr("class"))
	inst := NewInstance(c)
	inst.Dict.Set("own", NewStr("instance"))

	if v, ok := GetAttr(inst, "own"); !ok || v.(*Str).V != "instance" {
		t.Errorf("GetAttr(own) = %v, %v", v, ok)
	}
	if v, ok := GetAttr(inst, "shared"); !ok || v.(*Str).V != "class" {
		t.Errorf("GetAttr(shared) = %v, %v", v, ok)
	}
	if _, ok := GetAttr(inst, "missing"); ok {
		t.Error("GetAttr(missing) should fail")
	}

	slotted := NewSlotsInstance(c)
	slotted.Slots.Set("s", NewInt(7))
	if v, ok := GetAttr(slotted, "s"); !ok || v.(*Int).V != 7 {
		t.Errorf("GetAttr(slot) = %v, %v", v, ok)
	}
}

func TestClassOf(t *testing.T) {
	c := NewClass("C", "m")
	if ClassOf(NewInstance(c)) != c {
		t.Error("ClassOf(instance) should be its class")
	}
	if ClassOf(NewModule("m", "m.py")) != ModuleClass() {
		t.Error("ClassOf(module) should be the module class")
	}
	if cls := ClassOf(&BuiltinFunction{Name: "sqrt", Module: "math"}); cls == nil || !cls.Builtin {
		t.Errorf("ClassOf(builtin function) = %v, want a builtin class", cls)
	}
	if ClassOf(NewInt(1)) != nil {
		t.Error("ClassOf(int) should be nil")
	}
}

func TestBuiltinsAreNamedSingletons(t *testing.T) {
	for _, name := range []string{"len", "int", "ValueError", "isinstance", "staticmethod"} {
		v, ok := Builtin(name)
		if !ok {
			t.Errorf("Builtin(%q) missing", name)
			continue
		}
		got, ok := SingletonName(v)
		if !ok || got != name {
			t.Errorf("SingletonName(%s) = %q, %v; want %q", name, got, ok, name)
		}
	}
	if _, ok := SingletonName(Connect); ok {
		t.Error("Connect must not be a named singleton")
	}
	if _, ok := SingletonName(None); ok {
		t.Error("None must not be a named singleton")
	}

	ve := BuiltinClass("ValueError")
	if !ve.IsSubclassOf(BuiltinClass("Exception")) {
		t.Error("ValueError should derive from Exception")
	}

	all := NamedSingletons()
	for i := 1; i < len(all); i++ {
		a, _ := SingletonName(all[i-1])
		b, _ := SingletonName(all[i])
		if a > b {
			t.Fatalf("NamedSingletons not sorted: %q before %q", a, b)
		}
	}
}

func TestModuleTablePathTo(t *testing.T) {
	mod := NewModule("geometry", "geometry.py")
	f := &Function{Name: "area"}
	mod.Attrs.Set("area", f)
	mod.Attrs.Set("PI", NewFloat(3.14))

	table := NewModuleTable()
	table.Add(mod)

	if p := table.PathTo(f); len(p) != 2 || p[0] != "geometry" || p[1] != "area" {
		t.Errorf("PathTo(area) = %v, want [geometry area]", p)
	}
	if p := table.PathTo(mod); len(p) != 1 || p[0] != "geometry" {
		t.Errorf("PathTo(module) = %v, want [geometry]", p)
	}
	pi, _ := mod.Attrs.Get("PI")
	if p := table.PathTo(pi); p != nil {
		t.Errorf("PathTo(primitive) = %v, want nil", p)
	}
	if p := table.PathTo(&Function{Name: "loose"}); p != nil {
		t.Errorf("PathTo(unindexed) = %v, want nil", p)
	}

	var nilTable *ModuleTable
	if nilTable.PathTo(f) != nil {
		t.Error("nil table should return nil path")
	}
}

func TestFutureResolvesOnce(t *testing.T) {
	calls := 0
	want := NewInt(5)
	f := NewFuture(func() Value {
		calls++
		return want
	})
	if f.Result() != want || f.Result() != want {
		t.Error("Result should return the resolved value")
	}
	if calls != 1 {
		t.Errorf("resolve called %d times, want 1", calls)
	}
}

func TestRange(t *testing.T) {
	l := Range(100)
	if len(l.Items) != 100 {
		t.Fatalf("len = %d, want 100", len(l.Items))
	}
	if l.Items[99].(*Int).V != 99 {
		t.Errorf("Items[99] = %v, want 99", l.Items[99])
	}
}
