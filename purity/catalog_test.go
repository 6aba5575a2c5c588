package purity

import (
	"errors"
	"testing"

	"github.com/chazu/pywalk/pyobj"
)

func TestInstanceMappingIsByIdentity(t *testing.T) {
	c := NewCatalog()
	a := pyobj.NewList()
	b := pyobj.NewList()
	repl := pyobj.NewTuple()
	c.MapInstance(a, repl)

	if !c.CanMap(a) || c.CanMap(b) {
		t.Errorf("CanMap: a=%v b=%v, want true false", c.CanMap(a), c.CanMap(b))
	}
	got, err := c.MapToPure(a)
	if err != nil || got != repl {
		t.Errorf("MapToPure(a) = %v, %v", got, err)
	}
	if _, err := c.MapToPure(b); !errors.Is(err, ErrNoMapping) {
		t.Errorf("MapToPure(b): got %v, want ErrNoMapping", err)
	}
}

func TestTypeMappingUsesExactClass(t *testing.T) {
	base := pyobj.NewClass("Handle", "io")
	derived := pyobj.NewClass("FileHandle", "io", base)
	c := NewCatalog()
	c.MapType(base, func(v pyobj.Value) (pyobj.Value, error) {
		return pyobj.NewStr("pure handle"), nil
	})

	if !c.CanMap(pyobj.NewInstance(base)) {
		t.Error("instance of mapped class should be mappable")
	}
	if c.CanMap(pyobj.NewInstance(derived)) {
		t.Error("instance of subclass should not be mappable")
	}
}

func TestMapperErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	c := NewCatalog()
	v := pyobj.NewDict()
	c.MapInstanceFunc(v, func(pyobj.Value) (pyobj.Value, error) { return nil, boom })
	if _, err := c.MapToPure(v); !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped boom", err)
	}
}

func TestOpaqueModules(t *testing.T) {
	c := NewCatalog()
	c.MarkOpaque("numpy", "pandas")
	if !c.IsOpaqueModule(pyobj.NewModule("numpy", "")) {
		t.Error("numpy should be opaque")
	}
	if c.IsOpaqueModule(pyobj.NewModule("math", "")) {
		t.Error("math should not be opaque")
	}
	if got := c.OpaqueModules(); len(got) != 2 || got[0] != "numpy" {
		t.Errorf("OpaqueModules = %v", got)
	}
}
