// Package purity holds the catalog of pure substitutions: objects and
// types the remote side cannot take as-is but can take in a replaced
// form, plus the modules whose attributes must not be walked into.
package purity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/pywalk/pyobj"
)

// ErrNoMapping is returned by MapToPure for values the catalog cannot map.
var ErrNoMapping = errors.New("no pure mapping")

// Mapper converts a value to its pure replacement.
type Mapper func(pyobj.Value) (pyobj.Value, error)

// Catalog is a set of instance mappings (by identity), type mappings (by
// exact class) and opaque module names. A catalog is built before a walk
// and only read during it.
type Catalog struct {
	instances map[pyobj.Value]Mapper
	types     map[*pyobj.Class]Mapper
	opaque    map[string]bool
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		instances: make(map[pyobj.Value]Mapper),
		types:     make(map[*pyobj.Class]Mapper),
		opaque:    make(map[string]bool),
	}
}

// MapInstance substitutes replacement for the object v.
func (c *Catalog) MapInstance(v, replacement pyobj.Value) {
	c.instances[v] = func(pyobj.Value) (pyobj.Value, error) { return replacement, nil }
}

// MapInstanceFunc substitutes fn(v) for the object v.
func (c *Catalog) MapInstanceFunc(v pyobj.Value, fn Mapper) {
	c.instances[v] = fn
}

// MapType substitutes fn(x) for every x whose class is exactly cls.
func (c *Catalog) MapType(cls *pyobj.Class, fn Mapper) {
	c.types[cls] = fn
}

// MarkOpaque records module names whose attributes are never walked.
func (c *Catalog) MarkOpaque(names ...string) {
	for _, name := range names {
		c.opaque[name] = true
	}
}

func (c *Catalog) mapper(v pyobj.Value) Mapper {
	if fn, ok := c.instances[v]; ok {
		return fn
	}
	if cls := pyobj.ClassOf(v); cls != nil {
		if fn, ok := c.types[cls]; ok {
			return fn
		}
	}
	return nil
}

// CanMap reports whether v has a pure replacement.
func (c *Catalog) CanMap(v pyobj.Value) bool {
	return c.mapper(v) != nil
}

// MapToPure returns the pure replacement for v.
func (c *Catalog) MapToPure(v pyobj.Value) (pyobj.Value, error) {
	fn := c.mapper(v)
	if fn == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoMapping, pyobj.Describe(v))
	}
	out, err := fn(v)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", pyobj.Describe(v), err)
	}
	return out, nil
}

// IsOpaqueModule reports whether m was marked opaque.
func (c *Catalog) IsOpaqueModule(m *pyobj.Module) bool {
	return c.IsOpaque(m.Name)
}

// IsOpaque reports whether the module named name is opaque.
func (c *Catalog) IsOpaque(name string) bool { return c.opaque[name] }

// OpaqueModules returns the opaque module names, sorted.
func (c *Catalog) OpaqueModules() []string {
	out := make([]string, 0, len(c.opaque))
	for name := range c.opaque {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
