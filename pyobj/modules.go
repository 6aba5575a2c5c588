package pyobj

import "sort"

// ModuleTable is the set of loaded modules, keyed by dotted name.
type ModuleTable struct {
	modules map[string]*Module
	index   map[Value][]string
}

// NewModuleTable returns a table holding the builtin module.
func NewModuleTable() *ModuleTable {
	t := &ModuleTable{modules: make(map[string]*Module)}
	t.Add(Builtins)
	return t
}

// Add registers m under its name. The path index is rebuilt lazily.
func (t *ModuleTable) Add(m *Module) {
	t.modules[m.Name] = m
	t.index = nil
}

// Lookup returns the module registered under name.
func (t *ModuleTable) Lookup(name string) (*Module, bool) {
	m, ok := t.modules[name]
	return m, ok
}

// PathTo returns a best-effort [module, name] path for a module-level
// object, or nil. Modules themselves map to [name].
func (t *ModuleTable) PathTo(v Value) []string {
	if t == nil || v == nil {
		return nil
	}
	if t.index == nil {
		t.buildIndex()
	}
	path, ok := t.index[v]
	if !ok {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}

// Primitives are shared by value in the model, so they are never indexed.
func (t *ModuleTable) buildIndex() {
	t.index = make(map[Value][]string)
	names := make([]string, 0, len(t.modules))
	for name := range t.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.index[t.modules[name]] = []string{name}
	}
	for _, name := range names {
		m := t.modules[name]
		for _, attr := range m.Attrs.Names() {
			v, _ := m.Attrs.Get(attr)
			if IsPrimitive(v) {
				continue
			}
			if _, seen := t.index[v]; seen {
				continue
			}
			t.index[v] = []string{name, attr}
		}
	}
}
