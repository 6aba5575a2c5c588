package walker

import (
	"errors"
	"sort"

	"github.com/chazu/pywalk/freevar"
	"github.com/chazu/pywalk/pyast"
	"github.com/chazu/pywalk/pyobj"
	"github.com/chazu/pywalk/registry"
)

func (w *Walker) registerFunction(id registry.ID, f *pyobj.Function) error {
	def, err := w.definition(f, f.Name, pyast.FunctionKind, f.BoundVariables())
	if err != nil {
		return err
	}
	w.reg.DefineFunction(id, def)
	return nil
}

// registerClass defines a class after its free variables, which include
// the base class expressions, have been walked.
func (w *Walker) registerClass(id registry.ID, c *pyobj.Class) error {
	def, err := w.definition(c, c.Name, pyast.ClassKind, c.BoundVariables())
	if err != nil {
		return err
	}
	bases := make([]registry.ID, 0, len(c.Bases))
	for _, b := range c.Bases {
		bid, ok := w.ids[b]
		if !ok {
			return internalf("base %s of class %s was not walked", b.Name, c.Name)
		}
		bases = append(bases, bid)
	}
	w.reg.DefineClass(id, def, bases)
	return nil
}

// definition locates the source of a function or class, resolves its
// free variables against bindings and walks everything they name.
func (w *Walker) definition(v pyobj.Value, name string, kind pyast.Kind, bindings *pyobj.Namespace) (registry.Definition, error) {
	if name == w.opts.ReservedWord {
		return registry.Definition{}, &ReservedWordError{Name: name}
	}

	src, err := w.opts.Files.SourceOf(v)
	if err != nil {
		return registry.Definition{}, err
	}
	m, err := w.parse(src.Filename, src.Text)
	if err != nil {
		return registry.Definition{}, err
	}
	var d *pyast.Def
	if kind == pyast.ClassKind {
		d, err = m.ClassAt(src.Line)
	} else {
		d, err = m.FunctionAt(src.Line)
	}
	if err != nil {
		return registry.Definition{}, err
	}

	chains := pyast.FreeChains(d, w.chainOptions())
	return w.bind(src.Filename, src.Line, chains, bindings)
}

// registerWithBlock treats the block body as a zero-argument function.
// Names the block assigns are also walked when the frame captured a value
// for them.
func (w *Walker) registerWithBlock(id registry.ID, wb *pyobj.WithBlock) error {
	f, err := w.opts.Files.File(wb.SourceFileName)
	if err != nil {
		return err
	}
	m, err := w.parse(f.Name, []byte(f.Text))
	if err != nil {
		return err
	}
	d, err := m.WithAt(wb.LineNumber)
	if err != nil {
		return err
	}
	if lines := pyast.ReturnLines(d); len(lines) > 0 {
		return &BadWithBlockError{Line: lines[0], Statement: "return statement"}
	}
	if lines := pyast.YieldLines(d); len(lines) > 0 {
		return &BadWithBlockError{Line: lines[0], Statement: "yield expression"}
	}

	opts := w.chainOptions()
	chains := pyast.FreeChains(d, opts)
	for _, b := range pyast.BoundNames(d, opts) {
		name := b.Root()
		if !wb.UnboundLocals[name] && wb.BoundVariables.Has(name) {
			chains = append(chains, b)
		}
	}
	sort.SliceStable(chains, func(i, j int) bool {
		a, b := chains[i].Pos, chains[j].Pos
		return a.Line < b.Line || (a.Line == b.Line && a.Col < b.Col)
	})

	def, err := w.bind(f.Name, wb.LineNumber, chains, wb.BoundVariables)
	if err != nil {
		return err
	}
	w.reg.DefineWithBlock(id, def)
	return nil
}

func (w *Walker) chainOptions() pyast.Options {
	return pyast.Options{ExcludeCall: w.opts.PureMappingMarker}
}

// bind resolves chains, walks each resolved value in chain order and then
// the source file. An unresolved free variable gains one trace frame for
// every definition it passes through on the way out.
func (w *Walker) bind(filename string, line int, chains []pyast.Chain, bindings *pyobj.Namespace) (registry.Definition, error) {
	resolutions, err := w.resolver.Resolve(chains, bindings)
	if err != nil {
		var u *freevar.UnresolvedFreeVariableError
		if errors.As(err, &u) {
			unresolvedFreeVariables.Inc()
			if !u.HasTrace() {
				u.AddTrace(filename, u.Pos)
			}
		}
		return registry.Definition{}, err
	}

	def := registry.Definition{Line: line}
	for _, r := range resolutions {
		rid, err := w.Walk(r.Value)
		if err != nil {
			var u *freevar.UnresolvedFreeVariableError
			if errors.As(err, &u) {
				u.AddTrace(filename, r.Subchain.Pos)
			}
			return registry.Definition{}, err
		}
		def.FreeVars = append(def.FreeVars, registry.Binding{Chain: r.Subchain.String(), ID: rid})
	}

	f, err := w.opts.Files.File(filename)
	if err != nil {
		return registry.Definition{}, err
	}
	if def.File, err = w.fileNode(f); err != nil {
		return registry.Definition{}, err
	}
	log.Debugf("bound %d free variables of %s:%d", len(def.FreeVars), filename, line)
	return def, nil
}
