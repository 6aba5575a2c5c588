// Package walker flattens a live object graph into a registry. Every
// object reachable from the root is registered exactly once, keyed by
// identity; functions, classes and with blocks are registered together
// with the values their free variables resolve to.
//
// A Walker is not safe for concurrent use and must not be shared between
// unrelated walks: its identity cache is what makes two references to one
// object share a node.
package walker

import (
	"context"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/pywalk/freevar"
	"github.com/chazu/pywalk/inspect"
	"github.com/chazu/pywalk/purity"
	"github.com/chazu/pywalk/pyast"
	"github.com/chazu/pywalk/pyobj"
	"github.com/chazu/pywalk/registry"
)

var log = commonlog.GetLogger("pywalk.walker")

// Catalog supplies pure substitutions and opaque modules. *purity.Catalog
// implements it.
type Catalog interface {
	CanMap(v pyobj.Value) bool
	MapToPure(v pyobj.Value) (pyobj.Value, error)
	IsOpaqueModule(m *pyobj.Module) bool
}

// Options configures a Walker. Zero fields take their DefaultOptions
// value.
type Options struct {
	// ReservedWord may not name a function or class.
	ReservedWord string
	// Exclude lists chain roots that are never resolved.
	Exclude []string
	// PureMappingMarker names the call whose arguments free-variable
	// extraction skips.
	PureMappingMarker string
	// Files supplies source text.
	Files *inspect.Files
	// Modules is used to name unconvertible objects. Nil names nothing.
	Modules *pyobj.ModuleTable
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		ReservedWord:      "__inline_fora",
		Exclude:           freevar.DefaultExclude,
		PureMappingMarker: "pureMapping",
		Files:             inspect.Default,
	}
}

// Walker registers live objects into a registry.
type Walker struct {
	reg      registry.Registry
	catalog  Catalog
	opts     Options
	resolver *freevar.Resolver

	ids    map[pyobj.Value]registry.ID
	subs   map[pyobj.Value]pyobj.Value
	files  map[string]registry.ID
	parsed map[string]*pyast.Module
}

// New returns a walker writing to reg. A nil catalog substitutes nothing.
func New(reg registry.Registry, catalog Catalog, opts Options) (*Walker, error) {
	if catalog == nil {
		catalog = purity.NewCatalog()
	}
	for _, s := range pyobj.NamedSingletons() {
		if catalog.CanMap(s) {
			name, _ := pyobj.SingletonName(s)
			return nil, fmt.Errorf("%w: %s", ErrMappedSingleton, name)
		}
	}

	def := DefaultOptions()
	if opts.ReservedWord == "" {
		opts.ReservedWord = def.ReservedWord
	}
	if opts.Exclude == nil {
		opts.Exclude = def.Exclude
	}
	if opts.PureMappingMarker == "" {
		opts.PureMappingMarker = def.PureMappingMarker
	}
	if opts.Files == nil {
		opts.Files = def.Files
	}

	w := &Walker{
		reg:      reg,
		catalog:  catalog,
		opts:     opts,
		resolver: freevar.NewResolver(opts.Exclude),
		ids:      make(map[pyobj.Value]registry.ID),
		subs:     make(map[pyobj.Value]pyobj.Value),
		files:    make(map[string]registry.ID),
		parsed:   make(map[string]*pyast.Module),
	}
	w.resolver.Opaque = catalog.IsOpaqueModule
	w.resolver.Substitute = func(v pyobj.Value) (pyobj.Value, bool) {
		sub, ok := w.subs[v]
		return sub, ok
	}
	return w, nil
}

// Close releases the parse trees the walker cached.
func (w *Walker) Close() {
	for name, m := range w.parsed {
		m.Close()
		delete(w.parsed, name)
	}
}

// Walk registers v and everything reachable from it, returning v's node
// id. Walking an object a second time returns the id it got the first
// time.
func (w *Walker) Walk(v pyobj.Value) (registry.ID, error) {
	if id, ok := w.ids[v]; ok {
		return id, nil
	}

	orig := v
	if sub, ok := w.subs[v]; ok {
		v = sub
	} else if w.catalog.CanMap(v) {
		pure, err := w.catalog.MapToPure(v)
		if err != nil {
			return 0, err
		}
		log.Debugf("substituted %s for %s", pyobj.Describe(pure), pyobj.Describe(v))
		w.subs[v] = pure
		v = pure
	}
	if v != orig {
		if id, ok := w.ids[v]; ok {
			w.ids[orig] = id
			return id, nil
		}
	}

	id := w.reg.Allocate()
	w.ids[orig] = id
	w.ids[v] = id

	if v == pyobj.Value(pyobj.Connect) {
		w.reg.DefineUnconvertible(id, nil)
		nodesRegistered.WithLabelValues(KindUnconvertible.String()).Inc()
		return id, nil
	}

	kind, err := w.dispatch(id, v)
	if err != nil {
		if !degradable(err) {
			return 0, err
		}
		path := w.opts.Modules.PathTo(v)
		log.Debugf("registering %s as unconvertible: %s", pyobj.Describe(v), err)
		w.reg.DefineUnconvertible(id, path)
		nodesDegraded.Inc()
		kind = KindUnconvertible
	}
	nodesRegistered.WithLabelValues(kind.String()).Inc()
	return id, nil
}

// ID returns the node id v was registered under.
func (w *Walker) ID(v pyobj.Value) (registry.ID, bool) {
	id, ok := w.ids[v]
	return id, ok
}

// degradable reports whether err means v cannot be sent but can still be
// referred to.
func degradable(err error) bool {
	return errors.Is(err, inspect.ErrCantGetSourceText) ||
		errors.Is(err, inspect.ErrInspection) ||
		errors.Is(err, pyast.ErrNoDefinition) ||
		errors.Is(err, pyast.ErrAmbiguousDefinition)
}

// parse returns the cached parse of a source file.
func (w *Walker) parse(name string, text []byte) (*pyast.Module, error) {
	if m, ok := w.parsed[name]; ok {
		return m, nil
	}
	m, err := pyast.Parse(context.Background(), name, text)
	if err != nil {
		return nil, err
	}
	sourceParses.Inc()
	if m.HasErrors() {
		log.Warningf("%s has syntax errors", name)
	}
	w.parsed[name] = m
	return m, nil
}

// fileNode returns the node of a source file, registering it on first
// use. Each file name gets one node per walk.
func (w *Walker) fileNode(f *pyobj.File) (registry.ID, error) {
	if id, ok := w.files[f.Name]; ok {
		return id, nil
	}
	return w.Walk(f)
}
