package pyobj

// moduleClass is the class every module object reports.
var moduleClass = &Class{Name: "module", Module: "__builtin__", Attrs: NewNamespace(), Builtin: true}

var builtinFunctionClass = &Class{Name: "builtin_function_or_method", Module: "__builtin__", Attrs: NewNamespace(), Builtin: true}

// ModuleClass returns the class of module objects. It is not a named
// singleton and has no source.
func ModuleClass() *Class { return moduleClass }

// ClassOf returns the class an object exposes through __class__, or nil
// for values that have none in this model.
func ClassOf(v Value) *Class {
	switch x := v.(type) {
	case *Instance:
		return x.Class
	case *Exception:
		return x.Class
	case *Module:
		return moduleClass
	case *BuiltinFunction:
		return builtinFunctionClass
	}
	return nil
}

// GetAttr looks name up on v the way attribute access would.
func GetAttr(v Value, name string) (Value, bool) {
	switch x := v.(type) {
	case *Module:
		return x.Attrs.Get(name)
	case *Class:
		return x.Lookup(name)
	case *Instance:
		if x.Dict != nil {
			if a, ok := x.Dict.Get(name); ok {
				return a, true
			}
		} else if a, ok := x.Slots.Get(name); ok {
			return a, true
		}
		return x.Class.Lookup(name)
	case *Exception:
		if a, ok := x.Attrs.Get(name); ok {
			return a, true
		}
		if name == "args" {
			return x.Args, true
		}
		return x.Class.Lookup(name)
	case *BoundMethod:
		if name == "__self__" {
			return x.Self, true
		}
	}
	return nil, false
}
