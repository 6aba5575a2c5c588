package walker

import "github.com/chazu/pywalk/pyobj"

// Kind is the registration routine a value dispatches to. The order of the
// constants is the order classify tries them in.
type Kind uint8

const (
	KindRemoteHandle Kind = iota + 1
	KindPackedArray
	KindFuture
	KindFile
	KindBuiltinException
	KindNamedSingleton
	KindStackTrace
	KindWithBlock
	KindUnconvertible
	KindTuple
	KindList
	KindDict
	KindPrimitive
	KindFunction
	KindClass
	KindBoundMethod
	KindClassInstance
)

var kindNames = [...]string{
	KindRemoteHandle:     "remote-handle",
	KindPackedArray:      "packed-array",
	KindFuture:           "future",
	KindFile:             "file",
	KindBuiltinException: "builtin-exception",
	KindNamedSingleton:   "named-singleton",
	KindStackTrace:       "stack-trace",
	KindWithBlock:        "with-block",
	KindUnconvertible:    "unconvertible",
	KindTuple:            "tuple",
	KindList:             "list",
	KindDict:             "dict",
	KindPrimitive:        "primitive",
	KindFunction:         "function",
	KindClass:            "class",
	KindBoundMethod:      "bound-method",
	KindClassInstance:    "class-instance",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Classify returns the kind v registers as. The first matching rule wins;
// false means v fits no rule.
func Classify(v pyobj.Value) (Kind, bool) {
	switch x := v.(type) {
	case *pyobj.RemoteHandle:
		return KindRemoteHandle, true
	case *pyobj.PackedArray:
		return KindPackedArray, true
	case *pyobj.Future:
		return KindFuture, true
	case *pyobj.File:
		return KindFile, true
	case *pyobj.Exception:
		if _, ok := pyobj.SingletonName(x.Class); ok {
			return KindBuiltinException, true
		}
	case *pyobj.Class, *pyobj.BuiltinFunction:
		if _, ok := pyobj.SingletonName(x); ok {
			return KindNamedSingleton, true
		}
	}

	switch x := v.(type) {
	case *pyobj.Traceback:
		return KindStackTrace, true
	case *pyobj.WithBlock:
		return KindWithBlock, true
	case *pyobj.Unconvertible:
		return KindUnconvertible, true
	case *pyobj.Tuple:
		return KindTuple, true
	case *pyobj.List:
		return KindList, true
	case *pyobj.Dict:
		return KindDict, true
	case *pyobj.Function:
		return KindFunction, true
	case *pyobj.Class:
		return KindClass, true
	case *pyobj.BoundMethod:
		return KindBoundMethod, true
	default:
		if pyobj.IsPrimitive(x) {
			return KindPrimitive, true
		}
		if pyobj.ClassOf(x) != nil {
			return KindClassInstance, true
		}
	}
	return 0, false
}
