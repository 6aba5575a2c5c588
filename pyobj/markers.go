package pyobj

// ---------------------------------------------------------------------------
// Runtime markers understood by the walker
// ---------------------------------------------------------------------------

// Future is a deferred value. The walker registers its result in place of
// the future itself.
type Future struct {
	resolve func() Value
	done    bool
	result  Value
}

func (*Future) TypeName() string { return "Future" }

// NewFuture returns a future whose result is computed lazily by resolve.
func NewFuture(resolve func() Value) *Future {
	return &Future{resolve: resolve}
}

// ResolvedFuture returns a future that already holds v.
func ResolvedFuture(v Value) *Future {
	return &Future{done: true, result: v}
}

// Result blocks until the future has a value and returns it.
func (f *Future) Result() Value {
	if !f.done {
		f.result = f.resolve()
		f.done = true
	}
	return f.result
}

// RemoteHandle refers to a value that already lives on the remote side.
type RemoteHandle struct {
	ComputedValueArg any
}

func (*RemoteHandle) TypeName() string { return "RemotePythonObject" }

// PackedArray is a homogeneous array stored as raw bytes, with a
// numpy-style dtype description.
type PackedArray struct {
	DType string
	Data  []byte
}

func (*PackedArray) TypeName() string { return "PackedHomogenousData" }

// Frame is one entry of a traceback.
type Frame struct {
	Filename string
	Line     int
}

// Traceback is a captured stack trace, outermost frame first.
type Traceback struct {
	Frames []Frame
}

func (*Traceback) TypeName() string { return "traceback" }

// File is the text of a source file. File values are shared through the
// inspect package's cache, so each file name maps to one object.
type File struct {
	Name string
	Text string
}

func (*File) TypeName() string { return "FileDescription" }

// WithBlock marks the body of a `with` statement captured for remote
// execution together with the frame's variables at entry.
type WithBlock struct {
	SourceFileName string
	LineNumber     int
	BoundVariables *Namespace
	// UnboundLocals are names the frame reports as locals without a value.
	UnboundLocals map[string]bool
}

func (*WithBlock) TypeName() string { return "PyforaWithBlock" }

// Unconvertible wraps an object the caller already knows cannot be sent.
type Unconvertible struct {
	Object Value
}

func (*Unconvertible) TypeName() string { return "Unconvertible" }
