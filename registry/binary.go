package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Type codes written after each node id.
const (
	CodeNone                     byte = 1
	CodeInt                      byte = 2
	CodeLong                     byte = 3
	CodeFloat                    byte = 4
	CodeBool                     byte = 5
	CodeStr                      byte = 6
	CodeListOfPrimitives         byte = 7
	CodeTuple                    byte = 8
	CodePackedHomogenousData     byte = 9
	CodeList                     byte = 10
	CodeFile                     byte = 11
	CodeDict                     byte = 12
	CodeRemotePyObject           byte = 13
	CodeBuiltinExceptionInstance byte = 14
	CodeNamedSingleton           byte = 15
	CodeFunction                 byte = 16
	CodeClass                    byte = 17
	CodeUnconvertible            byte = 18
	CodeClassInstance            byte = 19
	CodeInstanceMethod           byte = 20
	CodeWithBlock                byte = 21
	CodePyAbortException         byte = 22
	CodeStackTraceAsJSON         byte = 23
)

// EndOfStream is the id value that terminates a stream.
const EndOfStream ID = -1

// ---------------------------------------------------------------------------
// Binary: append-only stream registry
// ---------------------------------------------------------------------------

// Binary encodes each definition into an in-memory stream as it arrives.
//
// Stream layout, all integers little-endian:
//
//	[id:int64][code:byte][payload]...[-1:int64]
//
// Strings are an int32 byte count followed by the bytes; id lists are an
// int64 count followed by int64 ids.
type Binary struct {
	buf           bytes.Buffer
	next          ID
	unconvertible map[ID]bool
	err           error
}

// NewBinary returns an empty stream registry.
func NewBinary() *Binary {
	return &Binary{unconvertible: make(map[ID]bool)}
}

func (b *Binary) Allocate() ID {
	id := b.next
	b.next++
	return id
}

func (b *Binary) IsUnconvertible(id ID) bool { return b.unconvertible[id] }

// Err returns the first encoding failure, if any.
func (b *Binary) Err() error { return b.err }

// Bytes returns the stream terminated by the end-of-stream marker. It
// fails if any definition could not be encoded, since that node is
// missing from the stream.
func (b *Binary) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	eos := int64(EndOfStream)
	out := make([]byte, b.buf.Len(), b.buf.Len()+8)
	copy(out, b.buf.Bytes())
	return binary.LittleEndian.AppendUint64(out, uint64(eos)), nil
}

// WriteTo writes the terminated stream to w.
func (b *Binary) WriteTo(w io.Writer) (int64, error) {
	data, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (b *Binary) header(id ID, code byte) {
	b.writeInt64(int64(id))
	b.buf.WriteByte(code)
}

func (b *Binary) writeInt64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	b.buf.Write(tmp[:])
}

func (b *Binary) writeInt32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.buf.Write(tmp[:])
}

func (b *Binary) writeString(s string) {
	b.writeInt32(int32(len(s)))
	b.buf.WriteString(s)
}

func (b *Binary) writeIDs(ids []ID) {
	b.writeInt64(int64(len(ids)))
	for _, id := range ids {
		b.writeInt64(int64(id))
	}
}

func (b *Binary) writePrimitive(p Primitive) {
	switch p.Kind {
	case PrimNone:
		b.buf.WriteByte(CodeNone)
	case PrimInt:
		b.buf.WriteByte(CodeInt)
		b.writeInt64(p.Int)
	case PrimFloat:
		b.buf.WriteByte(CodeFloat)
		b.writeInt64(int64(math.Float64bits(p.Float)))
	case PrimBool:
		b.buf.WriteByte(CodeBool)
		if p.Bool {
			b.buf.WriteByte(1)
		} else {
			b.buf.WriteByte(0)
		}
	case PrimStr:
		b.buf.WriteByte(CodeStr)
		b.writeString(p.Str)
	default:
		b.fail(fmt.Errorf("registry: invalid primitive kind %d", p.Kind))
	}
}

func (b *Binary) writeDefinition(def Definition) {
	b.writeInt64(int64(def.File))
	b.writeInt32(int32(def.Line))
	b.writeInt32(int32(len(def.FreeVars)))
	for _, fv := range def.FreeVars {
		b.writeString(fv.Chain)
		b.writeInt64(int64(fv.ID))
	}
}

func (b *Binary) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Binary) DefinePrimitive(id ID, p Primitive) {
	b.writeInt64(int64(id))
	b.writePrimitive(p)
}

func (b *Binary) DefinePrimitiveList(id ID, items []Primitive) {
	b.header(id, CodeListOfPrimitives)
	b.writeInt64(int64(len(items)))
	for _, p := range items {
		b.writePrimitive(p)
	}
}

func (b *Binary) DefineTuple(id ID, items []ID) {
	b.header(id, CodeTuple)
	b.writeIDs(items)
}

func (b *Binary) DefineList(id ID, items []ID) {
	b.header(id, CodeList)
	b.writeIDs(items)
}

func (b *Binary) DefineDict(id ID, keys, values []ID) {
	b.header(id, CodeDict)
	b.writeIDs(keys)
	b.writeIDs(values)
}

func (b *Binary) DefinePackedArray(id ID, dtype string, data []byte) {
	b.header(id, CodePackedHomogenousData)
	b.writePrimitive(Primitive{Kind: PrimStr, Str: dtype})
	b.writeString(string(data))
}

func (b *Binary) DefineNamedSingleton(id ID, name string) {
	b.header(id, CodeNamedSingleton)
	b.writeString(name)
}

func (b *Binary) DefineBuiltinException(id ID, typeName string, args ID) {
	b.header(id, CodeBuiltinExceptionInstance)
	b.writeString(typeName)
	b.writeInt64(int64(args))
}

func (b *Binary) DefineStackTrace(id ID, frames []Frame) {
	data, err := StackTraceJSON(frames)
	if err != nil {
		b.fail(err)
		return
	}
	b.header(id, CodeStackTraceAsJSON)
	b.writeString(string(data))
}

func (b *Binary) DefineFile(id ID, path, text string) {
	b.header(id, CodeFile)
	b.writeString(path)
	b.writeString(text)
}

// DefineRemoteHandle writes the handle's argument as CBOR.
func (b *Binary) DefineRemoteHandle(id ID, arg any) {
	data, err := cborEncMode.Marshal(arg)
	if err != nil {
		b.fail(fmt.Errorf("registry: encode remote handle %d: %w", id, err))
		return
	}
	b.header(id, CodeRemotePyObject)
	b.writeString(string(data))
}

func (b *Binary) DefineWithBlock(id ID, def Definition) {
	b.header(id, CodeWithBlock)
	b.writeDefinition(def)
}

func (b *Binary) DefineFunction(id ID, def Definition) {
	b.header(id, CodeFunction)
	b.writeDefinition(def)
}

func (b *Binary) DefineClass(id ID, def Definition, bases []ID) {
	b.header(id, CodeClass)
	b.writeDefinition(def)
	b.writeIDs(bases)
}

func (b *Binary) DefineInstanceMethod(id ID, self ID, name string) {
	b.header(id, CodeInstanceMethod)
	b.writeInt64(int64(self))
	b.writeString(name)
}

func (b *Binary) DefineClassInstance(id ID, class ID, members []Member) {
	b.header(id, CodeClassInstance)
	b.writeInt64(int64(class))
	b.writeInt32(int32(len(members)))
	for _, m := range members {
		b.writeString(m.Name)
		b.writeInt64(int64(m.ID))
	}
}

// DefineUnconvertible writes a presence byte, then the module path as an
// int32 count of strings.
func (b *Binary) DefineUnconvertible(id ID, modulePath []string) {
	b.header(id, CodeUnconvertible)
	if modulePath == nil {
		b.buf.WriteByte(0)
	} else {
		b.buf.WriteByte(1)
		b.writeInt32(int32(len(modulePath)))
		for _, s := range modulePath {
			b.writeString(s)
		}
	}
	b.unconvertible[id] = true
}
