package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrUnexpectedEOF = errors.New("unexpected end of registry stream")
	ErrUnknownCode   = errors.New("unknown registry type code")
	ErrCorruptStream = errors.New("corrupt registry stream")
)

// ---------------------------------------------------------------------------
// Reader: replays a binary stream
// ---------------------------------------------------------------------------

// Reader decodes a stream produced by Binary.
type Reader struct {
	data   []byte
	offset int
}

// NewReader returns a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Decode replays every definition in data into d, stopping at the
// end-of-stream marker.
func Decode(data []byte, d Definer) error {
	return NewReader(data).Replay(d)
}

// Replay reads definitions until the end-of-stream marker.
func (r *Reader) Replay(d Definer) error {
	for {
		raw, err := r.readInt64()
		if err != nil {
			return err
		}
		id := ID(raw)
		if id == EndOfStream {
			return nil
		}
		if err := r.readNode(id, d); err != nil {
			return fmt.Errorf("registry: node %d at offset %d: %w", id, r.offset, err)
		}
	}
}

func (r *Reader) readNode(id ID, d Definer) error {
	code, err := r.readByte()
	if err != nil {
		return err
	}
	switch code {
	case CodeNone, CodeInt, CodeLong, CodeFloat, CodeBool, CodeStr:
		p, err := r.readPrimitiveBody(code)
		if err != nil {
			return err
		}
		d.DefinePrimitive(id, p)

	case CodeListOfPrimitives:
		n, err := r.readCount64()
		if err != nil {
			return err
		}
		items := make([]Primitive, 0, n)
		for i := 0; i < n; i++ {
			p, err := r.readPrimitive()
			if err != nil {
				return err
			}
			items = append(items, p)
		}
		d.DefinePrimitiveList(id, items)

	case CodeTuple, CodeList:
		items, err := r.readIDs()
		if err != nil {
			return err
		}
		if code == CodeTuple {
			d.DefineTuple(id, items)
		} else {
			d.DefineList(id, items)
		}

	case CodeDict:
		keys, err := r.readIDs()
		if err != nil {
			return err
		}
		values, err := r.readIDs()
		if err != nil {
			return err
		}
		if len(keys) != len(values) {
			return fmt.Errorf("%w: dict has %d keys and %d values", ErrCorruptStream, len(keys), len(values))
		}
		d.DefineDict(id, keys, values)

	case CodePackedHomogenousData:
		dtype, err := r.readPrimitive()
		if err != nil {
			return err
		}
		if dtype.Kind != PrimStr {
			return fmt.Errorf("%w: packed array dtype is %s", ErrCorruptStream, dtype)
		}
		data, err := r.readString()
		if err != nil {
			return err
		}
		d.DefinePackedArray(id, dtype.Str, []byte(data))

	case CodeNamedSingleton:
		name, err := r.readString()
		if err != nil {
			return err
		}
		d.DefineNamedSingleton(id, name)

	case CodeBuiltinExceptionInstance:
		name, err := r.readString()
		if err != nil {
			return err
		}
		args, err := r.readID()
		if err != nil {
			return err
		}
		d.DefineBuiltinException(id, name, args)

	case CodeStackTraceAsJSON:
		text, err := r.readString()
		if err != nil {
			return err
		}
		frames, err := ParseStackTraceJSON([]byte(text))
		if err != nil {
			return err
		}
		d.DefineStackTrace(id, frames)

	case CodeFile:
		path, err := r.readString()
		if err != nil {
			return err
		}
		text, err := r.readString()
		if err != nil {
			return err
		}
		d.DefineFile(id, path, text)

	case CodeRemotePyObject:
		data, err := r.readString()
		if err != nil {
			return err
		}
		var arg any
		if err := cbor.Unmarshal([]byte(data), &arg); err != nil {
			return fmt.Errorf("%w: remote handle: %v", ErrCorruptStream, err)
		}
		d.DefineRemoteHandle(id, arg)

	case CodeFunction, CodeWithBlock:
		def, err := r.readDefinition()
		if err != nil {
			return err
		}
		if code == CodeFunction {
			d.DefineFunction(id, def)
		} else {
			d.DefineWithBlock(id, def)
		}

	case CodeClass:
		def, err := r.readDefinition()
		if err != nil {
			return err
		}
		bases, err := r.readIDs()
		if err != nil {
			return err
		}
		d.DefineClass(id, def, bases)

	case CodeInstanceMethod:
		self, err := r.readID()
		if err != nil {
			return err
		}
		name, err := r.readString()
		if err != nil {
			return err
		}
		d.DefineInstanceMethod(id, self, name)

	case CodeClassInstance:
		class, err := r.readID()
		if err != nil {
			return err
		}
		n, err := r.readCount32()
		if err != nil {
			return err
		}
		members := make([]Member, 0, n)
		for i := 0; i < n; i++ {
			name, err := r.readString()
			if err != nil {
				return err
			}
			mid, err := r.readID()
			if err != nil {
				return err
			}
			members = append(members, Member{Name: name, ID: mid})
		}
		d.DefineClassInstance(id, class, members)

	case CodeUnconvertible:
		flag, err := r.readByte()
		if err != nil {
			return err
		}
		var path []string
		if flag == 1 {
			n, err := r.readCount32()
			if err != nil {
				return err
			}
			path = make([]string, 0, n)
			for i := 0; i < n; i++ {
				s, err := r.readString()
				if err != nil {
					return err
				}
				path = append(path, s)
			}
		}
		d.DefineUnconvertible(id, path)

	default:
		return fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Primitive reads
// ---------------------------------------------------------------------------

func (r *Reader) readByte() (byte, error) {
	if r.offset+1 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *Reader) readInt64() (int64, error) {
	if r.offset+8 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return int64(v), nil
}

func (r *Reader) readInt32() (int32, error) {
	if r.offset+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return int32(v), nil
}

func (r *Reader) readID() (ID, error) {
	v, err := r.readInt64()
	return ID(v), err
}

// readCount64 reads an int64 element count and checks it against the
// remaining input, assuming at least one byte per element.
func (r *Reader) readCount64() (int, error) {
	n, err := r.readInt64()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(len(r.data)-r.offset) {
		return 0, fmt.Errorf("%w: count %d", ErrCorruptStream, n)
	}
	return int(n), nil
}

func (r *Reader) readCount32() (int, error) {
	n, err := r.readInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > len(r.data)-r.offset {
		return 0, fmt.Errorf("%w: count %d", ErrCorruptStream, n)
	}
	return int(n), nil
}

func (r *Reader) readString() (string, error) {
	n, err := r.readCount32()
	if err != nil {
		return "", err
	}
	s := string(r.data[r.offset : r.offset+n])
	r.offset += n
	return s, nil
}

func (r *Reader) readIDs() ([]ID, error) {
	n, err := r.readCount64()
	if err != nil {
		return nil, err
	}
	ids := make([]ID, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.readID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Reader) readPrimitive() (Primitive, error) {
	code, err := r.readByte()
	if err != nil {
		return Primitive{}, err
	}
	return r.readPrimitiveBody(code)
}

func (r *Reader) readPrimitiveBody(code byte) (Primitive, error) {
	switch code {
	case CodeNone:
		return Primitive{Kind: PrimNone}, nil
	case CodeInt, CodeLong:
		v, err := r.readInt64()
		return Primitive{Kind: PrimInt, Int: v}, err
	case CodeFloat:
		v, err := r.readInt64()
		return Primitive{Kind: PrimFloat, Float: math.Float64frombits(uint64(v))}, err
	case CodeBool:
		v, err := r.readByte()
		return Primitive{Kind: PrimBool, Bool: v != 0}, err
	case CodeStr:
		s, err := r.readString()
		return Primitive{Kind: PrimStr, Str: s}, err
	}
	return Primitive{}, fmt.Errorf("%w: %d is not a primitive", ErrUnknownCode, code)
}

func (r *Reader) readDefinition() (Definition, error) {
	file, err := r.readID()
	if err != nil {
		return Definition{}, err
	}
	line, err := r.readInt32()
	if err != nil {
		return Definition{}, err
	}
	n, err := r.readCount32()
	if err != nil {
		return Definition{}, err
	}
	def := Definition{File: file, Line: int(line)}
	for i := 0; i < n; i++ {
		chain, err := r.readString()
		if err != nil {
			return Definition{}, err
		}
		id, err := r.readID()
		if err != nil {
			return Definition{}, err
		}
		def.FreeVars = append(def.FreeVars, Binding{Chain: chain, ID: id})
	}
	return def, nil
}
