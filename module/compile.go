package module

import (
	"github.com/cockroachdb/errors"

	"github.com/signadot/serialgen/typeinfo"
)

var scalarOps = map[typeinfo.Kind]Op{
	typeinfo.Bool:    OpBool,
	typeinfo.Int:     OpInt,
	typeinfo.Int8:    OpInt,
	typeinfo.Int16:   OpInt,
	typeinfo.Int32:   OpInt,
	typeinfo.Int64:   OpInt,
	typeinfo.Uint:    OpUint,
	typeinfo.Uint8:   OpUint,
	typeinfo.Uint16:  OpUint,
	typeinfo.Uint32:  OpUint,
	typeinfo.Uint64:  OpUint,
	typeinfo.Float32: OpFloat32,
	typeinfo.Float64: OpFloat64,
	typeinfo.String:  OpString,
	typeinfo.Bytes:   OpBytes,
	typeinfo.Time:    OpTime,
	typeinfo.Any:     OpAny,
}

// Compile compiles the routine of the named type t. Referable types used by
// t compile to OpRef instructions; their routines must be added to the same
// module for the module to be usable.
func Compile(t *typeinfo.Type) (*Routine, error) {
	if !t.Named() {
		return nil, errors.Wrapf(ErrUnsupported, "%s has no name", t)
	}
	body, err := compileBody(t)
	if err != nil {
		return nil, err
	}
	return &Routine{
		Type:   t.ID(),
		Member: typeinfo.MemberName(t),
		Body:   body,
	}, nil
}

func compileBody(t *typeinfo.Type) (*Code, error) {
	if op, ok := scalarOps[t.Kind]; ok {
		return &Code{Op: op, Kind: uint8(t.Kind)}, nil
	}
	switch t.Kind {
	case typeinfo.Pointer, typeinfo.Slice, typeinfo.Array:
		elem, err := compileUse(t.Elem)
		if err != nil {
			return nil, err
		}
		op := map[typeinfo.Kind]Op{
			typeinfo.Pointer: OpPointer,
			typeinfo.Slice:   OpSlice,
			typeinfo.Array:   OpArray,
		}[t.Kind]
		return &Code{Op: op, Len: t.Len, Elem: elem}, nil
	case typeinfo.Map:
		if !t.Key.Kind.IsScalar() || t.Key.Kind == typeinfo.Bytes || t.Key.Kind == typeinfo.Any {
			return nil, errors.Wrapf(ErrUnsupported, "map key %s", t.Key)
		}
		key, err := compileUse(t.Key)
		if err != nil {
			return nil, err
		}
		elem, err := compileUse(t.Elem)
		if err != nil {
			return nil, err
		}
		return &Code{Op: OpMap, Key: key, Elem: elem}, nil
	case typeinfo.Struct:
		if err := t.CheckKeys(); err != nil {
			return nil, err
		}
		var fields []*FieldCode
		for _, f := range t.Fields {
			code, err := compileUse(f.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", f.Name)
			}
			fields = append(fields, &FieldCode{
				Name:      f.Name,
				Key:       f.Key,
				Index:     f.Index,
				OmitEmpty: f.OmitEmpty,
				Code:      code,
			})
		}
		return &Code{Op: OpStruct, Fields: fields}, nil
	case typeinfo.Unsupported:
		return nil, errors.Wrapf(ErrUnsupported, "%s", t.Repr)
	}
	return nil, errors.Wrapf(ErrUnsupported, "kind %s of %s", t.Kind, t)
}

// compileUse compiles a use of t from another type.
func compileUse(t *typeinfo.Type) (*Code, error) {
	if t.Referable() {
		return &Code{Op: OpRef, Ref: t.ID()}, nil
	}
	return compileBody(t)
}

// Refs returns the distinct type identities referenced by c, in first-use
// order.
func Refs(c *Code) []string {
	var res []string
	seen := map[string]bool{}
	var walk func(*Code)
	walk = func(c *Code) {
		if c == nil {
			return
		}
		if c.Op == OpRef && !seen[c.Ref] {
			seen[c.Ref] = true
			res = append(res, c.Ref)
		}
		walk(c.Key)
		walk(c.Elem)
		for _, f := range c.Fields {
			walk(f.Code)
		}
	}
	walk(c)
	return res
}

func equalCode(a, b *Code) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Op != b.Op || a.Kind != b.Kind || a.Ref != b.Ref || a.Len != b.Len {
		return false
	}
	if !equalCode(a.Key, b.Key) || !equalCode(a.Elem, b.Elem) {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		fa, fb := a.Fields[i], b.Fields[i]
		if fa.Name != fb.Name || fa.Key != fb.Key || fa.Index != fb.Index || fa.OmitEmpty != fb.OmitEmpty {
			return false
		}
		if !equalCode(fa.Code, fb.Code) {
			return false
		}
	}
	return true
}
