package module

import (
	"bytes"
	"reflect"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/signadot/serialgen/debug"
	"github.com/signadot/serialgen/layout"
	"github.com/signadot/serialgen/typeinfo"
)

var timeType = reflect.TypeOf(time.Time{})

// Codec marshals Go values with the routines of a module.
//
// Go types are bound to routines by identity, once; binding checks that the
// type has the shape the routine was compiled for and binds the types it
// refers to. A Codec is safe for concurrent use.
type Codec struct {
	m *Module

	mu    sync.RWMutex
	bound map[reflect.Type]*Routine
}

// NewCodec creates a Codec executing the routines of m.
func NewCodec(m *Module) *Codec {
	return &Codec{m: m, bound: map[reflect.Type]*Routine{}}
}

// Module returns the module the codec executes.
func (c *Codec) Module() *Module {
	return c.m
}

// Bind binds rt and every type reachable from it to their routines.
func (c *Codec) Bind(rt reflect.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := map[reflect.Type]*Routine{}
	if err := c.bind(rt, pending); err != nil {
		return err
	}
	for t, r := range pending {
		c.bound[t] = r
	}
	return nil
}

func (c *Codec) bind(rt reflect.Type, pending map[reflect.Type]*Routine) error {
	if _, ok := c.bound[rt]; ok {
		return nil
	}
	if _, ok := pending[rt]; ok {
		return nil
	}
	t := typeinfo.FromReflect(rt)
	r, ok := c.m.Routine(t.ID())
	if !ok {
		return errors.Wrapf(ErrNoRoutine, "module %s has no routine for %s", c.m.Name, t)
	}
	fresh, err := Compile(t)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "binding %s", t), ErrShape)
	}
	if !equalCode(r.Body, fresh.Body) {
		return errors.Wrapf(ErrShape, "%s", t)
	}
	pending[rt] = r
	return c.bindRefs(r.Body, rt, pending)
}

func (c *Codec) bindRefs(code *Code, rt reflect.Type, pending map[reflect.Type]*Routine) error {
	switch code.Op {
	case OpRef:
		return c.bind(rt, pending)
	case OpPointer, OpSlice, OpArray:
		return c.bindRefs(code.Elem, rt.Elem(), pending)
	case OpMap:
		if err := c.bindRefs(code.Key, rt.Key(), pending); err != nil {
			return err
		}
		return c.bindRefs(code.Elem, rt.Elem(), pending)
	case OpStruct:
		for _, f := range code.Fields {
			if err := c.bindRefs(f.Code, rt.Field(f.Index).Type, pending); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
	}
	return nil
}

// routine returns the routine bound to rt, binding it first if needed.
func (c *Codec) routine(rt reflect.Type) (*Routine, error) {
	c.mu.RLock()
	r, ok := c.bound[rt]
	c.mu.RUnlock()
	if ok {
		return r, nil
	}
	if err := c.Bind(rt); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bound[rt], nil
}

// Marshal encodes v, a value or pointer to a value of a bound type.
func (c *Codec) Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, errors.New("cannot marshal nil")
	}
	if rv.Kind() == reflect.Pointer && !c.m.Has(typeinfo.FromReflect(rv.Type()).ID()) {
		if rv.IsNil() {
			return nil, errors.Newf("cannot marshal nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	r, err := c.routine(rv.Type())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if c.m.Layout == layout.Array {
		enc.UseArrayEncodedStructs(true)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.encode(enc, r.Body, rv); err != nil {
		return nil, errors.Wrapf(err, "marshaling %s", rv.Type())
	}
	if debug.Codec() {
		debug.Logf("marshaled %s with %s:\n%s", rv.Type(), r.Member, debug.Hex(buf.Bytes()))
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a non-nil pointer to a
// bound type.
func (c *Codec) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Newf("cannot unmarshal into %T", v)
	}
	rv = rv.Elem()
	r, err := c.routine(rv.Type())
	if err != nil {
		return err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.decode(dec, r.Body, rv); err != nil {
		return errors.Wrapf(err, "unmarshaling %s", rv.Type())
	}
	return nil
}

func (c *Codec) encode(enc *msgpack.Encoder, code *Code, rv reflect.Value) error {
	switch code.Op {
	case OpBool:
		return enc.EncodeBool(rv.Bool())
	case OpInt:
		return enc.EncodeInt(rv.Int())
	case OpUint:
		return enc.EncodeUint(rv.Uint())
	case OpFloat32:
		return enc.EncodeFloat32(float32(rv.Float()))
	case OpFloat64:
		return enc.EncodeFloat64(rv.Float())
	case OpString:
		return enc.EncodeString(rv.String())
	case OpBytes:
		return enc.EncodeBytes(rv.Bytes())
	case OpTime:
		return enc.EncodeTime(rv.Interface().(time.Time))
	case OpAny:
		return enc.Encode(rv.Interface())
	case OpPointer:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		return c.encode(enc, code.Elem, rv.Elem())
	case OpSlice:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		return c.encodeElems(enc, code.Elem, rv)
	case OpArray:
		return c.encodeElems(enc, code.Elem, rv)
	case OpMap:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		if err := enc.EncodeMapLen(rv.Len()); err != nil {
			return err
		}
		iter := rv.MapRange()
		for iter.Next() {
			if err := c.encode(enc, code.Key, iter.Key()); err != nil {
				return err
			}
			if err := c.encode(enc, code.Elem, iter.Value()); err != nil {
				return err
			}
		}
		return nil
	case OpStruct:
		return c.encodeStruct(enc, code.Fields, rv)
	case OpRef:
		r, ok := c.bound[rv.Type()]
		if !ok {
			return errors.Wrapf(ErrNoRoutine, "%s is not bound", rv.Type())
		}
		return c.encode(enc, r.Body, rv)
	}
	return errors.Newf("bad op %s", code.Op)
}

func (c *Codec) encodeElems(enc *msgpack.Encoder, elem *Code, rv reflect.Value) error {
	n := rv.Len()
	if err := enc.EncodeArrayLen(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := c.encode(enc, elem, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) encodeStruct(enc *msgpack.Encoder, fields []*FieldCode, rv reflect.Value) error {
	if c.m.Layout == layout.Array {
		if err := enc.EncodeArrayLen(len(fields)); err != nil {
			return err
		}
		for _, f := range fields {
			if err := c.encode(enc, f.Code, rv.Field(f.Index)); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil
	}
	n := 0
	for _, f := range fields {
		if !f.OmitEmpty || !empty(rv.Field(f.Index)) {
			n++
		}
	}
	if err := enc.EncodeMapLen(n); err != nil {
		return err
	}
	for _, f := range fields {
		fv := rv.Field(f.Index)
		if f.OmitEmpty && empty(fv) {
			continue
		}
		if err := enc.EncodeString(f.Key); err != nil {
			return err
		}
		if err := c.encode(enc, f.Code, fv); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
	}
	return nil
}

// empty reports whether an omitempty field holding rv is left out. Arrays
// and structs other than time.Time are never left out.
func empty(rv reflect.Value) bool {
	if rv.Type() == timeType {
		return rv.Interface().(time.Time).IsZero()
	}
	switch rv.Kind() {
	case reflect.Array, reflect.Struct:
		return false
	}
	return rv.IsZero()
}

func isNil(dec *msgpack.Decoder) (bool, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return false, err
	}
	if code != msgpcode.Nil {
		return false, nil
	}
	return true, dec.DecodeNil()
}

func (c *Codec) decode(dec *msgpack.Decoder, code *Code, rv reflect.Value) error {
	switch code.Op {
	case OpBool:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		rv.SetBool(b)
	case OpInt:
		n, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		if rv.OverflowInt(n) {
			return errors.Newf("%d overflows %s", n, rv.Type())
		}
		rv.SetInt(n)
	case OpUint:
		n, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		if rv.OverflowUint(n) {
			return errors.Newf("%d overflows %s", n, rv.Type())
		}
		rv.SetUint(n)
	case OpFloat32:
		f, err := dec.DecodeFloat32()
		if err != nil {
			return err
		}
		rv.SetFloat(float64(f))
	case OpFloat64:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		rv.SetFloat(f)
	case OpString:
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		rv.SetString(s)
	case OpBytes:
		b, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		rv.SetBytes(b)
	case OpTime:
		tm, err := dec.DecodeTime()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(tm))
	case OpAny:
		x, err := dec.DecodeInterface()
		if err != nil {
			return err
		}
		if x == nil {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		rv.Set(reflect.ValueOf(x))
	case OpPointer:
		null, err := isNil(dec)
		if err != nil {
			return err
		}
		if null {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return c.decode(dec, code.Elem, rv.Elem())
	case OpSlice:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if n < 0 {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		s := reflect.MakeSlice(rv.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := c.decode(dec, code.Elem, s.Index(i)); err != nil {
				return err
			}
		}
		rv.Set(s)
	case OpArray:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		rv.Set(reflect.Zero(rv.Type()))
		for i := 0; i < n; i++ {
			if i >= rv.Len() {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			if err := c.decode(dec, code.Elem, rv.Index(i)); err != nil {
				return err
			}
		}
	case OpMap:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		if n < 0 {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		m := reflect.MakeMapWithSize(rv.Type(), n)
		kt, et := rv.Type().Key(), rv.Type().Elem()
		for i := 0; i < n; i++ {
			k := reflect.New(kt).Elem()
			if err := c.decode(dec, code.Key, k); err != nil {
				return err
			}
			e := reflect.New(et).Elem()
			if err := c.decode(dec, code.Elem, e); err != nil {
				return err
			}
			m.SetMapIndex(k, e)
		}
		rv.Set(m)
	case OpStruct:
		return c.decodeStruct(dec, code.Fields, rv)
	case OpRef:
		r, ok := c.bound[rv.Type()]
		if !ok {
			return errors.Wrapf(ErrNoRoutine, "%s is not bound", rv.Type())
		}
		return c.decode(dec, r.Body, rv)
	default:
		return errors.Newf("bad op %s", code.Op)
	}
	return nil
}

func (c *Codec) decodeStruct(dec *msgpack.Decoder, fields []*FieldCode, rv reflect.Value) error {
	if c.m.Layout == layout.Array {
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if i >= len(fields) {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			f := fields[i]
			if err := c.decode(dec, f.Code, rv.Field(f.Index)); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil
	}
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		f := fieldByKey(fields, key)
		if f == nil {
			if err := dec.Skip(); err != nil {
				return err
			}
			continue
		}
		if err := c.decode(dec, f.Code, rv.Field(f.Index)); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
	}
	return nil
}

func fieldByKey(fields []*FieldCode, key string) *FieldCode {
	for _, f := range fields {
		if f.Key == key {
			return f
		}
	}
	return nil
}
