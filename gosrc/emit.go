package gosrc

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/imports"

	"github.com/signadot/serialgen/debug"
	"github.com/signadot/serialgen/layout"
	"github.com/signadot/serialgen/typeinfo"
)

// Header is the first line of every emitted file.
const Header = "// Code generated by serialgen. DO NOT EDIT."

var ErrUnsupported = errors.New("unsupported type")

// Options control emission.
type Options struct {
	// Package is the package clause of the emitted file.
	Package string
	Layout  layout.Layout
}

// FileName is the name of the file emitted for t.
func FileName(t *typeinfo.Type) string {
	return typeinfo.UnitName(t) + ".go"
}

// SerializerName is the name of the serializer type emitted for t.
func SerializerName(t *typeinfo.Type) string {
	return typeinfo.UnitName(t) + "Serializer"
}

// Emit renders the serializer source for the named type t.
func Emit(t *typeinfo.Type, opts Options) ([]byte, error) {
	if !t.Named() {
		return nil, errors.Wrapf(ErrUnsupported, "%s has no name", t)
	}
	if !ValidPackage(opts.Package) {
		return nil, errors.Newf("bad package name %q", opts.Package)
	}
	if !opts.Layout.Valid() {
		return nil, errors.Newf("bad layout %d", opts.Layout)
	}
	e := &emitter{
		layout:  opts.Layout,
		imports: newImportSet(opts.Package),
		root:    t,
		recv:    SerializerName(t),
		helpers: map[string]*helper{},
		names:   map[string]bool{},
	}
	src, err := e.file(t, opts.Package)
	if err != nil {
		return nil, err
	}
	if debug.Emit() {
		debug.Logf("emitted %s:\n%s\n", FileName(t), src)
	}
	res, err := imports.Process(FileName(t), src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "formatting source of %s", t)
	}
	return res, nil
}

type emitter struct {
	layout  layout.Layout
	imports *importSet
	buf     bytes.Buffer
	tmps    int

	root *typeinfo.Type
	recv string
	// helpers holds the methods coding the named composites used by root,
	// by identity, in first-use order in queue.
	helpers map[string]*helper
	queue   []*helper
	names   map[string]bool
}

// helper is the pair of unexported serializer methods coding a named
// composite type used by the root type.
type helper struct {
	t        *typeinfo.Type
	enc, dec string
}

func (e *emitter) helper(t *typeinfo.Type) *helper {
	if h, ok := e.helpers[t.ID()]; ok {
		return h
	}
	base := typeinfo.UnitName(t)
	name := base
	for i := 2; e.names[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	e.names[name] = true
	h := &helper{t: t, enc: "encode" + name, dec: "decode" + name}
	e.helpers[t.ID()] = h
	e.queue = append(e.queue, h)
	return h
}

// target is the expression of the value of type t behind the pointer v.
func target(t *typeinfo.Type) string {
	if t.Kind == typeinfo.Struct {
		return "v"
	}
	return "(*v)"
}

func (e *emitter) p(format string, args ...any) {
	fmt.Fprintf(&e.buf, format, args...)
	e.buf.WriteByte('\n')
}

func (e *emitter) tmp(prefix string) string {
	e.tmps++
	return fmt.Sprintf("%s%d", prefix, e.tmps)
}

func (e *emitter) check(call string) {
	e.p("if err := %s; err != nil {", call)
	e.p("return err")
	e.p("}")
}

func (e *emitter) file(t *typeinfo.Type, pkg string) ([]byte, error) {
	goType, err := e.spell(t)
	if err != nil {
		return nil, err
	}
	name := e.recv
	e.imports.use("bytes")
	msgpack := e.imports.use(msgpackPath)

	e.p("// %s encodes and decodes %s values in %s layout.", name, goType, e.layout)
	e.p("type %s struct{}", name)
	e.p("")
	e.p("// EncodeMsgpack writes v to enc.")
	e.p("func (s %s) EncodeMsgpack(enc *%s.Encoder, v *%s) error {", name, msgpack, goType)
	if err := e.encodeBody(t, target(t)); err != nil {
		return nil, err
	}
	e.p("return nil")
	e.p("}")
	e.p("")
	e.p("// DecodeMsgpack reads v from dec.")
	e.p("func (s %s) DecodeMsgpack(dec *%s.Decoder, v *%s) error {", name, msgpack, goType)
	if err := e.decodeBody(t, target(t)); err != nil {
		return nil, err
	}
	e.p("return nil")
	e.p("}")
	e.p("")
	e.p("// Marshal returns the encoding of v.")
	e.p("func (s %s) Marshal(v *%s) ([]byte, error) {", name, goType)
	e.p("var buf bytes.Buffer")
	e.p("enc := %s.NewEncoder(&buf)", msgpack)
	if e.layout == layout.Array {
		e.p("enc.UseArrayEncodedStructs(true)")
	}
	e.p("if err := s.EncodeMsgpack(enc, v); err != nil {")
	e.p("return nil, err")
	e.p("}")
	e.p("return buf.Bytes(), nil")
	e.p("}")
	e.p("")
	e.p("// Unmarshal decodes data into v.")
	e.p("func (s %s) Unmarshal(data []byte, v *%s) error {", name, goType)
	e.p("return s.DecodeMsgpack(%s.NewDecoder(bytes.NewReader(data)), v)", msgpack)
	e.p("}")

	// Helper bodies may queue further helpers.
	for i := 0; i < len(e.queue); i++ {
		if err := e.helperMethods(e.queue[i], msgpack); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s\n\npackage %s\n\n%s\n", Header, pkg, e.imports.decl())
	out.Write(e.buf.Bytes())
	return out.Bytes(), nil
}

func (e *emitter) helperMethods(h *helper, msgpack string) error {
	goType, err := e.spell(h.t)
	if err != nil {
		return err
	}
	e.p("")
	e.p("func (s %s) %s(enc *%s.Encoder, v *%s) error {", e.recv, h.enc, msgpack, goType)
	if err := e.encodeBody(h.t, target(h.t)); err != nil {
		return errors.Wrapf(err, "type %s", h.t)
	}
	e.p("return nil")
	e.p("}")
	e.p("")
	e.p("func (s %s) %s(dec *%s.Decoder, v *%s) error {", e.recv, h.dec, msgpack, goType)
	if err := e.decodeBody(h.t, target(h.t)); err != nil {
		return errors.Wrapf(err, "type %s", h.t)
	}
	e.p("return nil")
	e.p("}")
	return nil
}

// spell returns the Go spelling of t in the emitted file.
func (e *emitter) spell(t *typeinfo.Type) (string, error) {
	if t.Kind == typeinfo.Time {
		return e.imports.use("time") + ".Time", nil
	}
	if t.Named() {
		if strings.ContainsRune(t.Name, '[') {
			return "", errors.Wrapf(ErrUnsupported, "generic type %s", t)
		}
		if !ast.IsExported(t.Name) {
			return "", errors.Wrapf(ErrUnsupported, "unexported type %s", t)
		}
		if t.PkgPath == "" {
			return t.Name, nil
		}
		return e.imports.use(t.PkgPath) + "." + t.Name, nil
	}
	switch t.Kind {
	case typeinfo.Bytes:
		return "[]byte", nil
	case typeinfo.Any:
		return "any", nil
	case typeinfo.Pointer, typeinfo.Slice, typeinfo.Array:
		elem, err := e.spell(t.Elem)
		if err != nil {
			return "", err
		}
		switch t.Kind {
		case typeinfo.Pointer:
			return "*" + elem, nil
		case typeinfo.Slice:
			return "[]" + elem, nil
		}
		return fmt.Sprintf("[%d]%s", t.Len, elem), nil
	case typeinfo.Map:
		key, err := e.spell(t.Key)
		if err != nil {
			return "", err
		}
		elem, err := e.spell(t.Elem)
		if err != nil {
			return "", err
		}
		return "map[" + key + "]" + elem, nil
	case typeinfo.Struct:
		return "", errors.Wrapf(ErrUnsupported, "unnamed struct %s outside a field", t)
	case typeinfo.Unsupported:
		return "", errors.Wrapf(ErrUnsupported, "%s", t.Repr)
	}
	if t.Kind.IsScalar() {
		return t.Kind.String(), nil
	}
	return "", errors.Wrapf(ErrUnsupported, "kind %s", t.Kind)
}

var encodeCalls = map[typeinfo.Kind]string{
	typeinfo.Bool:    "enc.EncodeBool(bool(%s))",
	typeinfo.Int:     "enc.EncodeInt(int64(%s))",
	typeinfo.Int8:    "enc.EncodeInt(int64(%s))",
	typeinfo.Int16:   "enc.EncodeInt(int64(%s))",
	typeinfo.Int32:   "enc.EncodeInt(int64(%s))",
	typeinfo.Int64:   "enc.EncodeInt(int64(%s))",
	typeinfo.Uint:    "enc.EncodeUint(uint64(%s))",
	typeinfo.Uint8:   "enc.EncodeUint(uint64(%s))",
	typeinfo.Uint16:  "enc.EncodeUint(uint64(%s))",
	typeinfo.Uint32:  "enc.EncodeUint(uint64(%s))",
	typeinfo.Uint64:  "enc.EncodeUint(uint64(%s))",
	typeinfo.Float32: "enc.EncodeFloat32(float32(%s))",
	typeinfo.Float64: "enc.EncodeFloat64(float64(%s))",
	typeinfo.String:  "enc.EncodeString(string(%s))",
	typeinfo.Bytes:   "enc.EncodeBytes([]byte(%s))",
	typeinfo.Time:    "enc.EncodeTime(%s)",
	typeinfo.Any:     "enc.Encode(%s)",
}

var decodeCalls = map[typeinfo.Kind]string{
	typeinfo.Bool:    "dec.DecodeBool()",
	typeinfo.Int:     "dec.DecodeInt()",
	typeinfo.Int8:    "dec.DecodeInt8()",
	typeinfo.Int16:   "dec.DecodeInt16()",
	typeinfo.Int32:   "dec.DecodeInt32()",
	typeinfo.Int64:   "dec.DecodeInt64()",
	typeinfo.Uint:    "dec.DecodeUint()",
	typeinfo.Uint8:   "dec.DecodeUint8()",
	typeinfo.Uint16:  "dec.DecodeUint16()",
	typeinfo.Uint32:  "dec.DecodeUint32()",
	typeinfo.Uint64:  "dec.DecodeUint64()",
	typeinfo.Float32: "dec.DecodeFloat32()",
	typeinfo.Float64: "dec.DecodeFloat64()",
	typeinfo.String:  "dec.DecodeString()",
	typeinfo.Bytes:   "dec.DecodeBytes()",
	typeinfo.Time:    "dec.DecodeTime()",
	typeinfo.Any:     "dec.DecodeInterface()",
}

// encodeUse writes the encoding of x, a value of type t used by another
// type.
func (e *emitter) encodeUse(t *typeinfo.Type, x string) error {
	if t.Referable() {
		method := "EncodeMsgpack"
		if t.ID() != e.root.ID() {
			method = e.helper(t).enc
		}
		e.check(fmt.Sprintf("s.%s(enc, &%s)", method, x))
		return nil
	}
	return e.encodeBody(t, x)
}

func (e *emitter) encodeBody(t *typeinfo.Type, x string) error {
	if call, ok := encodeCalls[t.Kind]; ok {
		e.check(fmt.Sprintf(call, x))
		return nil
	}
	switch t.Kind {
	case typeinfo.Pointer:
		e.p("if %s == nil {", x)
		e.check("enc.EncodeNil()")
		e.p("} else {")
		if err := e.encodeUse(t.Elem, "(*"+x+")"); err != nil {
			return err
		}
		e.p("}")
	case typeinfo.Slice:
		e.p("if %s == nil {", x)
		e.check("enc.EncodeNil()")
		e.p("} else {")
		if err := e.encodeElems(t, x); err != nil {
			return err
		}
		e.p("}")
	case typeinfo.Array:
		return e.encodeElems(t, x)
	case typeinfo.Map:
		if err := checkMapKey(t); err != nil {
			return err
		}
		k, v := e.tmp("k"), e.tmp("v")
		e.p("if %s == nil {", x)
		e.check("enc.EncodeNil()")
		e.p("} else {")
		e.check(fmt.Sprintf("enc.EncodeMapLen(len(%s))", x))
		e.p("for %s, %s := range %s {", k, v, x)
		if err := e.encodeUse(t.Key, k); err != nil {
			return err
		}
		if err := e.encodeUse(t.Elem, v); err != nil {
			return err
		}
		e.p("}")
		e.p("}")
	case typeinfo.Struct:
		if err := t.CheckKeys(); err != nil {
			return err
		}
		return e.encodeStruct(t, x)
	case typeinfo.Unsupported:
		return errors.Wrapf(ErrUnsupported, "%s", t.Repr)
	default:
		return errors.Wrapf(ErrUnsupported, "kind %s of %s", t.Kind, t)
	}
	return nil
}

func (e *emitter) encodeElems(t *typeinfo.Type, x string) error {
	i := e.tmp("i")
	e.check(fmt.Sprintf("enc.EncodeArrayLen(len(%s))", x))
	e.p("for %s := range %s {", i, x)
	if err := e.encodeUse(t.Elem, fmt.Sprintf("%s[%s]", x, i)); err != nil {
		return err
	}
	e.p("}")
	return nil
}

func (e *emitter) encodeStruct(t *typeinfo.Type, x string) error {
	if e.layout == layout.Array {
		e.check(fmt.Sprintf("enc.EncodeArrayLen(%d)", len(t.Fields)))
		for _, f := range t.Fields {
			if err := e.encodeUse(f.Type, x+"."+f.Name); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil
	}
	n := e.tmp("n")
	fixed := 0
	for _, f := range t.Fields {
		if omittable(f) {
			continue
		}
		fixed++
	}
	e.p("%s := %d", n, fixed)
	for _, f := range t.Fields {
		if !omittable(f) {
			continue
		}
		e.p("if %s {", present(f.Type, x+"."+f.Name))
		e.p("%s++", n)
		e.p("}")
	}
	e.check(fmt.Sprintf("enc.EncodeMapLen(%s)", n))
	for _, f := range t.Fields {
		fx := x + "." + f.Name
		if omittable(f) {
			e.p("if %s {", present(f.Type, fx))
		}
		e.check(fmt.Sprintf("enc.EncodeString(%q)", f.Key))
		if err := e.encodeUse(f.Type, fx); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
		if omittable(f) {
			e.p("}")
		}
	}
	return nil
}

// omittable reports whether f may be left out of map layout. Arrays and
// structs other than time.Time are always written.
func omittable(f *typeinfo.Field) bool {
	if !f.OmitEmpty {
		return false
	}
	switch f.Type.Kind {
	case typeinfo.Array, typeinfo.Struct:
		return false
	}
	return true
}

// present is the condition under which the omitempty value x is written.
func present(t *typeinfo.Type, x string) string {
	switch {
	case t.Kind == typeinfo.Bool:
		return x
	case t.Kind == typeinfo.String:
		return x + ` != ""`
	case t.Kind == typeinfo.Time:
		return "!" + x + ".IsZero()"
	case t.Kind.IsInt(), t.Kind.IsUint(), t.Kind == typeinfo.Float32, t.Kind == typeinfo.Float64:
		return x + " != 0"
	}
	return x + " != nil"
}

func checkMapKey(t *typeinfo.Type) error {
	k := t.Key.Kind
	if !k.IsScalar() || k == typeinfo.Bytes || k == typeinfo.Any {
		return errors.Wrapf(ErrUnsupported, "map key %s", t.Key)
	}
	return nil
}

// decodeUse writes the decoding into x, an addressable value of type t used
// by another type.
func (e *emitter) decodeUse(t *typeinfo.Type, x string) error {
	if t.Referable() {
		method := "DecodeMsgpack"
		if t.ID() != e.root.ID() {
			method = e.helper(t).dec
		}
		e.check(fmt.Sprintf("s.%s(dec, &%s)", method, x))
		return nil
	}
	return e.decodeBody(t, x)
}

func (e *emitter) decodeBody(t *typeinfo.Type, x string) error {
	if call, ok := decodeCalls[t.Kind]; ok {
		r := e.tmp("x")
		e.p("if %s, err := %s; err != nil {", r, call)
		e.p("return err")
		e.p("} else {")
		if t.Named() {
			goType, err := e.spell(t)
			if err != nil {
				return err
			}
			e.p("%s = %s(%s)", x, goType, r)
		} else {
			e.p("%s = %s", x, r)
		}
		e.p("}")
		return nil
	}
	switch t.Kind {
	case typeinfo.Pointer:
		elem, err := e.spell(t.Elem)
		if err != nil {
			return err
		}
		msgpcode := e.imports.use(msgpcodePath)
		c := e.tmp("c")
		e.p("if %s, err := dec.PeekCode(); err != nil {", c)
		e.p("return err")
		e.p("} else if %s == %s.Nil {", c, msgpcode)
		e.check("dec.DecodeNil()")
		e.p("%s = nil", x)
		e.p("} else {")
		e.p("if %s == nil {", x)
		e.p("%s = new(%s)", x, elem)
		e.p("}")
		if err := e.decodeUse(t.Elem, "(*"+x+")"); err != nil {
			return err
		}
		e.p("}")
	case typeinfo.Slice:
		goType, err := e.spell(t)
		if err != nil {
			return err
		}
		n, i := e.tmp("n"), e.tmp("i")
		e.p("if %s, err := dec.DecodeArrayLen(); err != nil {", n)
		e.p("return err")
		e.p("} else if %s < 0 {", n)
		e.p("%s = nil", x)
		e.p("} else {")
		e.p("%s = make(%s, %s)", x, goType, n)
		e.p("for %s := 0; %s < %s; %s++ {", i, i, n, i)
		if err := e.decodeUse(t.Elem, fmt.Sprintf("%s[%s]", x, i)); err != nil {
			return err
		}
		e.p("}")
		e.p("}")
	case typeinfo.Array:
		goType, err := e.spell(t)
		if err != nil {
			return err
		}
		n, i := e.tmp("n"), e.tmp("i")
		e.p("if %s, err := dec.DecodeArrayLen(); err != nil {", n)
		e.p("return err")
		e.p("} else {")
		e.p("%s = %s{}", x, goType)
		e.p("for %s := 0; %s < %s; %s++ {", i, i, n, i)
		e.p("if %s >= %d {", i, t.Len)
		e.check("dec.Skip()")
		e.p("continue")
		e.p("}")
		if err := e.decodeUse(t.Elem, fmt.Sprintf("%s[%s]", x, i)); err != nil {
			return err
		}
		e.p("}")
		e.p("}")
	case typeinfo.Map:
		if err := checkMapKey(t); err != nil {
			return err
		}
		goType, err := e.spell(t)
		if err != nil {
			return err
		}
		keyType, err := e.spell(t.Key)
		if err != nil {
			return err
		}
		elemType, err := e.spell(t.Elem)
		if err != nil {
			return err
		}
		n, i, k, v := e.tmp("n"), e.tmp("i"), e.tmp("k"), e.tmp("v")
		e.p("if %s, err := dec.DecodeMapLen(); err != nil {", n)
		e.p("return err")
		e.p("} else if %s < 0 {", n)
		e.p("%s = nil", x)
		e.p("} else {")
		e.p("%s = make(%s, %s)", x, goType, n)
		e.p("for %s := 0; %s < %s; %s++ {", i, i, n, i)
		e.p("var %s %s", k, keyType)
		if err := e.decodeUse(t.Key, k); err != nil {
			return err
		}
		e.p("var %s %s", v, elemType)
		if err := e.decodeUse(t.Elem, v); err != nil {
			return err
		}
		e.p("%s[%s] = %s", x, k, v)
		e.p("}")
		e.p("}")
	case typeinfo.Struct:
		return e.decodeStruct(t, x)
	case typeinfo.Unsupported:
		return errors.Wrapf(ErrUnsupported, "%s", t.Repr)
	default:
		return errors.Wrapf(ErrUnsupported, "kind %s of %s", t.Kind, t)
	}
	return nil
}

func (e *emitter) decodeStruct(t *typeinfo.Type, x string) error {
	n, i := e.tmp("n"), e.tmp("i")
	if e.layout == layout.Array {
		e.p("if %s, err := dec.DecodeArrayLen(); err != nil {", n)
		e.p("return err")
		e.p("} else {")
		e.p("for %s := 0; %s < %s; %s++ {", i, i, n, i)
		e.p("switch %s {", i)
		for j, f := range t.Fields {
			e.p("case %d:", j)
			if err := e.decodeUse(f.Type, x+"."+f.Name); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		e.p("default:")
		e.check("dec.Skip()")
		e.p("}")
		e.p("}")
		e.p("}")
		return nil
	}
	key := e.tmp("key")
	e.p("if %s, err := dec.DecodeMapLen(); err != nil {", n)
	e.p("return err")
	e.p("} else {")
	e.p("for %s := 0; %s < %s; %s++ {", i, i, n, i)
	e.p("%s, err := dec.DecodeString()", key)
	e.p("if err != nil {")
	e.p("return err")
	e.p("}")
	e.p("switch %s {", key)
	for _, f := range t.Fields {
		e.p("case %q:", f.Key)
		if err := e.decodeUse(f.Type, x+"."+f.Name); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
	}
	e.p("default:")
	e.check("dec.Skip()")
	e.p("}")
	e.p("}")
	e.p("}")
	return nil
}

// ValidPackage reports whether name can be the package clause of an
// emitted file.
func ValidPackage(name string) bool {
	return token.IsIdentifier(name) && name != "_"
}
