package typeinfo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateKey reports two fields of a struct sharing a map-layout key.
var ErrDuplicateKey = errors.New("duplicate field key")

// Kind is the serialization-relevant kind of a type.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int
	Int8
	Int16
	Int32
	Int64
	Uint
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
	Bytes
	Time
	Any
	Pointer
	Slice
	Array
	Map
	Struct
	Unsupported
)

var kindNames = [...]string{
	Invalid:     "invalid",
	Bool:        "bool",
	Int:         "int",
	Int8:        "int8",
	Int16:       "int16",
	Int32:       "int32",
	Int64:       "int64",
	Uint:        "uint",
	Uint8:       "uint8",
	Uint16:      "uint16",
	Uint32:      "uint32",
	Uint64:      "uint64",
	Float32:     "float32",
	Float64:     "float64",
	String:      "string",
	Bytes:       "[]byte",
	Time:        "time.Time",
	Any:         "interface {}",
	Pointer:     "pointer",
	Slice:       "slice",
	Array:       "array",
	Map:         "map",
	Struct:      "struct",
	Unsupported: "unsupported",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsInt reports whether k is a signed integer kind.
func (k Kind) IsInt() bool { return k >= Int && k <= Int64 }

// IsUint reports whether k is an unsigned integer kind.
func (k Kind) IsUint() bool { return k >= Uint && k <= Uint64 }

// IsScalar reports whether values of kind k are encoded as a single
// MessagePack value without nesting.
func (k Kind) IsScalar() bool {
	return k >= Bool && k <= Time
}

// Type describes a Go type as seen by the serializer generators.
//
// Struct types may be cyclic through Pointer, Slice or Map elements; code
// walking a Type must stop at named types it has already visited.
type Type struct {
	Kind Kind

	// PkgPath and Name are set for named (defined) types only.
	PkgPath string
	Name    string

	// Elem is the element of pointers, slices, arrays and maps.
	Elem *Type
	// Key is the key type of maps.
	Key *Type
	// Len is the length of arrays.
	Len int

	// Fields holds the serialized fields of structs in declared order.
	Fields []*Field

	// Repr is the Go spelling of an Unsupported type.
	Repr string
}

// Field is one serialized struct field.
type Field struct {
	// Name is the Go field name.
	Name string
	// Key is the map-layout key, from tags or the field name.
	Key string
	// Index is the position of the field among all of the struct's fields,
	// unexported and skipped ones included.
	Index int
	Type  *Type
	// OmitEmpty drops zero values in map layout.
	OmitEmpty bool
}

// CheckKeys returns an error wrapping ErrDuplicateKey if two fields of the
// struct t have the same key.
func (t *Type) CheckKeys() error {
	seen := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		if other, ok := seen[f.Key]; ok {
			return fmt.Errorf("%w %q in %s: fields %s and %s", ErrDuplicateKey, f.Key, t, other, f.Name)
		}
		seen[f.Key] = f.Name
	}
	return nil
}

// Named reports whether t is a defined type.
func (t *Type) Named() bool {
	return t.Name != ""
}

// Composite reports whether t nests other values.
func (t *Type) Composite() bool {
	switch t.Kind {
	case Pointer, Slice, Array, Map, Struct:
		return true
	}
	return false
}

// Referable reports whether t gets its own serializer when used from
// another type, as opposed to being encoded inline.
func (t *Type) Referable() bool {
	return t.Named() && t.Composite()
}

// ID returns the identity of t.
func (t *Type) ID() string {
	if t.Named() {
		if t.PkgPath == "" {
			return t.Name
		}
		return t.PkgPath + "." + t.Name
	}
	switch t.Kind {
	case Pointer:
		return "*" + t.Elem.ID()
	case Slice:
		return "[]" + t.Elem.ID()
	case Array:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem.ID())
	case Map:
		return "map[" + t.Key.ID() + "]" + t.Elem.ID()
	case Struct:
		if len(t.Fields) == 0 {
			return "struct {}"
		}
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + " " + f.Type.ID()
		}
		return "struct { " + strings.Join(parts, "; ") + " }"
	case Unsupported:
		return t.Repr
	case Bytes:
		return "[]uint8"
	}
	return t.Kind.String()
}

func (t *Type) String() string {
	return t.ID()
}

// PackageName returns the last element of t's import path.
func (t *Type) PackageName() string {
	if i := strings.LastIndexByte(t.PkgPath, '/'); i >= 0 {
		return t.PkgPath[i+1:]
	}
	return t.PkgPath
}
