package module

import (
	"github.com/cockroachdb/errors"

	"github.com/signadot/serialgen/layout"
)

// Ext is the file extension of module files.
const Ext = ".sgm"

var (
	ErrNoRoutine   = errors.New("no routine")
	ErrShape       = errors.New("type does not match routine")
	ErrBadModule   = errors.New("bad module file")
	ErrUnsupported = errors.New("unsupported type")
)

// Op is a routine instruction.
type Op uint8

const (
	OpInvalid Op = iota
	OpBool
	OpInt
	OpUint
	OpFloat32
	OpFloat64
	OpString
	OpBytes
	OpTime
	OpAny
	OpPointer
	OpSlice
	OpArray
	OpMap
	OpStruct
	OpRef
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpBool:    "bool",
	OpInt:     "int",
	OpUint:    "uint",
	OpFloat32: "float32",
	OpFloat64: "float64",
	OpString:  "string",
	OpBytes:   "bytes",
	OpTime:    "time",
	OpAny:     "any",
	OpPointer: "pointer",
	OpSlice:   "slice",
	OpArray:   "array",
	OpMap:     "map",
	OpStruct:  "struct",
	OpRef:     "ref",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}

// Code is one instruction of a routine.
type Code struct {
	Op Op `msgpack:"op"`
	// Kind is the typeinfo.Kind of scalar operands.
	Kind uint8 `msgpack:"kind,omitempty"`
	// Ref is the identity of the type whose routine OpRef runs.
	Ref    string       `msgpack:"ref,omitempty"`
	Len    int          `msgpack:"len,omitempty"`
	Key    *Code        `msgpack:"key,omitempty"`
	Elem   *Code        `msgpack:"elem,omitempty"`
	Fields []*FieldCode `msgpack:"fields,omitempty"`
}

// FieldCode is the instruction for one struct field.
type FieldCode struct {
	Name      string `msgpack:"name"`
	Key       string `msgpack:"key"`
	Index     int    `msgpack:"index"`
	OmitEmpty bool   `msgpack:"omit,omitempty"`
	Code      *Code  `msgpack:"code"`
}

// Routine is the compiled serializer of one type.
type Routine struct {
	// Type is the identity of the serialized type.
	Type string `msgpack:"type"`
	// Member is the escaped member name of the routine.
	Member string `msgpack:"member"`
	Body   *Code  `msgpack:"body"`
}

// Module is a set of routines under one name, version and layout.
type Module struct {
	Name    string
	Version string
	Layout  layout.Layout

	routines []*Routine
	byType   map[string]*Routine
	byMember map[string]*Routine
}

// New creates an empty module. Its identity cannot change afterwards.
func New(name, version string, l layout.Layout) *Module {
	return &Module{
		Name:     name,
		Version:  version,
		Layout:   l,
		byType:   map[string]*Routine{},
		byMember: map[string]*Routine{},
	}
}

// Add appends r. Adding a second routine for the same type, or one whose
// member name is taken, fails.
func (m *Module) Add(r *Routine) error {
	if _, ok := m.byType[r.Type]; ok {
		return errors.Newf("module %s already has a routine for %s", m.Name, r.Type)
	}
	if other, ok := m.byMember[r.Member]; ok {
		return errors.Newf("member %s of %s collides with %s", r.Member, r.Type, other.Type)
	}
	m.routines = append(m.routines, r)
	m.byType[r.Type] = r
	m.byMember[r.Member] = r
	return nil
}

// Has reports whether the module has a routine for the type id.
func (m *Module) Has(id string) bool {
	_, ok := m.byType[id]
	return ok
}

// Routine returns the routine for the type id.
func (m *Module) Routine(id string) (*Routine, bool) {
	r, ok := m.byType[id]
	return r, ok
}

// Routines returns the routines in the order they were added.
func (m *Module) Routines() []*Routine {
	return m.routines
}

// Members returns the member names in the order they were added.
func (m *Module) Members() []string {
	res := make([]string, len(m.routines))
	for i, r := range m.routines {
		res[i] = r.Member
	}
	return res
}

// FileName is the base name of the module's file.
func (m *Module) FileName() string {
	return m.Name + Ext
}
