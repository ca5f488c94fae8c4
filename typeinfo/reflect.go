package typeinfo

import (
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// FromReflect builds the Type of rt. Kinds that cannot be serialized yield
// Unsupported types rather than errors; generators reject them when asked to
// emit code for them.
func FromReflect(rt reflect.Type) *Type {
	c := &reflectConverter{seen: map[reflect.Type]*Type{}}
	return c.convert(rt)
}

type reflectConverter struct {
	seen map[reflect.Type]*Type
}

func (c *reflectConverter) convert(rt reflect.Type) *Type {
	if t, ok := c.seen[rt]; ok {
		return t
	}
	t := &Type{}
	if rt.PkgPath() != "" {
		t.PkgPath = rt.PkgPath()
		t.Name = rt.Name()
	}
	c.seen[rt] = t

	if rt == timeType {
		t.Kind = Time
		return t
	}
	switch rt.Kind() {
	case reflect.Bool:
		t.Kind = Bool
	case reflect.Int:
		t.Kind = Int
	case reflect.Int8:
		t.Kind = Int8
	case reflect.Int16:
		t.Kind = Int16
	case reflect.Int32:
		t.Kind = Int32
	case reflect.Int64:
		t.Kind = Int64
	case reflect.Uint:
		t.Kind = Uint
	case reflect.Uint8:
		t.Kind = Uint8
	case reflect.Uint16:
		t.Kind = Uint16
	case reflect.Uint32:
		t.Kind = Uint32
	case reflect.Uint64:
		t.Kind = Uint64
	case reflect.Float32:
		t.Kind = Float32
	case reflect.Float64:
		t.Kind = Float64
	case reflect.String:
		t.Kind = String
	case reflect.Slice:
		if el := rt.Elem(); el.Kind() == reflect.Uint8 && el.PkgPath() == "" {
			t.Kind = Bytes
			break
		}
		t.Kind = Slice
		t.Elem = c.convert(rt.Elem())
	case reflect.Array:
		t.Kind = Array
		t.Len = rt.Len()
		t.Elem = c.convert(rt.Elem())
	case reflect.Map:
		t.Kind = Map
		t.Key = c.convert(rt.Key())
		t.Elem = c.convert(rt.Elem())
	case reflect.Pointer:
		t.Kind = Pointer
		t.Elem = c.convert(rt.Elem())
	case reflect.Interface:
		if rt.NumMethod() != 0 {
			t.Kind = Unsupported
			t.Repr = rt.String()
			break
		}
		t.Kind = Any
	case reflect.Struct:
		t.Kind = Struct
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag := parseFieldTag(sf.Tag)
			if tag.Skip {
				continue
			}
			key := tag.Key
			if key == "" {
				key = sf.Name
			}
			t.Fields = append(t.Fields, &Field{
				Name:      sf.Name,
				Key:       key,
				Index:     i,
				Type:      c.convert(sf.Type),
				OmitEmpty: tag.OmitEmpty,
			})
		}
	default:
		t.Kind = Unsupported
		t.Repr = rt.String()
	}
	return t
}
