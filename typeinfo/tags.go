package typeinfo

import (
	"reflect"
	"strings"
)

// ParseStructTag parses the content of a key=value style tag into a map.
// Flags without a value map to "". Values may be double quoted to carry
// commas or spaces.
//
// Example: `serialgen:"key=\"x y\",omitempty"` has content `key="x y",omitempty`.
func ParseStructTag(tag string) map[string]string {
	result := make(map[string]string)

	var key, value strings.Builder
	inValue := false
	inQuote := false
	quoted := false

	flush := func() {
		k := strings.TrimSpace(key.String())
		v := value.String()
		if !quoted {
			v = strings.TrimSpace(v)
		}
		if k != "" {
			result[k] = v
		}
		key.Reset()
		value.Reset()
		inValue = false
		quoted = false
	}

	for _, r := range strings.TrimSpace(tag) {
		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
				continue
			}
			value.WriteRune(r)
		case !inValue && r == '=':
			inValue = true
		case r == ',':
			flush()
		case inValue && r == '"' && value.Len() == 0:
			inQuote = true
			quoted = true
		case inValue:
			value.WriteRune(r)
		default:
			key.WriteRune(r)
		}
	}
	flush()
	return result
}

// fieldTag holds the serialization settings of one struct field.
type fieldTag struct {
	Key       string
	OmitEmpty bool
	Skip      bool
}

// parseFieldTag reads the msgpack tag (`msgpack:"key,omitempty"`,
// `msgpack:"-"`) and then applies serialgen overrides
// (`serialgen:"key=k,omitempty,skip"`).
func parseFieldTag(tag reflect.StructTag) fieldTag {
	var ft fieldTag
	if mp, ok := tag.Lookup("msgpack"); ok {
		if mp == "-" {
			ft.Skip = true
		}
		parts := strings.Split(mp, ",")
		if parts[0] != "-" {
			ft.Key = parts[0]
		}
		for _, p := range parts[1:] {
			if p == "omitempty" {
				ft.OmitEmpty = true
			}
		}
	}
	if sg, ok := tag.Lookup("serialgen"); ok {
		m := ParseStructTag(sg)
		if k, ok := m["key"]; ok {
			ft.Key = k
		}
		if _, ok := m["omitempty"]; ok {
			ft.OmitEmpty = true
		}
		if _, ok := m["skip"]; ok {
			ft.Skip = true
		}
	}
	return ft
}
