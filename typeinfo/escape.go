package typeinfo

import (
	"fmt"
	"strings"
)

// Escape maps s, a type identity or type name, to a string made only of
// ASCII letters, digits and underscores.
//
// Letters and digits are kept, '.' becomes "_", '/' becomes "__" and every
// other rune, '_' included, becomes "_x<hex>_". Import paths never hold
// "..", "./" or "/.", so distinct identities escape to distinct strings.
func Escape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.':
			sb.WriteByte('_')
		case r == '/':
			sb.WriteString("__")
		default:
			fmt.Fprintf(&sb, "_x%x_", r)
		}
	}
	return sb.String()
}

// MemberName is the name a serializer for t carries inside a module.
func MemberName(t *Type) string {
	return Escape(t.ID()) + "Serializer"
}

// UnitName is the name of the source unit generated for t. It depends on
// the type name only, so two packages declaring the same name collide.
func UnitName(t *Type) string {
	return Escape(t.Name)
}
