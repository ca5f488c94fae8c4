// Package layout names the two MessagePack layouts a generated serializer
// can use for struct values.
//
// # Usage
//
//	l, err := layout.Parse("map")
//	if err != nil {
//		return err
//	}
//	fmt.Println(l) // map
//
// Array layout writes a struct as an array of its fields in declared order.
// Map layout writes a struct as a map keyed by field name.
//
// # Related Packages
//
//   - github.com/signadot/serialgen/module - compiled serializer modules
//   - github.com/signadot/serialgen/gosrc - Go source serializers
package layout
