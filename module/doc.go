// Package module holds compiled serializer modules.
//
// A [Module] is a named, versioned set of [Routine]s, one per Go type. A
// routine is a tree of [Code] instructions produced by [Compile] ahead of
// time, so the [Codec] executing it never parses tags or enumerates fields
// while marshaling.
//
// Modules are stored in a single file (see [Write] and [Read]): the magic
// bytes "SGMOD", a format version byte and a MessagePack body.
//
//	m, err := module.Load("geo.sgm")
//	if err != nil {
//		return err
//	}
//	c := module.NewCodec(m)
//	data, err := c.Marshal(&geo.Point{X: 1, Y: 2})
//
// # Related Packages
//
//   - github.com/signadot/serialgen - generates module files
//   - github.com/signadot/serialgen/typeinfo - type model compiled here
package module
