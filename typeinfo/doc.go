// Package typeinfo models the Go types a serializer is generated for.
//
// A [Type] is built either from a reflect.Type ([FromReflect]) or from
// type-checked source through a [Loader], so the generators can work the same
// way whether the caller links the types in or only names them.
//
// Identity is by [Type.ID]: the import path and name for named types, the Go
// spelling for unnamed ones. [Escape] turns an identity into a string usable
// as a Go identifier or file name.
//
// # Related Packages
//
//   - github.com/signadot/serialgen/module - compiles types into routines
//   - github.com/signadot/serialgen/gosrc - renders types as Go source
package typeinfo
