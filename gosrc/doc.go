// Package gosrc renders Go source implementing MessagePack serializers.
//
// Emit produces one file per type. The file declares a <Name>Serializer type
// with EncodeMsgpack, DecodeMsgpack, Marshal and Unmarshal methods working on
// pointers to the type. Fields are written in declared order, as a
// MessagePack array in array layout or as a map keyed by field key in map
// layout. Named composite types used by the type are coded by unexported
// methods of the same serializer, so a file depends only on the type it was
// generated for and the packages declaring the types it uses.
package gosrc
