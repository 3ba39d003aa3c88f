// Package tot implements [Tot] parsing and serializing.
//
// Tot is a small configuration language built for human editing. It has
// the JSON data model of scalars, lists, and dicts, but whitespace and
// commas are interchangeable separators, comments are allowed, and the
// braces around the top-level dict are left out.
//
//	// a basic Tot document
//	name "service"
//	port 8080.0
//	tags [
//	    "a"
//	    "b"
//	]
//
// Like the builtin json package, tot can automatically convert between Go
// types and Tot values.
//
// For example, you could parse the above document into a struct defined in Go as:
//
//	type Example struct {
//	  Name string         `tot:"name"`
//	  Port int            `tot:"port"`
//	  Tags []string       `tot:"tags"`
//	}
//
//	example := Example{}
//	tot.Unmarshal(data, &example)
//
// Tot has a single number type, the IEEE-754 double. Go integer fields
// are filled by rounding the double to the nearest integer (ties away
// from zero); values outside the field's range are an error, except that
// 64-bit fields saturate at their bounds and unsigned fields clamp
// negative values to zero.
//
// If your type implements [encoding.TextMarshaler] and
// [encoding.TextUnmarshaler] then tot stores it as a string. Types
// wanting structural control, such as enum-like sum types, can implement
// [Marshaler] and [Unmarshaler] to drive the [Encoder] and [Decoder]
// directly.
//
// [Tot]: https://github.com/totlang/tot
package tot
