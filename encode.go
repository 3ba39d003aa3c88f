package tot

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Marshaler is implemented by types that want to write themselves through
// the encoder directly, for example to emit enum-style variants.
type Marshaler interface {
	MarshalTOT(e *Encoder) error
}

// A formatter decides what goes between the atoms of a document: the
// pretty formatter indents, the compact formatter separates with commas.
type formatter interface {
	// beforeEntry is written before the index'th entry of the current
	// container. A dict entry starts at its key.
	beforeEntry(w io.Writer, index int) error
	// beforeValue is written between a key and its value.
	beforeValue(w io.Writer) error
	open(w io.Writer, bracket byte) error
	// close is written after count entries; an empty container closes on
	// the opening line.
	close(w io.Writer, bracket byte, count int) error
	finish(w io.Writer, wrote bool) error
}

// prettyFormatter writes one entry per line, indented four spaces per
// bracketed container. The implicit root prints no brackets and indents
// nothing. indents counts printed brackets, which is why it is distinct
// from the encoder's depth.
type prettyFormatter struct {
	indents int
}

func (f *prettyFormatter) beforeEntry(w io.Writer, index int) error {
	if f.indents == 0 && index == 0 {
		return nil
	}
	_, err := io.WriteString(w, "\n"+strings.Repeat("    ", f.indents))
	return err
}

func (f *prettyFormatter) beforeValue(w io.Writer) error {
	_, err := io.WriteString(w, " ")
	return err
}

func (f *prettyFormatter) open(w io.Writer, bracket byte) error {
	f.indents++
	_, err := w.Write([]byte{bracket})
	return err
}

func (f *prettyFormatter) close(w io.Writer, bracket byte, count int) error {
	f.indents--
	if count == 0 {
		_, err := w.Write([]byte{bracket})
		return err
	}
	_, err := io.WriteString(w, "\n"+strings.Repeat("    ", f.indents)+string(bracket))
	return err
}

func (f *prettyFormatter) finish(w io.Writer, wrote bool) error {
	if !wrote {
		return nil
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// compactFormatter writes a document on a single line, with ", " between
// entries and no trailing newline.
type compactFormatter struct{}

func (compactFormatter) beforeEntry(w io.Writer, index int) error {
	if index == 0 {
		return nil
	}
	_, err := io.WriteString(w, ", ")
	return err
}

func (compactFormatter) beforeValue(w io.Writer) error {
	_, err := io.WriteString(w, " ")
	return err
}

func (compactFormatter) open(w io.Writer, bracket byte) error {
	_, err := w.Write([]byte{bracket})
	return err
}

func (compactFormatter) close(w io.Writer, bracket byte, count int) error {
	_, err := w.Write([]byte{bracket})
	return err
}

func (compactFormatter) finish(w io.Writer, wrote bool) error {
	return nil
}

// Encoder writes a Tot document one push operation at a time. Errors are
// sticky: after the first failure every operation returns the same error
// and writes nothing.
//
// The encoder mirrors the decoder's depth rules: a dict begun at depth 0
// is the implicit root and prints no braces, while lists and nested dicts
// always print their brackets.
type Encoder struct {
	w   io.Writer
	f   formatter
	err error

	depth        int
	implicitRoot bool
	counts       []int
	pendingKey   bool
	wrote        bool
}

// NewEncoder returns an encoder producing pretty output: one entry per
// line, four-space indents, a trailing newline.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, f: &prettyFormatter{}, counts: []int{0}}
}

// NewCompactEncoder returns an encoder producing single-line output.
func NewCompactEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, f: compactFormatter{}, counts: []int{0}}
}

func (e *Encoder) setErr(err error) {
	if e.err == nil && err != nil {
		e.err = ioErr(err)
	}
}

func (e *Encoder) writeString(s string) {
	if e.err != nil {
		return
	}
	_, err := io.WriteString(e.w, s)
	e.setErr(err)
	e.wrote = true
}

// startEntry writes the separator before the next entry of the current
// container, or the key-value gap when a key was just written.
func (e *Encoder) startEntry() {
	if e.err != nil {
		return
	}
	if e.pendingKey {
		e.pendingKey = false
		e.setErr(e.f.beforeValue(e.w))
		return
	}
	top := len(e.counts) - 1
	e.setErr(e.f.beforeEntry(e.w, e.counts[top]))
	e.counts[top]++
}

func (e *Encoder) scalar(s string) error {
	e.startEntry()
	e.writeString(s)
	return e.err
}

// Null writes the unit value.
func (e *Encoder) Null() error {
	return e.scalar("null")
}

// Bool writes true or false.
func (e *Encoder) Bool(b bool) error {
	if b {
		return e.scalar("true")
	}
	return e.scalar("false")
}

// Number writes a double. Whole numbers keep a trailing .0 so they read
// back as numbers rather than keys; NaN and the infinities have no
// representation and fail.
func (e *Encoder) Number(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		if e.err == nil {
			e.err = errf(FrameworkError, -1, "cannot encode %v", f)
		}
		return e.err
	}
	return e.scalar(formatNumber(f))
}

// String writes a quoted, escaped string.
func (e *Encoder) String(s string) error {
	return e.scalar(quoteString(s))
}

// Rune writes a single character as a one-character string.
func (e *Encoder) Rune(r rune) error {
	return e.scalar(quoteString(string(r)))
}

// Key writes a dict key, bare when the reader would scan it back
// unchanged and quoted otherwise.
func (e *Encoder) Key(name string) error {
	e.startEntry()
	e.writeString(quoteKey(name))
	e.pendingKey = true
	return e.err
}

func (e *Encoder) openContainer(bracket byte) error {
	e.startEntry()
	if e.err != nil {
		return e.err
	}
	e.setErr(e.f.open(e.w, bracket))
	e.wrote = true
	e.depth++
	e.counts = append(e.counts, 0)
	return e.err
}

// BeginList opens a list. Lists always print their brackets, at the root
// included.
func (e *Encoder) BeginList() error {
	return e.openContainer('[')
}

// EndList closes the innermost list.
func (e *Encoder) EndList() error {
	if e.err != nil {
		return e.err
	}
	count := e.counts[len(e.counts)-1]
	e.counts = e.counts[:len(e.counts)-1]
	e.depth--
	e.setErr(e.f.close(e.w, ']', count))
	return e.err
}

// BeginDict opens a dict. At depth 0 the dict is the document's implicit
// root and prints no braces; nested dicts print them.
func (e *Encoder) BeginDict() error {
	if e.depth == 0 {
		e.implicitRoot = true
		e.depth++
		e.counts = append(e.counts, 0)
		return e.err
	}
	return e.openContainer('{')
}

// EndDict closes the innermost dict.
func (e *Encoder) EndDict() error {
	if e.err != nil {
		return e.err
	}
	count := e.counts[len(e.counts)-1]
	e.counts = e.counts[:len(e.counts)-1]
	e.depth--
	if e.depth == 0 && e.implicitRoot {
		return nil
	}
	e.setErr(e.f.close(e.w, '}', count))
	return e.err
}

// UnitVariant writes an enum variant with no payload as its bare name.
func (e *Encoder) UnitVariant(name string) error {
	return e.String(name)
}

// BeginVariant writes the head of an enum variant carrying a payload: a
// one-entry dict binding the name to the payload. The caller writes the
// payload and closes with EndVariant. The dict follows the usual depth
// rules, so a variant at the document root prints no braces.
func (e *Encoder) BeginVariant(name string) error {
	if err := e.BeginDict(); err != nil {
		return err
	}
	return e.Key(name)
}

// EndVariant closes the dict opened by BeginVariant.
func (e *Encoder) EndVariant() error {
	return e.EndDict()
}

// Finish completes the document. All containers must be closed. Pretty
// output gains its trailing newline here.
func (e *Encoder) Finish() error {
	if e.err != nil {
		return e.err
	}
	if e.depth != 0 {
		e.err = errf(FrameworkError, -1, "unclosed container")
		return e.err
	}
	e.setErr(e.f.finish(e.w, e.wrote))
	return e.err
}

func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u{%X}`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// quoteKey writes a key bare exactly when the scanner would read the same
// key back: no whitespace, commas or control characters anywhere, and no
// leading character that the grammar gives another meaning.
func quoteKey(s string) string {
	if s == "" {
		return `""`
	}
	for i, r := range s {
		if r <= ' ' || r == ',' || r == '"' || r == '\\' || r == 0x7f {
			return quoteString(s)
		}
		if i == 0 && (r == '[' || r == ']' || r == '{' || r == '}') {
			return quoteString(s)
		}
	}
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*") {
		return quoteString(s)
	}
	return s
}

// Marshal returns the pretty Tot encoding of v.
//
// Marshal acts similarly to json.Marshal: structs become dicts with one
// entry per exported field, named by a `tot:"name"` tag, then a
// `json:"name"` tag, and otherwise by the field name. Fields tagged with
// omitempty are skipped when they hold their type's empty value. Maps
// become dicts sorted by rendered key, slices and arrays become lists,
// pointers and interfaces encode what they point to, and nil becomes
// null.
//
// Types implementing [Marshaler] write themselves; otherwise types
// implementing [encoding.TextMarshaler] are encoded as strings. All Go
// integer types are written as doubles, rounding those above 2^53 to the
// nearest representable value.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalWith(NewEncoder(&buf), v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCompact returns the single-line Tot encoding of v.
func MarshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalWith(NewCompactEncoder(&buf), v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalWith(e *Encoder, v any) error {
	if err := e.marshal(reflect.ValueOf(v)); err != nil {
		return err
	}
	return e.Finish()
}

func (e *Encoder) marshal(v reflect.Value) error {
	if !v.IsValid() {
		return e.Null()
	}
	if v.Kind() != reflect.Ptr || !v.IsNil() {
		if m, ok := v.Interface().(Marshaler); ok {
			return m.MarshalTOT(e)
		}
		if v.CanAddr() {
			if m, ok := v.Addr().Interface().(Marshaler); ok {
				return m.MarshalTOT(e)
			}
		}
		if tm, ok := v.Interface().(encoding.TextMarshaler); ok {
			return e.marshalText(tm)
		}
		if v.CanAddr() {
			if tm, ok := v.Addr().Interface().(encoding.TextMarshaler); ok {
				return e.marshalText(tm)
			}
		}
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return e.Null()
		}
		return e.marshal(v.Elem())
	case reflect.Bool:
		return e.Bool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.Number(float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.Number(float64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return e.Number(v.Float())
	case reflect.String:
		return e.String(v.String())
	case reflect.Slice, reflect.Array:
		return e.marshalList(v)
	case reflect.Map:
		return e.marshalMap(v)
	case reflect.Struct:
		return e.marshalStruct(v)
	}
	return errf(FrameworkError, -1, "unsupported type: %v", v.Type())
}

func (e *Encoder) marshalText(tm encoding.TextMarshaler) error {
	text, err := tm.MarshalText()
	if err != nil {
		return errf(FrameworkError, -1, "%v", err)
	}
	return e.String(string(text))
}

func (e *Encoder) marshalList(v reflect.Value) error {
	if err := e.BeginList(); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := e.marshal(v.Index(i)); err != nil {
			return err
		}
	}
	return e.EndList()
}

func (e *Encoder) marshalMap(v reflect.Value) error {
	if err := e.BeginDict(); err != nil {
		return err
	}
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := marshalKey(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, entry{key, iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	for _, entry := range entries {
		if err := e.Key(entry.key); err != nil {
			return err
		}
		if err := e.marshal(entry.value); err != nil {
			return err
		}
	}
	return e.EndDict()
}

// marshalKey renders a map key to its key text. Numeric keys use the
// value rendering so they coerce back symmetrically.
func marshalKey(v reflect.Value) (string, error) {
	if tm, ok := v.Interface().(encoding.TextMarshaler); ok {
		text, err := tm.MarshalText()
		if err != nil {
			return "", errf(FrameworkError, -1, "%v", err)
		}
		return string(text), nil
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return formatNumber(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return formatNumber(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return formatNumber(v.Float()), nil
	}
	return "", errf(FrameworkError, -1, "unsupported key type: %v", v.Type())
}

func (e *Encoder) marshalStruct(v reflect.Value) error {
	if err := e.BeginDict(); err != nil {
		return err
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		if ft.PkgPath != "" {
			continue
		}
		name := ft.Name
		opts := ""
		tag, tagged := ft.Tag.Lookup("tot")
		if !tagged {
			tag, tagged = ft.Tag.Lookup("json")
		}
		if tagged {
			if tag == "-" {
				continue
			}
			name, opts, _ = strings.Cut(tag, ",")
			if name == "" {
				name = ft.Name
			}
		}
		field := v.Field(i)
		if hasOption(opts, "omitempty") && isEmptyValue(field) {
			continue
		}
		if err := e.Key(name); err != nil {
			return err
		}
		if err := e.marshal(field); err != nil {
			return err
		}
	}
	return e.EndDict()
}

func hasOption(opts, name string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == name {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return false
}
