package tot

import (
	"encoding"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unmarshaler is implemented by types that want raw pull access to the
// decoder, for example to read enum-style variants.
type Unmarshaler interface {
	UnmarshalTOT(d *Decoder) error
}

// Decoder reads a Tot document one pull operation at a time, walking the
// input directly without building a value tree.
//
// The depth counter is the one piece of state shared between container
// operations: it records how many explicit containers surround the
// cursor. A dict opened at depth 0 is the document's implicit root, so
// neither brace is consumed and end of input ends the keys; at depth 1
// and above dicts require literal braces. Every Begin must be paired
// with its End so the counter stays balanced, including on error paths.
type Decoder struct {
	s            scanner
	depth        int
	implicitRoot bool
}

// NewDecoder returns a decoder reading from data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{s: scanner{input: string(data)}}
}

// Peek reports the kind of the next value without consuming it, by
// dispatching on the first non-ignored byte.
func (d *Decoder) Peek() (Kind, error) {
	if err := d.s.skipIgnored(); err != nil {
		return 0, err
	}
	c, ok := d.s.peek()
	if !ok {
		return 0, errf(GrammarError, d.s.pos, "unexpected end of input")
	}
	switch {
	case c == 't' || c == 'f':
		return Bool, nil
	case c >= '0' && c <= '9' || c == '-':
		return Number, nil
	case c == '"' || c == '\'':
		return String, nil
	case c == '{':
		return Dict, nil
	case c == '[':
		return List, nil
	case c == 'n':
		return Unit, nil
	}
	return 0, errf(GrammarError, d.s.pos, "unexpected character %q", string(c))
}

// Null consumes the null literal.
func (d *Decoder) Null() error {
	if err := d.s.skipIgnored(); err != nil {
		return err
	}
	if !d.s.null() {
		return errf(CoercionError, d.s.pos, "expected null")
	}
	return nil
}

// Bool consumes true or false.
func (d *Decoder) Bool() (bool, error) {
	if err := d.s.skipIgnored(); err != nil {
		return false, err
	}
	b, ok := d.s.boolean()
	if !ok {
		return false, errf(CoercionError, d.s.pos, "expected boolean")
	}
	return b, nil
}

func (d *Decoder) number() (int, float64, error) {
	if err := d.s.skipIgnored(); err != nil {
		return 0, 0, err
	}
	start := d.s.pos
	f, ok, err := d.s.number()
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, errf(CoercionError, start, "expected number")
	}
	return start, f, nil
}

// Float64 consumes a number.
func (d *Decoder) Float64() (float64, error) {
	_, f, err := d.number()
	return f, err
}

// Float32 consumes a number and rounds it to IEEE-754 single precision.
func (d *Decoder) Float32() (float32, error) {
	_, f, err := d.number()
	return float32(f), err
}

// Int consumes a number and coerces it to a signed integer of the given
// width (8, 16, 32 or 64 bits). The double is rounded to the nearest
// integer with ties away from zero, via [math.Round]. Rounded values
// outside the target range fail with a CoercionError for widths below 64
// bits; 64-bit values saturate to the nearest bound.
func (d *Decoder) Int(bits int) (int64, error) {
	start, f, err := d.number()
	if err != nil {
		return 0, err
	}
	i, cerr := coerceInt(start, f, bits)
	if cerr != nil {
		return 0, cerr
	}
	return i, nil
}

// Uint consumes a number and coerces it to an unsigned integer of the
// given width. Negative values saturate to zero for all widths. Rounded
// values above the target range fail for widths below 64 bits; 64-bit
// values saturate to the upper bound.
func (d *Decoder) Uint(bits int) (uint64, error) {
	start, f, err := d.number()
	if err != nil {
		return 0, err
	}
	u, cerr := coerceUint(start, f, bits)
	if cerr != nil {
		return 0, cerr
	}
	return u, nil
}

func coerceInt(off int, f float64, bits int) (int64, *Error) {
	r := math.Round(f)
	if bits < 64 {
		bound := float64(int64(1) << (bits - 1))
		if r < -bound || r > bound-1 {
			return 0, errf(CoercionError, off, "%v out of range for int%d", f, bits)
		}
		return int64(r), nil
	}
	if r >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	if r <= math.MinInt64 {
		return math.MinInt64, nil
	}
	return int64(r), nil
}

func coerceUint(off int, f float64, bits int) (uint64, *Error) {
	r := math.Round(f)
	if r < 0 {
		return 0, nil
	}
	if bits < 64 {
		bound := float64(uint64(1) << bits)
		if r > bound-1 {
			return 0, errf(CoercionError, off, "%v out of range for uint%d", f, bits)
		}
		return uint64(r), nil
	}
	if r >= math.MaxUint64 {
		return math.MaxUint64, nil
	}
	return uint64(r), nil
}

// String consumes a quoted string.
func (d *Decoder) String() (string, error) {
	if err := d.s.skipIgnored(); err != nil {
		return "", err
	}
	str, ok, err := d.s.quoted()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errf(CoercionError, d.s.pos, "expected string")
	}
	return str, nil
}

// Rune consumes a quoted string and requires it to contain exactly one
// Unicode scalar value.
func (d *Decoder) Rune() (rune, error) {
	if err := d.s.skipIgnored(); err != nil {
		return 0, err
	}
	start := d.s.pos
	str, err := d.String()
	if err != nil {
		return 0, err
	}
	if utf8.RuneCountInString(str) != 1 {
		return 0, errf(CoercionError, start, "expected a single character, got %q", str)
	}
	r, _ := utf8.DecodeRuneInString(str)
	return r, nil
}

// BeginList consumes the opening bracket of a list.
func (d *Decoder) BeginList() error {
	if err := d.s.skipIgnored(); err != nil {
		return err
	}
	if c, ok := d.s.peek(); !ok || c != '[' {
		return errf(GrammarError, d.s.pos, "expected '['")
	}
	d.s.pos++
	d.depth++
	return nil
}

// EndList consumes the closing bracket of a list.
func (d *Decoder) EndList() error {
	d.depth--
	if err := d.s.skipIgnored(); err != nil {
		return err
	}
	if c, ok := d.s.peek(); !ok || c != ']' {
		return errf(GrammarError, d.s.pos, "expected ']'")
	}
	d.s.pos++
	return nil
}

// BeginDict enters a dict. At depth 0 the brace is optional: a braceless
// document is the implicit root, while a leading brace opens an ordinary
// explicit dict. At depth 1 and above the brace is required.
func (d *Decoder) BeginDict() error {
	if err := d.s.skipIgnored(); err != nil {
		return err
	}
	if d.depth == 0 {
		if c, ok := d.s.peek(); ok && c == '{' {
			d.s.pos++
			d.depth++
			return nil
		}
		d.implicitRoot = true
		d.depth++
		return nil
	}
	if c, ok := d.s.peek(); !ok || c != '{' {
		return errf(GrammarError, d.s.pos, "expected '{'")
	}
	d.s.pos++
	d.depth++
	return nil
}

// EndDict leaves a dict, consuming the closing brace unless the dict is
// the implicit root.
func (d *Decoder) EndDict() error {
	if d.depth == 1 && d.implicitRoot {
		d.depth--
		return nil
	}
	d.depth--
	if err := d.s.skipIgnored(); err != nil {
		return err
	}
	if c, ok := d.s.peek(); !ok || c != '}' {
		return errf(GrammarError, d.s.pos, "expected '}'")
	}
	d.s.pos++
	return nil
}

// More reports whether the innermost open container has another element
// or key. At the implicit root, end of input ends the keys; inside
// explicit containers a closing delimiter does.
func (d *Decoder) More() (bool, error) {
	if err := d.s.skipIgnored(); err != nil {
		return false, err
	}
	c, ok := d.s.peek()
	if !ok {
		if d.depth == 1 && d.implicitRoot {
			return false, nil
		}
		return false, errf(GrammarError, d.s.pos, "unexpected end of input")
	}
	if c == ']' || c == '}' {
		return false, nil
	}
	return true, nil
}

// Key consumes a map key: a quoted string or a bare token.
func (d *Decoder) Key() (string, error) {
	if err := d.s.skipIgnored(); err != nil {
		return "", err
	}
	k, ok, err := d.s.key()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errf(GrammarError, d.s.pos, "expected key")
	}
	return k, nil
}

// Variant reads the head of an enum value. A bare quoted string names a
// unit variant, reported with unit true and no payload to decode.
// Otherwise the variant is a one-entry dict binding the name to its
// payload; the caller decodes the payload and then calls EndVariant. The
// dict follows the usual depth rules, so a variant at the document root
// has no braces.
func (d *Decoder) Variant() (name string, unit bool, err error) {
	if err := d.s.skipIgnored(); err != nil {
		return "", false, err
	}
	if c, ok := d.s.peek(); ok && c == '"' {
		str, _, qerr := d.s.quoted()
		if qerr != nil {
			return "", false, qerr
		}
		return str, true, nil
	}
	if err := d.BeginDict(); err != nil {
		return "", false, err
	}
	name, err = d.Key()
	if err != nil {
		return "", false, err
	}
	return name, false, nil
}

// EndVariant closes the dict opened by a non-unit Variant.
func (d *Decoder) EndVariant() error {
	return d.EndDict()
}

// Value parses one complete value into the untyped tree, consuming it.
func (d *Decoder) Value() (Value, error) {
	v, ok, err := d.s.scalarValue()
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, errf(GrammarError, d.s.pos, "expected value")
	}
	return v, nil
}

// Unmarshal parses a Tot document into the value pointed to by v.
// v must be a non-nil pointer. Unmarshal acts similarly to
// json.Unmarshal: struct fields are matched by a `tot:"name"` tag, then a
// `json:"name"` tag, and finally by the field name or its snake_case
// form. Unknown keys are parsed and discarded.
//
// Pointer targets treat null as nil. When unmarshalling into an
// interface, explicit dicts become map[string]any, lists become []any,
// and scalars become bool, float64, string or nil.
//
// If the document is invalid, or does not match the type of v, an error
// is returned and v may be partially filled.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errf(FrameworkError, -1, "invalid target, must be a non-nil pointer")
	}
	d := NewDecoder(data)
	if err := d.unmarshal(rv.Elem()); err != nil {
		return err
	}
	if err := d.s.expectEOF(); err != nil {
		return err
	}
	return nil
}

func (d *Decoder) unmarshal(v reflect.Value) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTOT(d)
		}
		if tu, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			s, err := d.String()
			if err != nil {
				return err
			}
			if err := tu.UnmarshalText([]byte(s)); err != nil {
				return errf(FrameworkError, d.s.pos, "%v", err)
			}
			return nil
		}
	}

	switch v.Kind() {
	case reflect.Ptr:
		// Pointers are options: null becomes nil.
		if err := d.s.skipIgnored(); err != nil {
			return err
		}
		if c, ok := d.s.peek(); ok && c == 'n' {
			if err := d.Null(); err != nil {
				return err
			}
			v.SetZero()
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return d.unmarshal(v.Elem())
	case reflect.Bool:
		b, err := d.Bool()
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	case reflect.String:
		s, err := d.String()
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := d.Float64()
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := d.Int(v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := d.Uint(v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(u)
		return nil
	case reflect.Slice:
		return d.unmarshalSlice(v)
	case reflect.Array:
		return d.unmarshalArray(v)
	case reflect.Map:
		return d.unmarshalMap(v)
	case reflect.Struct:
		return d.unmarshalStruct(v)
	case reflect.Interface:
		if v.NumMethod() != 0 {
			return errf(FrameworkError, -1, "unsupported type: %v", v.Type())
		}
		return d.unmarshalAny(v)
	}
	return errf(FrameworkError, -1, "unsupported type: %v", v.Type())
}

func (d *Decoder) unmarshalSlice(v reflect.Value) error {
	if err := d.BeginList(); err != nil {
		return err
	}
	for {
		more, err := d.More()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := d.unmarshal(elem); err != nil {
			return err
		}
		v.Set(reflect.Append(v, elem))
	}
	return d.EndList()
}

func (d *Decoder) unmarshalArray(v reflect.Value) error {
	if err := d.BeginList(); err != nil {
		return err
	}
	i := 0
	for {
		more, err := d.More()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if i >= v.Len() {
			return errf(FrameworkError, d.s.pos, "too many elements, limit %d", v.Len())
		}
		if err := d.unmarshal(v.Index(i)); err != nil {
			return err
		}
		i++
	}
	if err := d.EndList(); err != nil {
		return err
	}
	if i < v.Len() {
		return errf(FrameworkError, d.s.pos, "expected %d elements, got %d", v.Len(), i)
	}
	return nil
}

func (d *Decoder) unmarshalMap(v reflect.Value) error {
	if err := d.BeginDict(); err != nil {
		return err
	}
	keyType := v.Type().Key()
	elemType := v.Type().Elem()
	for {
		more, err := d.More()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		ks, err := d.Key()
		if err != nil {
			return err
		}
		if v.IsNil() {
			v.Set(reflect.MakeMap(v.Type()))
		}
		key := reflect.New(keyType).Elem()
		if err := d.setKey(ks, key); err != nil {
			return err
		}
		elem := reflect.New(elemType).Elem()
		if err := d.unmarshal(elem); err != nil {
			return err
		}
		v.SetMapIndex(key, elem)
	}
	return d.EndDict()
}

// setKey converts a parsed key into the map's key type. Numeric key types
// use the same coercion rules as values.
func (d *Decoder) setKey(s string, v reflect.Value) error {
	if tu, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		if err := tu.UnmarshalText([]byte(s)); err != nil {
			return errf(FrameworkError, d.s.pos, "invalid key %q: %v", s, err)
		}
		return nil
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
		return nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errf(CoercionError, d.s.pos, "invalid key %q: expected boolean", s)
		}
		v.SetBool(b)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errf(CoercionError, d.s.pos, "invalid key %q: expected number", s)
		}
		v.SetFloat(f)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errf(CoercionError, d.s.pos, "invalid key %q: expected number", s)
		}
		i, cerr := coerceInt(d.s.pos, f, v.Type().Bits())
		if cerr != nil {
			return cerr
		}
		v.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errf(CoercionError, d.s.pos, "invalid key %q: expected number", s)
		}
		u, cerr := coerceUint(d.s.pos, f, v.Type().Bits())
		if cerr != nil {
			return cerr
		}
		v.SetUint(u)
		return nil
	}
	return errf(FrameworkError, -1, "unsupported key type: %v", v.Type())
}

func (d *Decoder) unmarshalStruct(v reflect.Value) error {
	if err := d.BeginDict(); err != nil {
		return err
	}
	t := v.Type()
	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		ft := t.Field(i)
		if ft.PkgPath != "" {
			continue
		}
		if tag, ok := ft.Tag.Lookup("tot"); ok {
			if tag == "-" {
				continue
			}
			name, _, _ := strings.Cut(tag, ",")
			if name == "" {
				name = ft.Name
			}
			fieldMap[name] = field
			continue
		}
		if tag, ok := ft.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			name, _, _ := strings.Cut(tag, ",")
			if name == "" {
				name = ft.Name
			}
			fieldMap[name] = field
			continue
		}
		fieldMap[ft.Name] = field
		fieldMap[toSnakeCase(ft.Name)] = field
	}

	for {
		more, err := d.More()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		k, err := d.Key()
		if err != nil {
			return err
		}
		field, ok := fieldMap[k]
		if !ok {
			// Unknown keys are permitted; parse the value and drop it.
			if _, err := d.Value(); err != nil {
				return err
			}
			continue
		}
		if err := d.unmarshal(field); err != nil {
			return err
		}
	}
	return d.EndDict()
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result.WriteRune('_')
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}

func (d *Decoder) unmarshalAny(v reflect.Value) error {
	kind, err := d.Peek()
	if err != nil {
		return err
	}
	switch kind {
	case Unit:
		if err := d.Null(); err != nil {
			return err
		}
		v.SetZero()
		return nil
	case Bool:
		b, err := d.Bool()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(b))
		return nil
	case Number:
		f, err := d.Float64()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(f))
		return nil
	case String:
		s, err := d.String()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(s))
		return nil
	case List:
		items := []any{}
		if err := d.BeginList(); err != nil {
			return err
		}
		for {
			more, err := d.More()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			var elem any
			if err := d.unmarshal(reflect.ValueOf(&elem).Elem()); err != nil {
				return err
			}
			items = append(items, elem)
		}
		if err := d.EndList(); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(items))
		return nil
	case Dict:
		m := map[string]any{}
		if err := d.BeginDict(); err != nil {
			return err
		}
		for {
			more, err := d.More()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			k, err := d.Key()
			if err != nil {
				return err
			}
			var elem any
			if err := d.unmarshal(reflect.ValueOf(&elem).Elem()); err != nil {
				return err
			}
			m[k] = elem
		}
		if err := d.EndDict(); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(m))
		return nil
	}
	return errf(GrammarError, d.s.pos, "expected value")
}
