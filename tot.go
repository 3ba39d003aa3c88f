package tot

import "sort"

// Kind represents the possible kinds of Tot value.
type Kind int8

const (
	// Unit is the null value; its source form is the literal null.
	Unit = Kind(iota)
	// Bool is true or false.
	Bool
	// Number is a 64-bit IEEE-754 float, the only numeric type at parse
	// time. Narrower integer shapes are a coercion applied when the value
	// is consumed.
	Number
	// String is an owned UTF-8 string with escapes already decoded.
	String
	// List is an ordered sequence of values.
	List
	// Dict maps string keys to values. Key uniqueness is not enforced by
	// the grammar; the last occurrence wins.
	Dict
)

func (k Kind) String() string {
	switch k {
	case Unit:
		return "Unit"
	case Bool:
		return "Bool"
	case Number:
		return "Number"
	case String:
		return "String"
	case List:
		return "List"
	case Dict:
		return "Dict"
	default:
		panic("unknown Kind")
	}
}

func (k Kind) GoString() string {
	return k.String()
}

// Value is an untyped Tot value. Kind selects which payload field is
// meaningful. The zero Value is the unit value.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	List   []Value
	Dict   map[string]Value
}

// Parse parses a Tot document into an untyped value tree.
//
// The top level of a document is normally an implicit dict whose braces
// are elided. A document whose first token is an explicit bracketed list
// or braced dict, or that consists of a single scalar, parses to that
// value instead. Duplicate keys within a dict are permitted; the last
// occurrence wins.
func Parse(data []byte) (Value, error) {
	s := &scanner{input: string(data)}
	if err := s.skipIgnored(); err != nil {
		return Value{}, err
	}
	if s.eof() {
		return Value{Kind: Dict, Dict: map[string]Value{}}, nil
	}
	if c, _ := s.peek(); c == '[' || c == '{' {
		v, _, err := s.scalarValue()
		if err != nil {
			return Value{}, err
		}
		if err := s.expectEOF(); err != nil {
			return Value{}, err
		}
		return v, nil
	}

	// A document may be a single bare scalar rather than a dict body.
	probe := *s
	if v, ok, err := probe.scalarValue(); ok && err == nil {
		if err := probe.skipIgnored(); err == nil && probe.eof() {
			return v, nil
		}
	}

	v, err := s.rootDict()
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func (s *scanner) expectEOF() *Error {
	if err := s.skipIgnored(); err != nil {
		return err
	}
	if !s.eof() {
		return errf(GrammarError, s.pos, "trailing characters after document")
	}
	return nil
}

// rootDict parses the whole remaining input as a dict body with the outer
// braces elided.
func (s *scanner) rootDict() (Value, *Error) {
	dict := map[string]Value{}
	for {
		if err := s.skipIgnored(); err != nil {
			return Value{}, err
		}
		if s.eof() {
			return Value{Kind: Dict, Dict: dict}, nil
		}
		if c, _ := s.peek(); c == '}' || c == ']' {
			return Value{}, errf(GrammarError, s.pos, "unmatched %q at document root", string(c))
		}
		k, ok, err := s.key()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errf(GrammarError, s.pos, "expected key")
		}
		v, ok, err := s.scalarValue()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errf(GrammarError, s.pos, "key %q has no value", k)
		}
		dict[k] = v
	}
}

// scalarValue parses one value: unit, bool, number, string, list or dict.
// Bare tokens are not values, only keys, so a run like abc is a miss.
func (s *scanner) scalarValue() (Value, bool, *Error) {
	if err := s.skipIgnored(); err != nil {
		return Value{}, true, err
	}
	c, ok := s.peek()
	if !ok {
		return Value{}, false, nil
	}
	switch c {
	case '"':
		str, ok, err := s.quoted()
		if err != nil {
			return Value{}, true, err
		}
		if !ok {
			return Value{}, false, nil
		}
		return Value{Kind: String, Str: str}, true, nil
	case '[':
		v, err := s.listValue()
		if err != nil {
			return Value{}, true, err
		}
		return v, true, nil
	case '{':
		v, err := s.dictValue()
		if err != nil {
			return Value{}, true, err
		}
		return v, true, nil
	}
	if s.null() {
		return Value{Kind: Unit}, true, nil
	}
	if b, ok := s.boolean(); ok {
		return Value{Kind: Bool, Bool: b}, true, nil
	}
	f, ok, err := s.number()
	if err != nil {
		return Value{}, true, err
	}
	if ok {
		return Value{Kind: Number, Number: f}, true, nil
	}
	return Value{}, false, nil
}

func (s *scanner) listValue() (Value, *Error) {
	open := s.pos
	s.pos++ // consume [
	items := []Value{}
	for {
		if err := s.skipIgnored(); err != nil {
			return Value{}, err
		}
		c, ok := s.peek()
		if !ok {
			return Value{}, errf(GrammarError, open, "unterminated list, expected ']'")
		}
		if c == ']' {
			s.pos++
			return Value{Kind: List, List: items}, nil
		}
		if c == '}' {
			return Value{}, errf(GrammarError, s.pos, "expected ']', found '}'")
		}
		v, ok, err := s.scalarValue()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errf(GrammarError, s.pos, "expected value in list")
		}
		items = append(items, v)
	}
}

func (s *scanner) dictValue() (Value, *Error) {
	open := s.pos
	s.pos++ // consume {
	dict := map[string]Value{}
	for {
		if err := s.skipIgnored(); err != nil {
			return Value{}, err
		}
		c, ok := s.peek()
		if !ok {
			return Value{}, errf(GrammarError, open, "unterminated dict, expected '}'")
		}
		if c == '}' {
			s.pos++
			return Value{Kind: Dict, Dict: dict}, nil
		}
		if c == ']' {
			return Value{}, errf(GrammarError, s.pos, "expected '}', found ']'")
		}
		k, ok, err := s.key()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errf(GrammarError, s.pos, "expected key")
		}
		v, ok, err := s.scalarValue()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errf(GrammarError, s.pos, "key %q has no value", k)
		}
		dict[k] = v
	}
}

// MarshalTOT emits the value tree through the encoder. Dict keys are
// emitted in sorted order so that encoding is deterministic.
func (v Value) MarshalTOT(e *Encoder) error {
	switch v.Kind {
	case Unit:
		return e.Null()
	case Bool:
		return e.Bool(v.Bool)
	case Number:
		return e.Number(v.Number)
	case String:
		return e.String(v.Str)
	case List:
		if err := e.BeginList(); err != nil {
			return err
		}
		for _, item := range v.List {
			if err := item.MarshalTOT(e); err != nil {
				return err
			}
		}
		return e.EndList()
	case Dict:
		if err := e.BeginDict(); err != nil {
			return err
		}
		keys := make([]string, 0, len(v.Dict))
		for k := range v.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := e.Key(k); err != nil {
				return err
			}
			if err := v.Dict[k].MarshalTOT(e); err != nil {
				return err
			}
		}
		return e.EndDict()
	default:
		return errf(FrameworkError, -1, "invalid value kind %d", v.Kind)
	}
}

// UnmarshalTOT reads a single value from the decoder.
func (v *Value) UnmarshalTOT(d *Decoder) error {
	val, err := d.Value()
	if err != nil {
		return err
	}
	*v = val
	return nil
}
