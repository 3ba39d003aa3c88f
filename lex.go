package tot

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// scanner is a cursor over the remaining input. Each lexical primitive
// consumes a prefix of the remaining input. A primitive reports false when
// it does not match at all, so the caller may try alternatives; it returns
// a non-nil *Error only when it matched a prefix but found the body
// malformed (an unterminated string, a bad escape, and so on).
type scanner struct {
	input string
	pos   int
}

func (s *scanner) rest() string { return s.input[s.pos:] }

func (s *scanner) eof() bool { return s.pos >= len(s.input) }

func (s *scanner) peek() (byte, bool) {
	if s.eof() {
		return 0, false
	}
	return s.input[s.pos], true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipIgnored consumes whitespace, commas, line comments (// to end of
// line) and block comments (/* to */). Commas are syntactic sugar
// equivalent to whitespace and are never required.
func (s *scanner) skipIgnored() *Error {
	for {
		c, ok := s.peek()
		if !ok {
			return nil
		}
		switch {
		case isSpace(c) || c == ',':
			s.pos++
		case strings.HasPrefix(s.rest(), "//"):
			if i := strings.IndexAny(s.rest(), "\r\n"); i >= 0 {
				s.pos += i
			} else {
				s.pos = len(s.input)
			}
		case strings.HasPrefix(s.rest(), "/*"):
			end := strings.Index(s.rest()[2:], "*/")
			if end < 0 {
				return errf(LexicalError, s.pos, "unterminated block comment")
			}
			s.pos += 2 + end + 2
		default:
			return nil
		}
	}
}

// boundaryAt reports whether position p is a token boundary, so that
// literals like true are not recognized inside longer runs like truest.
func (s *scanner) boundaryAt(p int) bool {
	if p >= len(s.input) {
		return true
	}
	c := s.input[p]
	return isSpace(c) || c == ',' || c == '[' || c == ']' || c == '{' || c == '}' || c == '"' || c == '/'
}

func (s *scanner) literal(word string) bool {
	if strings.HasPrefix(s.rest(), word) && s.boundaryAt(s.pos+len(word)) {
		s.pos += len(word)
		return true
	}
	return false
}

// null recognizes the unit literal.
func (s *scanner) null() bool {
	return s.literal("null")
}

// boolean recognizes true or false, case-sensitively.
func (s *scanner) boolean() (bool, bool) {
	if s.literal("true") {
		return true, true
	}
	if s.literal("false") {
		return false, true
	}
	return false, false
}

// number recognizes a decimal float: optional sign, integer part, optional
// fractional part, optional exponent. Values that overflow the double
// range are a lexical error.
func (s *scanner) number() (float64, bool, *Error) {
	start := s.pos
	p := s.pos
	if p < len(s.input) && (s.input[p] == '-' || s.input[p] == '+') {
		p++
	}
	digits := func() int {
		n := 0
		for p < len(s.input) && s.input[p] >= '0' && s.input[p] <= '9' {
			p++
			n++
		}
		return n
	}
	intDigits := digits()
	fracDigits := 0
	if p < len(s.input) && s.input[p] == '.' {
		p++
		fracDigits = digits()
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false, nil
	}
	if p < len(s.input) && (s.input[p] == 'e' || s.input[p] == 'E') {
		q := p + 1
		if q < len(s.input) && (s.input[q] == '-' || s.input[q] == '+') {
			q++
		}
		expStart := q
		for q < len(s.input) && s.input[q] >= '0' && s.input[q] <= '9' {
			q++
		}
		if q > expStart {
			p = q
		}
	}
	if !s.boundaryAt(p) {
		return 0, false, nil
	}
	text := s.input[start:p]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, true, errf(LexicalError, start, "number %q overflows the double range", text)
		}
		return 0, true, errf(LexicalError, start, "invalid number %q", text)
	}
	s.pos = p
	return f, true, nil
}

// quoted recognizes a double-quoted string and decodes its escapes. The
// escape alphabet is \" \\ \/ \n \r \t \b \f and \u{H} with one to six hex
// digits; a backslash followed by whitespace elides that whitespace run
// from the decoded string.
func (s *scanner) quoted() (string, bool, *Error) {
	if c, ok := s.peek(); !ok || c != '"' {
		return "", false, nil
	}
	start := s.pos
	i := s.pos + 1
	var b strings.Builder
	for i < len(s.input) {
		c := s.input[i]
		switch c {
		case '"':
			s.pos = i + 1
			out := b.String()
			if !utf8.ValidString(out) {
				return "", true, errf(LexicalError, start, "invalid UTF-8 in string")
			}
			return out, true, nil
		case '\\':
			if i+1 >= len(s.input) {
				return "", true, errf(LexicalError, start, "unterminated string")
			}
			e := s.input[i+1]
			switch e {
			case '"', '\\', '/':
				b.WriteByte(e)
				i += 2
			case 'n':
				b.WriteByte('\n')
				i += 2
			case 'r':
				b.WriteByte('\r')
				i += 2
			case 't':
				b.WriteByte('\t')
				i += 2
			case 'b':
				b.WriteByte('\b')
				i += 2
			case 'f':
				b.WriteByte('\f')
				i += 2
			case 'u':
				r, width, err := decodeUnicodeEscape(s.input[i:], i)
				if err != nil {
					return "", true, err
				}
				b.WriteRune(r)
				i += width
			default:
				if !isSpace(e) {
					return "", true, errf(LexicalError, i, `invalid escape \%c`, e)
				}
				// Escaped whitespace: the backslash and the whole
				// whitespace run are elided from the decoded string.
				i++
				for i < len(s.input) && isSpace(s.input[i]) {
					i++
				}
			}
		default:
			j := i
			for j < len(s.input) && s.input[j] != '"' && s.input[j] != '\\' {
				j++
			}
			b.WriteString(s.input[i:j])
			i = j
		}
	}
	return "", true, errf(LexicalError, start, "unterminated string")
}

// decodeUnicodeEscape decodes \u{H...} at the start of in. off is the
// absolute offset of the backslash, for error reporting. Returns the rune
// and the number of bytes consumed.
func decodeUnicodeEscape(in string, off int) (rune, int, *Error) {
	if !strings.HasPrefix(in, `\u{`) {
		return 0, 0, errf(LexicalError, off, `invalid escape \u, expected \u{...}`)
	}
	end := strings.IndexByte(in, '}')
	if end < 0 {
		return 0, 0, errf(LexicalError, off, `unterminated \u{...} escape`)
	}
	hex := in[3:end]
	if len(hex) == 0 || len(hex) > 6 {
		return 0, 0, errf(LexicalError, off, `\u{%s} must contain 1 to 6 hex digits`, hex)
	}
	codePoint, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || !utf8.ValidRune(rune(codePoint)) {
		return 0, 0, errf(LexicalError, off, `\u{%s} is not a Unicode scalar value`, hex)
	}
	return rune(codePoint), end + 1, nil
}

// token reads a maximal run of characters that are not whitespace and not
// a comma. Tokens are used only as bare keys.
func (s *scanner) token() (string, bool, *Error) {
	start := s.pos
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		if isSpace(c) || c == ',' {
			break
		}
		s.pos++
	}
	if s.pos == start {
		return "", false, nil
	}
	out := s.input[start:s.pos]
	if !utf8.ValidString(out) {
		return "", true, errf(LexicalError, start, "invalid UTF-8 in key")
	}
	return out, true, nil
}

// key recognizes a quoted string or a bare token.
func (s *scanner) key() (string, bool, *Error) {
	if c, ok := s.peek(); ok && c == '"' {
		return s.quoted()
	}
	return s.token()
}
