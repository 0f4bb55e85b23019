package storage

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// scanner walks JavaScript object literal source. It understands the three string
// quote styles, backslash escapes and comments, which is enough to find balanced
// brackets in hand-edited data files.
type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

// skipSpace skips whitespace and comments
func (s *scanner) skipSpace() {
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case strings.HasPrefix(s.src[s.pos:], "//"):
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end + 1
			}
		case strings.HasPrefix(s.src[s.pos:], "/*"):
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end + 4
			}
		default:
			return
		}
	}
}

// skipString advances past the quoted string starting at pos
func (s *scanner) skipString() error {
	quote := s.src[s.pos]
	start := s.pos
	s.pos++
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case quote:
			s.pos++
			return nil
		default:
			s.pos++
		}
	}
	return fmt.Errorf("unterminated string at offset %d", start)
}

// skipBalanced advances past the bracketed block starting at pos
func (s *scanner) skipBalanced() error {
	open := s.src[s.pos]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return fmt.Errorf("expected bracket at offset %d", s.pos)
	}

	start := s.pos
	depth := 0
	for !s.eof() {
		s.skipSpace()
		if s.eof() {
			break
		}
		switch c := s.src[s.pos]; c {
		case '"', '\'', '`':
			if err := s.skipString(); err != nil {
				return err
			}
			continue
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				if c != close {
					return fmt.Errorf("mismatched %q at offset %d", c, s.pos)
				}
				s.pos++
				return nil
			}
		}
		s.pos++
	}
	return fmt.Errorf("unbalanced %q at offset %d", open, start)
}

// splitObjects returns the top-level {...} blocks of an array body
func splitObjects(body string) ([]string, error) {
	s := &scanner{src: body}
	var objects []string

	for {
		s.skipSpace()
		if s.eof() {
			return objects, nil
		}
		switch s.peek() {
		case '{':
			start := s.pos
			if err := s.skipBalanced(); err != nil {
				return nil, err
			}
			objects = append(objects, body[start:s.pos])
		case '"', '\'', '`':
			if err := s.skipString(); err != nil {
				return nil, err
			}
		case '[':
			if err := s.skipBalanced(); err != nil {
				return nil, err
			}
		default:
			s.pos++
		}
	}
}

// parseObject reads the key/value pairs of a single object literal. String values
// are unescaped, other scalars are returned as written, nested values are skipped.
func parseObject(obj string) (map[string]string, error) {
	s := &scanner{src: obj}
	s.skipSpace()
	if s.peek() != '{' {
		return nil, fmt.Errorf("object must start with '{'")
	}
	s.pos++

	fields := make(map[string]string)
	for {
		s.skipSpace()
		if s.eof() {
			return nil, fmt.Errorf("unterminated object")
		}
		if c := s.peek(); c == '}' {
			return fields, nil
		} else if c == ',' {
			s.pos++
			continue
		}

		key, err := s.readKey()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if s.peek() != ':' {
			return nil, fmt.Errorf("expected ':' after key %q", key)
		}
		s.pos++
		s.skipSpace()

		switch s.peek() {
		case '"', '\'', '`':
			start := s.pos
			if err := s.skipString(); err != nil {
				return nil, err
			}
			fields[key] = unquote(obj[start:s.pos])
			if err := s.skipTrailing(); err != nil {
				return nil, err
			}
		case '{', '[':
			if err := s.skipBalanced(); err != nil {
				return nil, err
			}
			if err := s.skipTrailing(); err != nil {
				return nil, err
			}
		default:
			start := s.pos
			for !s.eof() && s.peek() != ',' && s.peek() != '}' && s.peek() != '\n' {
				s.pos++
			}
			value := obj[start:s.pos]
			if i := strings.Index(value, "//"); i >= 0 {
				value = value[:i]
			}
			fields[key] = strings.TrimSpace(value)
		}
	}
}

// skipTrailing moves past anything between a value and the next ',' or '}' at the
// same depth, such as a TypeScript "as const" or a type assertion.
func (s *scanner) skipTrailing() error {
	for {
		s.skipSpace()
		if s.eof() {
			return nil
		}
		switch s.peek() {
		case ',', '}':
			return nil
		case '"', '\'', '`':
			if err := s.skipString(); err != nil {
				return err
			}
		case '{', '[':
			if err := s.skipBalanced(); err != nil {
				return err
			}
		default:
			s.pos++
		}
	}
}

func (s *scanner) readKey() (string, error) {
	switch s.peek() {
	case '"', '\'':
		start := s.pos
		if err := s.skipString(); err != nil {
			return "", err
		}
		return unquote(s.src[start:s.pos]), nil
	}

	start := s.pos
	for !s.eof() {
		c := s.peek()
		if c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			s.pos++
			continue
		}
		break
	}
	if s.pos == start {
		return "", fmt.Errorf("expected key at offset %d", start)
	}
	return s.src[start:s.pos], nil
}

// unquote decodes a quoted JavaScript string including its quotes. Unknown escapes
// yield the escaped character, so \’ becomes ’.
func unquote(quoted string) string {
	body := quoted[1 : len(quoted)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i == len(body)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'u':
			if i+4 < len(body) {
				if r, err := strconv.ParseUint(body[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(r))
					i += 4
					continue
				}
			}
			b.WriteByte('u')
		case 'x':
			if i+2 < len(body) {
				if r, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(r))
					i += 2
					continue
				}
			}
			b.WriteByte('x')
		default:
			r, size := utf8.DecodeRuneInString(body[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// quote renders s as a double-quoted string literal
func quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}
