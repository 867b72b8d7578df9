package extract

// scan.go holds the small lexical helpers the extractor uses to walk call
// chains without a full parser. All helpers return -1 when the source is
// malformed so callers can drop the declaration instead of failing.

import (
	"strings"
)

// skipSpace returns the index of the first byte at or after i that is not
// whitespace or part of a comment.
func skipSpace(src string, i int) int {
	for i < len(src) {
		switch {
		case src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				return len(src)
			}
			i += nl + 1
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return len(src)
			}
			i += end + 4
		default:
			return i
		}
	}
	return i
}

// skipString returns the index just past the string literal starting at i.
func skipString(src string, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return -1
			}
		}
	}
	return -1
}

// matchClose returns the index of the bracket closing the one at src[open].
func matchClose(src string, open int) int {
	var stack []byte
	for i := open; i < len(src); {
		switch c := src[i]; c {
		case '"', '\'', '`':
			next := skipString(src, i)
			if next < 0 {
				return -1
			}
			i = next
			continue
		case '/':
			if strings.HasPrefix(src[i:], "//") || strings.HasPrefix(src[i:], "/*") {
				i = skipSpace(src, i)
				continue
			}
		case '(', '[', '{':
			stack = append(stack, closing(c))
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

func closing(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '[':
		return ']'
	}
	return '}'
}

// readIdent returns the identifier starting at i and the index after it.
func readIdent(src string, i int) (string, int) {
	start := i
	for i < len(src) && isIdentByte(src[i]) {
		i++
	}
	return src[start:i], i
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// stringLiteral returns the value of a complete string literal. Template
// literals with interpolation are rejected since their value is dynamic.
func stringLiteral(lit string) (string, bool) {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 {
		return "", false
	}
	quote := lit[0]
	if quote != '"' && quote != '\'' && quote != '`' {
		return "", false
	}
	if skipString(lit, 0) != len(lit) {
		return "", false
	}
	body := lit[1 : len(lit)-1]
	if quote == '`' && strings.Contains(body, "${") {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(body[i])
	}
	return b.String(), true
}

// splitTopLevel splits s on sep bytes that are not nested in brackets or strings.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'', '`':
			next := skipString(s, i)
			if next < 0 {
				return append(parts, s[start:])
			}
			i = next - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// objectFields returns the top-level properties of an object literal body
// (the text between the braces) keyed by property name.
func objectFields(body string) map[string]string {
	fields := make(map[string]string)
	for _, prop := range splitTopLevel(body, ',') {
		prop = strings.TrimSpace(skipComments(prop))
		if prop == "" {
			continue
		}
		kv := splitTopLevel(prop, ':')
		if len(kv) < 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if v, ok := stringLiteral(key); ok {
			key = v
		}
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(strings.Join(kv[1:], ":"))
		}
	}
	return fields
}

func skipComments(s string) string {
	return s[skipSpace(s, 0):]
}

// stringList reads a string literal or an array of string literals.
func stringList(value string) []string {
	value = strings.TrimSpace(value)
	if s, ok := stringLiteral(value); ok {
		return []string{s}
	}
	if !strings.HasPrefix(value, "[") {
		return nil
	}
	end := matchClose(value, 0)
	if end < 0 {
		return nil
	}
	var out []string
	for _, item := range splitTopLevel(value[1:end], ',') {
		if s, ok := stringLiteral(skipComments(item)); ok {
			out = append(out, s)
		}
	}
	return out
}
