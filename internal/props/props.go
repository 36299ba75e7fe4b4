// Package props parses Java-style .properties text. The format is the one
// produced by java.util.Properties.store: '#' or '!' comment lines, '=' /
// ':' / unescaped whitespace key separators, backslash line continuations
// and \uXXXX escapes.
package props

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse parses properties text into a key/value map. Later occurrences of a
// key overwrite earlier ones. A malformed \uXXXX escape is an error.
func Parse(text string) (map[string]string, error) {
	values := make(map[string]string)

	lines := splitLogicalLines(text)
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == '!' {
			continue
		}

		rawKey, rawValue := splitKeyValue(trimmed)
		key, err := unescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", rawKey, err)
		}
		value, err := unescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", key, err)
		}
		values[key] = value
	}
	return values, nil
}

// splitLogicalLines joins physical lines ending in an odd number of
// backslashes with their successors, dropping the backslash and the leading
// whitespace of the continuation line.
func splitLogicalLines(text string) []string {
	physical := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var logical []string
	var pending strings.Builder
	continuing := false
	for _, line := range physical {
		line = strings.TrimRight(line, "\r")
		if continuing {
			line = strings.TrimLeftFunc(line, unicode.IsSpace)
		}
		if endsWithOddBackslashes(line) {
			pending.WriteString(line[:len(line)-1])
			continuing = true
			continue
		}
		pending.WriteString(line)
		logical = append(logical, pending.String())
		pending.Reset()
		continuing = false
	}
	if pending.Len() > 0 {
		logical = append(logical, pending.String())
	}
	return logical
}

func endsWithOddBackslashes(line string) bool {
	count := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		count++
	}
	return count%2 == 1
}

// splitKeyValue finds the first unescaped separator ('=', ':' or whitespace)
// and splits around it. Whitespace around '=' / ':' belongs to the separator.
func splitKeyValue(line string) (key, value string) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			key = line[:i]
			rest := line[i:]
			if c == ' ' || c == '\t' || c == '\f' {
				rest = strings.TrimLeft(rest, " \t\f")
				if len(rest) > 0 && (rest[0] == '=' || rest[0] == ':') {
					rest = rest[1:]
				}
			} else {
				rest = rest[1:]
			}
			return key, strings.TrimLeft(rest, " \t\f")
		}
	}
	return line, ""
}

// unescape resolves backslash escapes: \t \n \r \f \\ and \uXXXX. Any other
// escaped character stands for itself.
func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 't':
			out.WriteByte('\t')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 'f':
			out.WriteByte('\f')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("malformed \\uxxxx encoding")
			}
			code, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("malformed \\uxxxx encoding")
			}
			out.WriteRune(rune(code))
			i += 4
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String(), nil
}
