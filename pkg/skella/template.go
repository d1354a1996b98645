package skella

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExpandPath substitutes the {name} and {name:hint} tokens of a path template
// with attribute values, left to right. The hint after the colon is ignored.
// Missing attributes expand to nothing, so partially populated models still
// yield a path. Text outside tokens is copied through unchanged.
func ExpandPath(template string, attributes map[string]interface{}) string {
	if !strings.Contains(template, "{") {
		return template
	}

	var builder strings.Builder

	builder.Grow(len(template))

	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			builder.WriteString(rest)

			break
		}

		name, length, ok := scanToken(rest[start:])
		if !ok {
			// Unterminated brace: the remainder is literal text.
			builder.WriteString(rest)

			break
		}

		builder.WriteString(rest[:start])

		if value, found := attributes[name]; found {
			builder.WriteString(FormatValue(value))
		}

		rest = rest[start+length:]
	}

	return builder.String()
}

// PathVariables returns the token names of a template in order of appearance.
func PathVariables(template string) []string {
	var names []string

	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			return names
		}

		name, length, ok := scanToken(rest[start:])
		if !ok {
			return names
		}

		names = append(names, name)
		rest = rest[start+length:]
	}
}

// scanToken reads a token starting at text[0] == '{'. It returns the variable
// name and the token length including both braces. Braces nested inside the
// hint (regex quantifiers such as {3}) are balanced.
func scanToken(text string) (string, int, bool) {
	depth := 0
	nameEnd := -1

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case ':':
			if depth == 1 && nameEnd < 0 {
				nameEnd = i
			}
		case '}':
			depth--
			if depth == 0 {
				if nameEnd < 0 {
					nameEnd = i
				}

				return text[1:nameEnd], i + 1, true
			}
		}
	}

	return "", 0, false
}

// FormatValue renders an attribute value the way it appears in a URL or table.
// Whole-number floats (as decoded from JSON) print without a fraction.
func FormatValue(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
