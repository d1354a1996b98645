package skella

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// listProperties are the property names every list endpoint declares.
var listProperties = []string{constants.PropertyOffset, constants.PropertyLimit, constants.PropertyObjects}

// IsListShaped reports whether an endpoint's properties describe a paginated
// list: offset, limit and objects must all be present. Only names are compared.
func IsListShaped(properties []Property) bool {
	return HasProperties(properties, listProperties...)
}

// HasProperties reports whether every name appears among properties.
func HasProperties(properties []Property, names ...string) bool {
	for _, name := range names {
		if _, found := FindProperty(properties, name); !found {
			return false
		}
	}

	return true
}

// FindProperty returns the first property with the given name.
func FindProperty(properties []Property, name string) (Property, bool) {
	for _, property := range properties {
		if property.Name == name {
			return property, true
		}
	}

	return Property{}, false
}

// NormalizeName turns a hyphenated endpoint name into its registry key:
// "blog-post" becomes "BlogPost". Only the first letter of each segment is
// changed. A name with no key, empty or only hyphens, reports false.
//
// Distinct names can collide: "ab-c" and "abC" both become "AbC".
func NormalizeName(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	var builder strings.Builder

	builder.Grow(len(name))

	for _, segment := range strings.Split(name, "-") {
		builder.WriteString(initialCap(segment))
	}

	if builder.Len() == 0 {
		return "", false
	}

	return builder.String(), true
}

func initialCap(segment string) string {
	first, size := utf8.DecodeRuneInString(segment)
	if size == 0 {
		return ""
	}

	return string(unicode.ToUpper(first)) + segment[size:]
}
