package skella_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

func TestExpandPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		template   string
		attributes map[string]interface{}
		expected   string
	}{
		{
			name:       "no tokens",
			template:   "/users",
			attributes: map[string]interface{}{"id": "7"},
			expected:   "/users",
		},
		{
			name:       "typed and untyped tokens",
			template:   "/widgets/{id}/parts/{partId:int}",
			attributes: map[string]interface{}{"id": "7", "partId": 3},
			expected:   "/widgets/7/parts/3",
		},
		{
			name:       "hint with regex quantifier",
			template:   "/user/{uuid:[0-9a-f]{8}-[0-9a-f]{4}}/avatar",
			attributes: map[string]interface{}{"uuid": "abc"},
			expected:   "/user/abc/avatar",
		},
		{
			name:       "hint with character class",
			template:   "/user/{uuid:UUID[0-9,a-z,-]+}",
			attributes: map[string]interface{}{"uuid": "1f0e"},
			expected:   "/user/1f0e",
		},
		{
			name:       "missing attribute expands to nothing",
			template:   "/user/{id}",
			attributes: map[string]interface{}{},
			expected:   "/user/",
		},
		{
			name:       "nil attributes",
			template:   "/user/{id}/posts",
			attributes: nil,
			expected:   "/user//posts",
		},
		{
			name:       "nil value",
			template:   "/user/{id}",
			attributes: map[string]interface{}{"id": nil},
			expected:   "/user/",
		},
		{
			name:       "decoded JSON number",
			template:   "/post/{id}",
			attributes: map[string]interface{}{"id": float64(12)},
			expected:   "/post/12",
		},
		{
			name:       "fractional number",
			template:   "/scores/{value}",
			attributes: map[string]interface{}{"value": 1.5},
			expected:   "/scores/1.5",
		},
		{
			name:       "json.Number",
			template:   "/post/{id}",
			attributes: map[string]interface{}{"id": json.Number("1234567890123")},
			expected:   "/post/1234567890123",
		},
		{
			name:       "boolean",
			template:   "/flags/{on}",
			attributes: map[string]interface{}{"on": true},
			expected:   "/flags/true",
		},
		{
			name:       "repeated token and trailing literal",
			template:   "/{a}/{a}.json",
			attributes: map[string]interface{}{"a": "x"},
			expected:   "/x/x.json",
		},
		{
			name:       "unterminated brace is literal",
			template:   "/user/{id",
			attributes: map[string]interface{}{"id": "7"},
			expected:   "/user/{id",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, skella.ExpandPath(testCase.template, testCase.attributes))
		})
	}
}

func TestPathVariables(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"id", "partId"}, skella.PathVariables("/widgets/{id}/parts/{partId:int}"))
	assert.Nil(t, skella.PathVariables("/users"))
	assert.Equal(t, []string{"uuid"}, skella.PathVariables("/user/{uuid:[a-f]{8}}"))
}

type label struct{ text string }

func (l label) String() string { return l.text }

func TestFormatValue(t *testing.T) {
	t.Parallel()

	assert.Empty(t, skella.FormatValue(nil))
	assert.Equal(t, "abc", skella.FormatValue("abc"))
	assert.Equal(t, "3", skella.FormatValue(3))
	assert.Equal(t, "3", skella.FormatValue(3.0))
	assert.Equal(t, "0.25", skella.FormatValue(float32(0.25)))
	assert.Equal(t, "named", skella.FormatValue(label{text: "named"}))
}
