package skella_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

const schemaDocument = `{
  "api": {"version": "0.1.0"},
  "endpoints": [
    {
      "name": "user",
      "path": "/user/{uuid:UUID[0-9,a-z,-]+}",
      "title": "User",
      "description": "A registered account",
      "properties": [
        {"name": "id", "data-type": "string"},
        {"name": "staff", "data-type": "boolean", "optional": true},
        {"name": "avatar", "type": "string", "fileType": "image/png"}
      ]
    },
    {
      "name": "users",
      "path": "/users",
      "properties": [
        {"name": "offset", "data-type": "integer"},
        {"name": "limit", "data-type": "int"},
        {"name": "objects", "data-type": "array", "children-type": "user"}
      ]
    },
    {
      "name": "tags",
      "path": "/tags",
      "properties": [
        {"name": "offset", "data-type": "int"},
        {"name": "limit", "data-type": "int"},
        {"name": "objects", "data-type": "array", "childrenType": "tag"}
      ]
    }
  ]
}`

func TestSchemaDocument_Unmarshal(t *testing.T) {
	t.Parallel()

	var document skella.SchemaDocument

	require.NoError(t, json.Unmarshal([]byte(schemaDocument), &document))
	assert.Equal(t, "0.1.0", document.API.Version)
	require.Len(t, document.Endpoints, 3)

	user := document.Endpoints[0]
	assert.Equal(t, "User", user.Title)
	assert.Equal(t, "A registered account", user.Description)
	assert.True(t, user.HasFiles())

	staff, found := user.Property("staff")
	require.True(t, found)
	assert.Equal(t, skella.PropertyTypeBool, staff.Type)
	assert.True(t, staff.Optional)

	avatar, found := user.Property("avatar")
	require.True(t, found)
	assert.Equal(t, skella.PropertyTypeString, avatar.Type)
	assert.Equal(t, "image/png", avatar.FileType)

	objects, found := document.Endpoints[1].Property("objects")
	require.True(t, found)
	assert.Equal(t, "user", objects.ChildrenType)
	assert.False(t, document.Endpoints[1].HasFiles())

	offset, _ := document.Endpoints[1].Property("offset")
	assert.Equal(t, skella.PropertyTypeInt, offset.Type)

	tagObjects, _ := document.Endpoints[2].Property("objects")
	assert.Equal(t, "tag", tagObjects.ChildrenType)

	_, found = user.Property("missing")
	assert.False(t, found)
}

func TestParsePropertyType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected skella.PropertyType
		ok       bool
	}{
		{"string", skella.PropertyTypeString, true},
		{"long-string", skella.PropertyTypeLongString, true},
		{"int", skella.PropertyTypeInt, true},
		{"integer", skella.PropertyTypeInt, true},
		{"float", skella.PropertyTypeFloat, true},
		{"array", skella.PropertyTypeArray, true},
		{"object", skella.PropertyTypeObject, true},
		{"bool", skella.PropertyTypeBool, true},
		{" Boolean ", skella.PropertyTypeBool, true},
		{"date", skella.PropertyType("date"), false},
	}

	for _, testCase := range tests {
		propertyType, ok := skella.ParsePropertyType(testCase.input)
		assert.Equal(t, testCase.expected, propertyType, testCase.input)
		assert.Equal(t, testCase.ok, ok, testCase.input)
	}
}

func TestResourceDefinition_Marshal(t *testing.T) {
	t.Parallel()

	registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{
		{Name: "user", Path: "/user/{id}", Properties: []skella.Property{{Name: "id"}}},
		list("users", "/users", "user"),
	})

	users, found := registry.Lookup("users")
	require.True(t, found)

	data, err := json.Marshal(users)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"list"`)
	assert.Contains(t, string(data), `"path":"/users"`)
	assert.Contains(t, string(data), `"element":{"name":"User"`)

	out, err := yaml.Marshal(users)
	require.NoError(t, err)
	assert.Contains(t, string(out), "kind: list")
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "single", skella.KindSingle.String())
	assert.Equal(t, "list", skella.KindList.String())
	assert.Equal(t, "unpopulated", skella.StateUnpopulated.String())
	assert.Equal(t, "populating", skella.StatePopulating.String())
	assert.Equal(t, "populated", skella.StatePopulated.String())
	assert.Equal(t, "populated", skella.EventPopulated.String())
	assert.Equal(t, "logged-in", skella.EventLoggedIn.String())
	assert.Equal(t, "logged-out", skella.EventLoggedOut.String())
}

func TestAttributes_Clone(t *testing.T) {
	t.Parallel()

	original := skella.Attributes{"a": 1}
	clone := original.Clone()
	clone["a"] = 2

	assert.Equal(t, 1, original["a"])

	var empty skella.Attributes
	assert.NotNil(t, empty.Clone())
}
