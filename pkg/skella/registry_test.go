package skella_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

func entity(name, path string, extra ...skella.Property) skella.Endpoint {
	return skella.Endpoint{
		Name:       name,
		Path:       path,
		Properties: append([]skella.Property{{Name: "id", Type: skella.PropertyTypeInt}}, extra...),
	}
}

func list(name, path, childrenType string) skella.Endpoint {
	return skella.Endpoint{
		Name: name,
		Path: path,
		Properties: []skella.Property{
			{Name: "offset", Type: skella.PropertyTypeInt},
			{Name: "limit", Type: skella.PropertyTypeInt},
			{Name: "objects", Type: skella.PropertyTypeArray, ChildrenType: childrenType},
		},
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestBuildRegistry(t *testing.T) {
	t.Parallel()

	t.Run("entities and lists", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("1.0.0", []skella.Endpoint{
			entity("user", "/user/{id}"),
			list("users", "/users", "user"),
		})

		require.Equal(t, 2, registry.Len())
		assert.Equal(t, "1.0.0", registry.Version())

		user, found := registry.Lookup("user")
		require.True(t, found)
		assert.Equal(t, "User", user.Name)
		assert.Equal(t, skella.KindSingle, user.Kind)
		assert.Equal(t, "/user/{id}", user.PathTemplate)
		assert.Equal(t, "1.0.0", user.APIVersion)
		assert.Equal(t, "user", user.Endpoint.Name)
		assert.Nil(t, user.Element)

		users, found := registry.Lookup("Users")
		require.True(t, found)
		assert.Equal(t, skella.KindList, users.Kind)
		assert.Same(t, user, users.Element)
		assert.Equal(t, "User", users.ElementName())
	})

	t.Run("member type declared after the list stays unresolved", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{
			entity("user", "/user/{id}"),
			list("blog-posts", "/blog-posts", "blog-post"),
			entity("blog-post", "/blog-post/{id}"),
		})

		posts, found := registry.Lookup("blog-posts")
		require.True(t, found)
		assert.True(t, posts.IsList())
		assert.Nil(t, posts.Element)
		assert.Empty(t, posts.ElementName())

		post, found := registry.Lookup("BlogPost")
		require.True(t, found)
		assert.Equal(t, skella.KindSingle, post.Kind)
	})

	t.Run("list of lists and unknown types stay unresolved", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{
			list("pages", "/pages", "page-sets"),
			list("page-sets", "/page-sets", "page"),
			list("orphans", "/orphans", "ghost"),
			list("plain", "/plain", ""),
		})

		for _, name := range []string{"pages", "page-sets", "orphans", "plain"} {
			definition, found := registry.Lookup(name)
			require.True(t, found, name)
			assert.Nil(t, definition.Element, name)
		}
	})

	t.Run("later declaration replaces earlier", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{
			entity("blog-post", "/old/{id}"),
			entity("blogPost", "/new/{id}"),
		})

		assert.Equal(t, 1, registry.Len())

		post, found := registry.Lookup("blog-post")
		require.True(t, found)
		assert.Equal(t, "/new/{id}", post.PathTemplate)
	})

	t.Run("unnamed endpoints are skipped", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{entity("", "/nameless")})
		assert.Equal(t, 0, registry.Len())
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", nil)
		assert.Equal(t, 0, registry.Len())
		assert.Empty(t, registry.Names())
		assert.Empty(t, registry.Definitions())

		_, found := registry.Lookup("user")
		assert.False(t, found)

		_, found = registry.Lookup("")
		assert.False(t, found)
	})

	t.Run("rebuilding does not merge", func(t *testing.T) {
		t.Parallel()

		first := skella.BuildRegistry("1", []skella.Endpoint{entity("user", "/user/{id}")})
		second := skella.BuildRegistry("2", []skella.Endpoint{entity("post", "/post/{id}")})

		_, found := second.Lookup("user")
		assert.False(t, found)

		_, found = first.Lookup("user")
		assert.True(t, found)
	})

	t.Run("ordering accessors", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{
			list("users", "/users", "user"),
			entity("user", "/user/{id}"),
			entity("avatar", "/avatar/{id}"),
		})

		assert.Equal(t, []string{"Avatar", "User", "Users"}, registry.Names())

		definitions := registry.Definitions()
		require.Len(t, definitions, 3)
		assert.Equal(t, "User", definitions[0].Name)
		assert.Equal(t, "Avatar", definitions[1].Name)
		assert.Equal(t, "Users", definitions[2].Name)
		assert.Nil(t, definitions[2].Element)
	})

	t.Run("names without a key are skipped", func(t *testing.T) {
		t.Parallel()

		registry := skella.BuildRegistry("0.1.0", []skella.Endpoint{
			entity("-", "/dash"),
			entity("", "/blank"),
			list("--", "/dashes", "user"),
			entity("user", "/user/{id}"),
		})

		assert.Equal(t, []string{"User"}, registry.Names())

		_, found := registry.Lookup("-")
		assert.False(t, found)
	})
}

func TestRegistry_NilSafe(t *testing.T) {
	t.Parallel()

	var registry *skella.Registry

	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, registry.Version())
	assert.Nil(t, registry.Names())
	assert.Nil(t, registry.Definitions())

	_, found := registry.Lookup("user")
	assert.False(t, found)
}
