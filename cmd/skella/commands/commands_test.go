package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/internal/skellatest"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// setupViper points the CLI at server with a temporary config file. The
// commands share viper's global state, so these tests do not run in parallel.
func setupViper(t *testing.T, server *skellatest.Server) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("output: json\n"), 0o600))

	viper.SetConfigFile(configFile)
	require.NoError(t, viper.ReadInConfig())

	viper.Set("api", server.APIRoot())
	viper.Set("cache", "memory")

	return configFile
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestParseAssignments(t *testing.T) {
	t.Parallel()

	attributes, err := parseAssignments([]string{"id=42", "ratio=0.5", "staff=true", "name=Ada", "empty="})
	require.NoError(t, err)

	assert.Equal(t, skella.Attributes{
		"id":    int64(42),
		"ratio": 0.5,
		"staff": true,
		"name":  "Ada",
		"empty": "",
	}, attributes)

	_, err = parseAssignments([]string{"novalue"})
	require.ErrorIs(t, err, constants.ErrInvalidAttribute)

	_, err = parseAssignments([]string{"=x"})
	require.ErrorIs(t, err, constants.ErrInvalidAttribute)
}

func TestBuildCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, kind := range []string{"", "file", "memory", "none", "chain"} {
		cache, err := buildCache(&Config{Cache: kind, CacheDir: dir})
		require.NoError(t, err, kind)
		assert.NotNil(t, cache, kind)
	}

	_, err := buildCache(&Config{Cache: "redis", CacheDir: dir})
	require.ErrorIs(t, err, skella.ErrUnsupportedCacheType)
}

func TestReadBatchFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := filepath.Join(dir, "ops.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: first
  op: fetch
  resource: blog-post
  attributes: {id: 1}
- op: destroy
  resource: blog-post
  attributes: {id: 2}
`), 0o600))

	steps, err := readBatchFile(path)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "first", steps[0].ID)
	assert.Equal(t, "destroy", steps[1].Op)
	assert.Equal(t, 2, steps[1].Attributes["id"])

	jsonPath := filepath.Join(dir, "ops.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"op": "fetch", "resource": "user"}]`), 0o600))

	steps, err = readBatchFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "user", steps[0].Resource)

	emptyPath := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(emptyPath, []byte("[]\n"), 0o600))

	_, err = readBatchFile(emptyPath)
	require.ErrorIs(t, err, constants.ErrBatchEmpty)

	_, err = readBatchFile(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
}

func TestNewRootCommands(t *testing.T) {
	t.Parallel()

	schema := NewSchemaCommand()
	assert.Equal(t, "schema", schema.Use)
	assert.Len(t, schema.Commands(), 2)

	config := NewConfigCommand()
	assert.Len(t, config.Commands(), 3)

	upload := NewUploadCommand()
	for _, flag := range []string{"field", "file", "method", "form"} {
		assert.NotNil(t, upload.Flags().Lookup(flag), "Flag %s should exist", flag)
	}

	list := NewListCommand()
	for _, flag := range []string{"offset", "limit", "param", "received-order", "all", "max-pages"} {
		assert.NotNil(t, list.Flags().Lookup(flag), "Flag %s should exist", flag)
	}

	assert.NotNil(t, NewBatchCommand().Flags().ShorthandLookup("c"))
}

//nolint:paralleltest // viper is global
func TestCommands_RequireAPI(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := execute(t, NewSchemaCommand(), "resources")
	require.ErrorIs(t, err, constants.ErrNoAPIConfigured)
}

//nolint:paralleltest // viper is global
func TestCommands_ListAll(t *testing.T) {
	var posts []skellatest.Post
	for id := 1; id <= 5; id++ {
		posts = append(posts, skellatest.Post{ID: id, Title: fmt.Sprintf("post %d", id)})
	}

	server := skellatest.New(skellatest.WithPosts(posts...))
	defer server.Close()

	setupViper(t, server)

	out, err := execute(t, NewListCommand(), "blog-posts", "--all", "--limit", "2")
	require.NoError(t, err)

	var result page
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Objects, 5)
	assert.Equal(t, 5, result.Limit)

	out, err = execute(t, NewListCommand(), "blog-posts", "--all", "--limit", "2", "--max-pages", "2")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Objects, 4)
}

//nolint:paralleltest // viper is global
func TestCommands_Batch(t *testing.T) {
	server := skellatest.New(skellatest.WithPosts(
		skellatest.Post{ID: 1, Title: "first"},
		skellatest.Post{ID: 2, Title: "second"},
	))
	defer server.Close()

	setupViper(t, server)

	path := filepath.Join(t.TempDir(), "ops.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: one
  op: fetch
  resource: blog-post
  attributes: {id: 1}
- id: two
  op: fetch
  resource: blog-post
  attributes: {id: 2}
`), 0o600))

	out, err := execute(t, NewBatchCommand(), path)
	require.NoError(t, err)

	var outcomes []batchOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "first", outcomes[0].Result["title"])
	assert.Equal(t, "second", outcomes[1].Result["title"])
	assert.Contains(t, outcomes[1].URL, "/blog-post/2")

	require.NoError(t, os.WriteFile(path, []byte(`
- id: missing
  op: fetch
  resource: blog-post
  attributes: {id: 9}
`), 0o600))

	out, err = execute(t, NewBatchCommand(), path)
	require.ErrorIs(t, err, constants.ErrBatchFailed)
	assert.Contains(t, out, skella.ErrorIDResourceNotFound)

	require.NoError(t, os.WriteFile(path, []byte("- op: rename\n  resource: blog-post\n"), 0o600))

	_, err = execute(t, NewBatchCommand(), path)
	require.ErrorIs(t, err, skella.ErrUnsupportedOperation)
}

//nolint:paralleltest,funlen // viper is global
func TestCommands_EndToEnd(t *testing.T) {
	server := skellatest.New(skellatest.WithPosts(
		skellatest.Post{ID: 2, Title: "second"},
		skellatest.Post{ID: 1, Title: "first"},
	))
	defer server.Close()

	configFile := setupViper(t, server)
	user := server.AddUser("cli@example.com", "s3cret-pass", true)

	out, err := execute(t, NewSchemaCommand(), "resources")
	require.NoError(t, err)

	var definitions []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &definitions))
	require.Len(t, definitions, 5)
	assert.Equal(t, "User", definitions[0]["name"])
	assert.Equal(t, "Users", definitions[3]["name"])
	assert.Equal(t, "list", definitions[3]["kind"])

	out, err = execute(t, NewSchemaCommand(), "show", "blog-posts")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "BlogPosts"`)
	assert.NotContains(t, out, `"element"`)

	_, err = execute(t, NewWhoamiCommand())
	require.ErrorIs(t, err, constants.ErrNotLoggedIn)

	out, err = execute(t, NewLoginCommand(), "--email", user.Email, "--password", "s3cret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as cli@example.com")

	saved, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "token:")
	assert.Contains(t, string(saved), "email: cli@example.com")

	out, err = execute(t, NewWhoamiCommand())
	require.NoError(t, err)

	var current map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &current))
	assert.Equal(t, user.ID, current["id"])
	assert.Equal(t, true, current["privileged"])

	out, err = execute(t, NewGetCommand(), "user", "id="+user.ID)
	require.NoError(t, err)
	assert.Contains(t, out, user.Email)

	out, err = execute(t, NewListCommand(), "blog-posts")
	require.NoError(t, err)

	var posts page
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	require.Len(t, posts.Objects, 2)
	assert.Equal(t, "first", posts.Objects[0]["title"])

	out, err = execute(t, NewListCommand(), "blog-posts", "--received-order")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	assert.Equal(t, "second", posts.Objects[0]["title"])

	avatar := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(avatar, []byte("PNG"), 0o600))

	_, err = execute(t, NewUploadCommand(), "user-avatar", "id="+user.ID, "--field", "image", "--file", avatar, "--form", "caption=me")
	require.NoError(t, err)

	uploads := server.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "me.png", uploads[0].Filename)
	assert.Equal(t, "me", uploads[0].Fields["caption"])

	out, err = execute(t, NewLogoutCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	saved, err = os.ReadFile(configFile)
	require.NoError(t, err)
	assert.NotContains(t, string(saved), "token:")
}
