package client_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/skella/internal/skellatest"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestModel(t *testing.T) {
	t.Parallel()

	t.Run("fetch expands the path from attributes", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli, user := loggedInClient(t, server, false)

		model, err := cli.Schema().NewModel("user", skella.Attributes{"id": user.ID})
		require.NoError(t, err)
		assert.Equal(t, server.APIRoot()+"/0.1.0/user/"+user.ID, model.URL())
		assert.False(t, model.IsNew())

		require.NoError(t, model.Fetch(context.Background()))
		assert.Equal(t, user.Email, model.GetString("email"))
		assert.False(t, model.GetBool("staff"))
	})

	t.Run("changing the id changes the address", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli, user := loggedInClient(t, server, false)
		other := server.AddUser("other@example.com", testPassword, false)

		model, err := cli.Schema().NewModel("user", skella.Attributes{"id": user.ID})
		require.NoError(t, err)

		model.Set("id", other.ID)
		require.NoError(t, model.Fetch(context.Background()))
		assert.Equal(t, "other@example.com", model.GetString("email"))
	})

	t.Run("save puts and runs sync hooks", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli, user := loggedInClient(t, server, false)

		model, err := cli.Schema().NewModel("user", skella.Attributes{"id": user.ID})
		require.NoError(t, err)

		var synced int

		model.OnSync(func(skella.Model) { synced++ })

		model.Set("first-name", "Ada")
		require.NoError(t, model.Save(context.Background()))

		assert.Equal(t, 1, synced)
		assert.Equal(t, user.Email, model.GetString("email"))

		model.Unset("first-name")
		require.NoError(t, model.Fetch(context.Background()))
		assert.Equal(t, 2, synced)
		assert.Equal(t, "Ada", model.GetString("first-name"))
	})

	t.Run("errors carry the API error", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli := populatedClient(t, server)

		model, err := cli.Schema().NewModel("user", skella.Attributes{"id": "missing"})
		require.NoError(t, err)

		err = model.Fetch(context.Background())
		require.Error(t, err)
		assert.True(t, skella.IsNotLoggedIn(err))
		assert.True(t, skella.IsUnauthorized(err))
	})

	t.Run("destroying a new model sends nothing", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli := populatedClient(t, server)

		model, err := cli.Schema().NewModel("blog-post", nil)
		require.NoError(t, err)
		assert.True(t, model.IsNew())

		before := len(server.Accepts())

		require.NoError(t, model.Destroy(context.Background()))
		assert.Len(t, server.Accepts(), before)
	})

	t.Run("raw get encodes parameters", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli, user := loggedInClient(t, server, false)

		model, err := cli.Schema().NewModel("user", skella.Attributes{"id": user.ID})
		require.NoError(t, err)

		var result struct {
			Email string `json:"email"`
		}

		require.NoError(t, model.RawGet(context.Background(), url.Values{"fields": {"email"}}, &result))
		assert.Equal(t, user.Email, result.Email)

		query := struct {
			Fields string `schema:"fields"`
		}{Fields: "email"}

		require.NoError(t, model.RawGet(context.Background(), query, nil))

		err = model.RawGet(context.Background(), 42, nil)
		require.ErrorIs(t, err, skella.ErrUnsupportedParams)
	})

	t.Run("accessors", func(t *testing.T) {
		t.Parallel()

		server := skellatest.New()
		defer server.Close()

		cli := populatedClient(t, server)

		attributes := skella.Attributes{"id": 3.0, "title": "Hello"}

		model, err := cli.Schema().NewModel("blog-post", attributes)
		require.NoError(t, err)

		attributes["title"] = "changed outside"
		assert.Equal(t, "Hello", model.GetString("title"))
		assert.Equal(t, "3", model.GetString("id"))
		assert.Equal(t, server.APIRoot()+"/0.1.0/blog-post/3", model.URL())

		model.SetAttributes(skella.Attributes{"title": "Again", "draft": true})
		assert.True(t, model.GetBool("draft"))

		model.Unset("draft")
		_, found := model.Get("draft")
		assert.False(t, found)

		copied := model.Attributes()
		copied["title"] = "mutated"
		assert.Equal(t, "Again", model.GetString("title"))

		assert.Equal(t, "BlogPost", model.Definition().Name)
		assert.False(t, model.HasFiles())
	})
}

func TestModel_SendForm(t *testing.T) {
	t.Parallel()

	server := skellatest.New()
	defer server.Close()

	cli, user := loggedInClient(t, server, false)

	avatar, err := cli.Schema().NewModel("user-avatar", skella.Attributes{"id": user.ID})
	require.NoError(t, err)
	assert.True(t, avatar.HasFiles())
	assert.Equal(t, "image/png", avatar.FileTypeForProperty("image"))
	assert.Empty(t, avatar.FileTypeForProperty("id"))

	err = avatar.SendForm(context.Background(), "", nil, nil)
	require.ErrorIs(t, err, skella.ErrNilForm)

	form := skella.NewForm().
		AddField("caption", "me").
		AddFile("image", "me.png", strings.NewReader("not really a png"))

	var result struct {
		Filename string `json:"filename"`
		Size     int    `json:"size"`
	}

	require.NoError(t, avatar.SendForm(context.Background(), "", form, &result))
	assert.Equal(t, "me.png", result.Filename)
	assert.Equal(t, len("not really a png"), result.Size)

	uploads := server.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, user.ID, uploads[0].UserID)
	assert.Equal(t, "image", uploads[0].Field)
	assert.Equal(t, "me", uploads[0].Fields["caption"])
}
