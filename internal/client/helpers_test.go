package client_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/skella/internal/client"
	"github.com/fivetwenty-io/skella/internal/skellatest"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

const testPassword = "correct horse battery staple"

var emails atomic.Int32

// newTestClient builds a client for server. mutate adjusts the config before construction.
func newTestClient(t *testing.T, server *skellatest.Server, mutate ...func(*skella.Config)) *client.Client {
	t.Helper()

	config := &skella.Config{APIRoot: server.APIRoot()}
	for _, fn := range mutate {
		fn(config)
	}

	cli, err := client.New(config)
	require.NoError(t, err)

	return cli
}

// populatedClient returns a client whose schema has been fetched.
func populatedClient(t *testing.T, server *skellatest.Server, mutate ...func(*skella.Config)) *client.Client {
	t.Helper()

	cli := newTestClient(t, server, mutate...)
	require.NoError(t, cli.Populate(context.Background()))

	return cli
}

// loggedInClient returns a populated client logged in as a new user.
func loggedInClient(t *testing.T, server *skellatest.Server, staff bool) (*client.Client, *skellatest.User) {
	t.Helper()

	user := server.AddUser(fmt.Sprintf("user%d@example.com", emails.Add(1)), testPassword, staff)
	cli := populatedClient(t, server)

	_, err := cli.Session().Login(context.Background(), user.Email, testPassword)
	require.NoError(t, err)

	return cli, user
}
