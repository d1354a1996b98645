// Package skellaclient provides the entry point for constructing a skella
// API client that implements the skella.Client interface.
//
// It normalizes configuration, builds the HTTP transport, and wires the
// schema controller to the session so a cached user is restored whenever the
// schema is populated.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/skella/pkg/skella"
//	  "github.com/fivetwenty-io/skella/pkg/skellaclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := skellaclient.New(&skella.Config{APIRoot: "https://example.com/api"})
//	  if err != nil { log.Fatal(err) }
//
//	  err = cli.Schema().Fetch(ctx)
//	  if err != nil { log.Fatal(err) }
//
//	  user, err := cli.Session().Login(ctx, "me@example.com", "secret")
//	  if err != nil { log.Fatal(err) }
//	  _ = user
//	}
//
// A session token saved from Session().Token() can be passed back through
// Config.SessionToken to resume a session in a later process.
package skellaclient
