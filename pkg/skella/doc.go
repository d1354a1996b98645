// Package skella provides types, interfaces, and helpers for talking to a
// schema-described JSON API.
//
// # Overview
//
// The API publishes a schema document listing its endpoints. Each endpoint has
// a name, a path template such as "/user/{uuid}" and a list of properties. The
// package turns that document into a Registry of ResourceDefinitions: endpoints
// whose properties include offset, limit and objects become list resources,
// everything else becomes a single-entity resource. A list whose objects
// property names a children-type is linked to that entity's definition.
//
// The pure pieces (ExpandPath, IsListShaped, NormalizeName, BuildRegistry) have
// no I/O and can be used on their own. The runtime pieces (Schema, Model,
// Collection, Session) are implemented by package skellaclient.
//
// Getting a client
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
//	  cli, err := skellaclient.New(&skella.Config{APIRoot: "https://example.com/api"})
//	  if err != nil { log.Fatal(err) }
//
//	  err = cli.Schema().Fetch(ctx)
//	  if err != nil { log.Fatal(err) }
//
//	  users, err := cli.Schema().NewCollection("users", nil)
//	  if err != nil { log.Fatal(err) }
//
//	  err = users.Fetch(ctx, skella.NewListOptions(0, 20))
//	  if err != nil { log.Fatal(err) }
//	}
//
// # Sessions
//
// Login posts credentials to the current-user endpoint. The server answers with
// a session cookie that the client keeps in its cookie jar; Session.Token
// exposes its value so callers can persist it and pass it back through
// Config.SessionToken. The last-known user record is stored in a Cache.
//
// # Errors
//
// Non-2xx responses are returned as *APIError. IsNotFound, IsUnauthorized,
// IsForbidden and IsNotLoggedIn branch on the common cases.
//
// # Pagination and batches
//
// FetchAllPages, NewPaginationIterator and StreamPages walk a collection page
// by page with offset and limit. A BatchExecutor runs fetch, save and destroy
// operations on many models with bounded concurrency.
//
// # Interceptors and caching
//
// An InterceptorChain runs around every request. The package ships logging,
// header, request id and Prometheus metrics interceptors. Caches come in
// memory, file, NATS JetStream KV and no-op flavors; see NewCacheFromConfig.
package skella
