package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits. Retries are opt-in; the default transport sends each request once.
const (
	// DefaultRetryMax is the number of retries when none is configured.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// API protocol.
const (
	// AcceptHeaderPrefix is followed by the API version in the Accept header.
	AcceptHeaderPrefix = "application/vnd.api+json; version="

	// DefaultAPIVersion is the version requested when none is configured.
	DefaultAPIVersion = "0.1.0"

	// SchemaPath is appended to the versioned API root to locate the schema document.
	SchemaPath = "/schema"

	// CurrentUserPath is the session endpoint relative to the versioned API root.
	CurrentUserPath = "/user/current"

	// ContentTypeJSON is sent with JSON request bodies.
	ContentTypeJSON = "application/json"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "skella-go"
)

// Schema vocabulary.
const (
	// PropertyOffset names the pagination offset property of list endpoints.
	PropertyOffset = "offset"

	// PropertyLimit names the pagination limit property of list endpoints.
	PropertyLimit = "limit"

	// PropertyObjects names the member list property of list endpoints.
	PropertyObjects = "objects"

	// IDAttribute identifies an entity within its collection.
	IDAttribute = "id"
)

// Session defaults.
const (
	// DefaultSessionCookie is the cookie whose presence marks an active session.
	DefaultSessionCookie = "skella_auth"

	// DefaultUserResource is the endpoint name used for the current user.
	DefaultUserResource = "user"

	// DefaultPrivilegeAttribute is the current-user attribute that grants elevated access.
	DefaultPrivilegeAttribute = "staff"

	// DefaultUserCacheKey is the cache slot holding the last-known current user.
	DefaultUserCacheKey = "user"
)

// Cache limits.
const (
	// DefaultCacheSize is the number of entries kept by the memory cache.
	DefaultCacheSize = 1000

	// DefaultNATSBucket is the KV bucket used by the NATS cache.
	DefaultNATSBucket = "skella"

	// DefaultNATSTimeout bounds NATS connection and KV operations.
	DefaultNATSTimeout = 5 * time.Second

	// DefaultPageSize is the limit requested per page when walking a collection.
	DefaultPageSize = 50

	// DefaultBatchConcurrency bounds concurrent batch operations.
	DefaultBatchConcurrency = 5
)

// Output formats.
const (
	FormatJSON = "json"

	FormatYAML = "yaml"

	FormatTable = "table"
)

// CLI display.
const (
	NotAvailable = "N/A"

	None = "none"

	CheckMarkSymbol = "✓"

	Masked = "***"
)
