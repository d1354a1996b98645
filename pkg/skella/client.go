package skella

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fivetwenty-io/skella/internal/constants"
)

var validate = validator.New()

// Schema fetches the schema document and hands out resources built from it.
type Schema interface {
	// Fetch requests the schema document, builds the registry and notifies
	// EventPopulated subscribers.
	Fetch(ctx context.Context) error
	State() State
	// Version is the API version of the most recently built registry.
	Version() string
	Registry() *Registry
	// FindResourceByName normalizes name and looks it up. Unknown names, and
	// any name before population, report false.
	FindResourceByName(name string) (*ResourceDefinition, bool)
	Resources() []*ResourceDefinition

	NewModel(name string, attributes Attributes) (Model, error)
	NewCollection(name string, options Attributes, opts ...CollectionOption) (Collection, error)
	ModelFor(definition *ResourceDefinition, attributes Attributes) Model
	CollectionFor(definition *ResourceDefinition, options Attributes, opts ...CollectionOption) Collection

	// IsPrivileged reports whether the current user carries the privilege attribute.
	IsPrivileged() bool
	CurrentUser() Model
	// Subscribe registers handler for kind and returns a function that removes it.
	Subscribe(kind EventKind, handler EventHandler) func()
}

// Model is a single-entity resource instance.
type Model interface {
	Definition() *ResourceDefinition
	Get(key string) (interface{}, bool)
	GetString(key string) string
	GetBool(key string) bool
	Set(key string, value interface{})
	SetAttributes(attributes Attributes)
	Unset(key string)
	Attributes() Attributes
	ID() (interface{}, bool)
	IsNew() bool
	// URL expands the path template against the current attributes.
	URL() string

	Fetch(ctx context.Context) error
	Save(ctx context.Context) error
	Destroy(ctx context.Context) error
	// RawGet issues a GET with query parameters and decodes the body into target.
	// params may be url.Values, map[string]string, or a struct with schema tags.
	RawGet(ctx context.Context, params interface{}, target interface{}) error
	// SendForm submits a multipart form to the model's address.
	SendForm(ctx context.Context, method string, form *Form, target interface{}) error
	FileTypeForProperty(name string) string
	HasFiles() bool
	// OnSync registers a hook that runs after each successful Fetch or Save.
	OnSync(hook func(Model))
}

// Collection is a paginated list resource instance.
type Collection interface {
	Definition() *ResourceDefinition
	Options() Attributes
	URL() string
	Fetch(ctx context.Context, opts *ListOptions) error
	Models() []Model
	At(index int) Model
	Len() int
	Offset() int
	Limit() int
}

// Session handles login, logout and the cached current user.
type Session interface {
	Login(ctx context.Context, email, password string) (Model, error)
	Logout(ctx context.Context) error
	// LoggedIn reports whether the session cookie is present. No request is made.
	LoggedIn() bool
	// Restore loads the cached user record, if any, as the current user.
	Restore(ctx context.Context) (Model, error)
	// SyncUser fetches the current user from the API and refreshes the cache.
	SyncUser(ctx context.Context) (Model, error)
	CurrentUser() Model
	// Token returns the session cookie value so it can be persisted.
	Token() string
}

// Client bundles a schema controller and its session facade.
type Client interface {
	Schema() Schema
	Session() Session
}

// ListOptions are the pagination parameters of a collection fetch.
type ListOptions struct {
	Offset int        `schema:"offset,omitempty"`
	Limit  int        `schema:"limit,omitempty"`
	Extra  url.Values `schema:"-"`
}

// NewListOptions creates list options for the given window.
func NewListOptions(offset, limit int) *ListOptions {
	return &ListOptions{Offset: offset, Limit: limit}
}

// With adds an extra query parameter.
func (o *ListOptions) With(key, value string) *ListOptions {
	if o.Extra == nil {
		o.Extra = url.Values{}
	}

	o.Extra.Add(key, value)

	return o
}

// CollectionOptions control how a collection orders its members.
type CollectionOptions struct {
	// Comparator orders members after each fetch with a stable sort. Nil keeps
	// the received order.
	Comparator func(a, b Model) int
}

// DefaultCollectionOptions orders members by id.
func DefaultCollectionOptions() *CollectionOptions {
	return &CollectionOptions{Comparator: CompareByID}
}

// CompareByID orders models by their id attribute. Numeric ids sort before
// string ids, and models without an id sort last and compare equal, so a
// stable sort keeps their received order.
func CompareByID(a, b Model) int {
	idA, hasA := a.ID()
	idB, hasB := b.ID()

	switch {
	case !hasA && !hasB:
		return 0
	case !hasA:
		return 1
	case !hasB:
		return -1
	}

	numA, isNumA := numericValue(idA)
	numB, isNumB := numericValue(idB)

	switch {
	case isNumA && isNumB:
		return cmp.Compare(numA, numB)
	case isNumA:
		return -1
	case isNumB:
		return 1
	}

	return strings.Compare(FormatValue(idA), FormatValue(idB))
}

func numericValue(value interface{}) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case json.Number:
		number, err := typed.Float64()

		return number, err == nil
	default:
		return 0, false
	}
}

// CollectionOption configures a collection.
type CollectionOption func(*CollectionOptions)

// WithComparator orders members with cmp after each fetch.
func WithComparator(cmp func(a, b Model) int) CollectionOption {
	return func(o *CollectionOptions) {
		o.Comparator = cmp
	}
}

// WithReceivedOrder keeps members exactly in the order the server sent them.
func WithReceivedOrder() CollectionOption {
	return func(o *CollectionOptions) {
		o.Comparator = nil
	}
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration.
//
// # Addresses
//
// The schema is fetched from SchemaURL when set, otherwise from
// "<APIRoot>/<APIVersion>/schema". Resource paths are resolved against
// "<APIRoot>/<version>" where version is the one captured from the schema.
// One of APIRoot or SchemaURL is required.
//
// # Session
//
// The session is carried by a cookie (SessionCookie, "skella_auth" by default).
// SessionToken seeds the cookie jar so a session can outlive the process.
// The last-known current user is kept in Cache under UserCacheKey.
type Config struct {
	// APIRoot: base URL of the API without the version (e.g. "https://example.com/api").
	APIRoot string `validate:"omitempty,url"`
	// APIVersion: version used for the schema fetch and session endpoints.
	APIVersion string
	// SchemaURL: full schema address; overrides the one derived from APIRoot.
	SchemaURL string `validate:"omitempty,url"`

	// UserResource: endpoint name of the user record. Defaults to "user".
	UserResource string
	// PrivilegeAttribute: boolean user attribute that marks elevated access. Defaults to "staff".
	PrivilegeAttribute string
	// SessionCookie: cookie name whose presence marks a session. Defaults to "skella_auth".
	SessionCookie string
	// SessionToken: value restored into the session cookie on construction.
	SessionToken string
	// UserCacheKey: cache slot for the current user record. Defaults to "user".
	UserCacheKey string
	// Cache: where the current user record is kept. Defaults to an in-memory cache.
	Cache Cache

	// HTTPTimeout: per-attempt timeout of the underlying http.Client.
	HTTPTimeout time.Duration
	// RetryMax: retries for 5xx, 429 and connection errors. Zero sends each request once.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug: log each request and response through Logger.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// SkipTLSVerify: disables certificate verification. Development only.
	SkipTLSVerify bool
	// Interceptors: run around every request sent by the client.
	Interceptors *InterceptorChain
}

// Validate checks the configuration. A missing schema source yields ErrSchemaURLRequired.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	if c.APIRoot == "" && c.SchemaURL == "" {
		return ErrSchemaURLRequired
	}

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	c.APIRoot = strings.TrimSuffix(c.APIRoot, "/")

	if c.APIVersion == "" {
		c.APIVersion = constants.DefaultAPIVersion
	}

	if c.APIRoot == "" && c.SchemaURL != "" {
		c.APIRoot = apiRootFromSchemaURL(c.SchemaURL)
	}

	if c.UserResource == "" {
		c.UserResource = constants.DefaultUserResource
	}

	if c.PrivilegeAttribute == "" {
		c.PrivilegeAttribute = constants.DefaultPrivilegeAttribute
	}

	if c.SessionCookie == "" {
		c.SessionCookie = constants.DefaultSessionCookie
	}

	if c.UserCacheKey == "" {
		c.UserCacheKey = constants.DefaultUserCacheKey
	}

	if c.Cache == nil {
		c.Cache = NewMemoryCache(constants.DefaultCacheSize)
	}
}

// apiRootFromSchemaURL strips "/<version>/schema" from a schema address.
func apiRootFromSchemaURL(schemaURL string) string {
	root := strings.TrimSuffix(strings.TrimSuffix(schemaURL, "/"), constants.SchemaPath)

	index := strings.LastIndexByte(root, '/')
	if index < 0 {
		return root
	}

	return root[:index]
}

// VersionedRoot returns "<APIRoot>/<version>".
func (c *Config) VersionedRoot(version string) string {
	return c.APIRoot + "/" + version
}

// SchemaAddress returns the URL the schema document is fetched from.
func (c *Config) SchemaAddress() string {
	if c.SchemaURL != "" {
		return c.SchemaURL
	}

	return c.VersionedRoot(c.APIVersion) + constants.SchemaPath
}

// AcceptHeader returns the versioned Accept header value.
func AcceptHeader(version string) string {
	return constants.AcceptHeaderPrefix + version
}
