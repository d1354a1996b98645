package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	internalhttp "github.com/fivetwenty-io/skella/internal/http"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// collection implements skella.Collection for every list definition.
type collection struct {
	schema     *Schema
	definition *skella.ResourceDefinition
	root       string
	options    skella.Attributes
	comparator func(a, b skella.Model) int

	mu     sync.RWMutex
	models []skella.Model
	offset int
	limit  int
}

// envelope is the body of a list response.
type envelope struct {
	Offset  int                 `json:"offset"`
	Limit   int                 `json:"limit"`
	Objects []skella.Attributes `json:"objects"`
}

func newCollection(
	schema *Schema,
	definition *skella.ResourceDefinition,
	options skella.Attributes,
	opts ...skella.CollectionOption,
) *collection {
	settings := skella.DefaultCollectionOptions()
	for _, opt := range opts {
		opt(settings)
	}

	return &collection{
		schema:     schema,
		definition: definition,
		root:       schema.config.VersionedRoot(definition.APIVersion),
		options:    ensureAttributes(options.Clone()),
		comparator: settings.Comparator,
	}
}

// Definition implements skella.Collection.Definition.
func (c *collection) Definition() *skella.ResourceDefinition {
	return c.definition
}

// Options implements skella.Collection.Options.
func (c *collection) Options() skella.Attributes {
	return c.options.Clone()
}

// URL implements skella.Collection.URL. The path template is expanded
// against the collection options.
func (c *collection) URL() string {
	return c.root + skella.ExpandPath(c.definition.PathTemplate, c.options)
}

// Fetch implements skella.Collection.Fetch. The member sequence is replaced.
func (c *collection) Fetch(ctx context.Context, opts *skella.ListOptions) error {
	query, err := listQuery(opts)
	if err != nil {
		return err
	}

	address := c.URL()

	resp, err := c.schema.transport.Do(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   address,
		Query:  query,
		Accept: skella.AcceptHeader(c.definition.APIVersion),
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", c.definition.Name, err)
	}

	var page envelope

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return fmt.Errorf("parsing %s response: %w", c.definition.Name, err)
	}

	models := make([]skella.Model, 0, len(page.Objects))
	for _, attributes := range page.Objects {
		models = append(models, c.member(address, attributes))
	}

	if c.comparator != nil {
		sort.SliceStable(models, func(i, j int) bool {
			return c.comparator(models[i], models[j]) < 0
		})
	}

	c.mu.Lock()
	c.models = models
	c.offset = page.Offset
	c.limit = page.Limit
	c.mu.Unlock()

	return nil
}

// member builds a typed model when the element definition is known and an
// untyped one addressed below the collection otherwise.
func (c *collection) member(address string, attributes skella.Attributes) skella.Model {
	if c.definition.Element != nil {
		return c.schema.ModelFor(c.definition.Element, attributes)
	}

	return newMemberModel(c.schema.transport, address, c.definition.APIVersion, attributes)
}

// Models implements skella.Collection.Models.
func (c *collection) Models() []skella.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]skella.Model(nil), c.models...)
}

// At implements skella.Collection.At. Out of range indexes return nil.
func (c *collection) At(index int) skella.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.models) {
		return nil
	}

	return c.models[index]
}

// Len implements skella.Collection.Len.
func (c *collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.models)
}

// Offset implements skella.Collection.Offset.
func (c *collection) Offset() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.offset
}

// Limit implements skella.Collection.Limit.
func (c *collection) Limit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.limit
}
