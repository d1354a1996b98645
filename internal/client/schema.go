package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/skella/internal/http"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// Schema implements skella.Schema. The registry is swapped whole under a
// lock, so readers never observe a partially built one. Overlapping fetches
// are not coordinated: whichever completes last wins. The state stays
// Populating while any fetch is in flight.
type Schema struct {
	transport *http.Client
	config    *skella.Config

	mu          sync.RWMutex
	state       skella.State
	inFlight    int
	registry    *skella.Registry
	currentUser skella.Model

	subscribersMu sync.Mutex
	subscribers   []subscription
	nextID        int
}

type subscription struct {
	id      int
	kind    skella.EventKind
	handler skella.EventHandler
}

// NewSchema creates an unpopulated controller. A config without a schema
// source fails with skella.ErrSchemaURLRequired.
func NewSchema(transport *http.Client, config *skella.Config) (*Schema, error) {
	if config == nil {
		return nil, skella.ErrConfigRequired
	}

	if config.APIRoot == "" && config.SchemaURL == "" {
		return nil, skella.ErrSchemaURLRequired
	}

	return &Schema{
		transport: transport,
		config:    config,
		state:     skella.StateUnpopulated,
	}, nil
}

// Fetch implements skella.Schema.Fetch.
func (s *Schema) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.inFlight++
	s.state = skella.StatePopulating
	s.mu.Unlock()

	resp, err := s.transport.Do(ctx, &http.Request{
		Method: "GET",
		Path:   s.config.SchemaAddress(),
		Accept: skella.AcceptHeader(s.config.APIVersion),
	})
	if err != nil {
		s.settle()

		return fmt.Errorf("fetching schema: %w", err)
	}

	var document skella.SchemaDocument

	err = json.Unmarshal(resp.Body, &document)
	if err != nil {
		s.settle()

		return fmt.Errorf("parsing schema document: %w", err)
	}

	version := document.API.Version
	if version == "" {
		version = s.config.APIVersion
	}

	registry := skella.BuildRegistry(version, document.Endpoints)

	s.mu.Lock()
	s.registry = registry
	s.finishFetch()
	s.mu.Unlock()

	s.emit(skella.Event{Kind: skella.EventPopulated, Version: version})

	return nil
}

// settle ends a failed fetch. An earlier registry stays in use.
func (s *Schema) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finishFetch()
}

// finishFetch must be called with mu held. Once no fetch is in flight the
// state is populated if a registry is held, unpopulated otherwise.
func (s *Schema) finishFetch() {
	s.inFlight--
	if s.inFlight > 0 {
		return
	}

	if s.registry != nil {
		s.state = skella.StatePopulated
	} else {
		s.state = skella.StateUnpopulated
	}
}

// State implements skella.Schema.State.
func (s *Schema) State() skella.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Version implements skella.Schema.Version.
func (s *Schema) Version() string {
	return s.Registry().Version()
}

// Registry implements skella.Schema.Registry.
func (s *Schema) Registry() *skella.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registry
}

// FindResourceByName implements skella.Schema.FindResourceByName.
func (s *Schema) FindResourceByName(name string) (*skella.ResourceDefinition, bool) {
	return s.Registry().Lookup(name)
}

// Resources implements skella.Schema.Resources.
func (s *Schema) Resources() []*skella.ResourceDefinition {
	return s.Registry().Definitions()
}

// NewModel implements skella.Schema.NewModel.
func (s *Schema) NewModel(name string, attributes skella.Attributes) (skella.Model, error) {
	definition, found := s.FindResourceByName(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", skella.ErrResourceNotFound, name)
	}

	if definition.IsList() {
		return nil, fmt.Errorf("%w: %s", skella.ErrNotASingle, definition.Name)
	}

	return s.ModelFor(definition, attributes), nil
}

// NewCollection implements skella.Schema.NewCollection.
func (s *Schema) NewCollection(
	name string,
	options skella.Attributes,
	opts ...skella.CollectionOption,
) (skella.Collection, error) {
	definition, found := s.FindResourceByName(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", skella.ErrResourceNotFound, name)
	}

	if !definition.IsList() {
		return nil, fmt.Errorf("%w: %s", skella.ErrNotAList, definition.Name)
	}

	return s.CollectionFor(definition, options, opts...), nil
}

// ModelFor implements skella.Schema.ModelFor.
func (s *Schema) ModelFor(definition *skella.ResourceDefinition, attributes skella.Attributes) skella.Model {
	return newModel(s.transport, s.config.VersionedRoot(definition.APIVersion), definition, attributes)
}

// CollectionFor implements skella.Schema.CollectionFor.
func (s *Schema) CollectionFor(
	definition *skella.ResourceDefinition,
	options skella.Attributes,
	opts ...skella.CollectionOption,
) skella.Collection {
	return newCollection(s, definition, options, opts...)
}

// IsPrivileged implements skella.Schema.IsPrivileged.
func (s *Schema) IsPrivileged() bool {
	user := s.CurrentUser()
	if user == nil {
		return false
	}

	return user.GetBool(s.config.PrivilegeAttribute)
}

// CurrentUser implements skella.Schema.CurrentUser.
func (s *Schema) CurrentUser() skella.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentUser
}

func (s *Schema) setCurrentUser(user skella.Model) {
	s.mu.Lock()
	s.currentUser = user
	s.mu.Unlock()
}

// Subscribe implements skella.Schema.Subscribe.
func (s *Schema) Subscribe(kind skella.EventKind, handler skella.EventHandler) func() {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	s.nextID++
	id := s.nextID

	s.subscribers = append(s.subscribers, subscription{id: id, kind: kind, handler: handler})

	return func() {
		s.subscribersMu.Lock()
		defer s.subscribersMu.Unlock()

		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)

				return
			}
		}
	}
}

// emit calls each handler subscribed to event.Kind once, outside the lock.
func (s *Schema) emit(event skella.Event) {
	s.subscribersMu.Lock()

	handlers := make([]skella.EventHandler, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if sub.kind == event.Kind {
			handlers = append(handlers, sub.handler)
		}
	}

	s.subscribersMu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// apiVersion is the captured version once populated, the configured one before.
func (s *Schema) apiVersion() string {
	version := s.Version()
	if version == "" {
		return s.config.APIVersion
	}

	return version
}
