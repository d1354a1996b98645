package skella

import (
	"sort"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// Registry maps normalized endpoint names to resource definitions. It is
// filled by BuildRegistry and read-only afterwards.
type Registry struct {
	version     string
	definitions map[string]*ResourceDefinition
	positions   map[string]int
	order       []string
}

// BuildRegistry compiles endpoint declarations into a registry.
//
// Single-entity endpoints are registered first, then list endpoints. A list's
// member type resolves only to an entity declared before the list in the
// document. A member type declared later, one that is itself a list, or one
// missing from the document leaves Element nil. The reference is not revisited.
func BuildRegistry(version string, endpoints []Endpoint) *Registry {
	registry := &Registry{
		version:     version,
		definitions: make(map[string]*ResourceDefinition, len(endpoints)),
		positions:   make(map[string]int, len(endpoints)),
	}

	for position, endpoint := range endpoints {
		if IsListShaped(endpoint.Properties) {
			continue
		}

		registry.register(endpoint, position, KindSingle, nil)
	}

	for position, endpoint := range endpoints {
		if !IsListShaped(endpoint.Properties) {
			continue
		}

		registry.register(endpoint, position, KindList, registry.resolveElement(endpoint, position))
	}

	return registry
}

func (r *Registry) resolveElement(endpoint Endpoint, position int) *ResourceDefinition {
	objects, found := endpoint.Property(constants.PropertyObjects)
	if !found || objects.ChildrenType == "" {
		return nil
	}

	element, found := r.Lookup(objects.ChildrenType)
	if !found || element.Kind != KindSingle || r.positions[element.Name] > position {
		return nil
	}

	return element
}

func (r *Registry) register(endpoint Endpoint, position int, kind ResourceKind, element *ResourceDefinition) {
	name, ok := NormalizeName(endpoint.Name)
	if !ok {
		return
	}

	if _, exists := r.definitions[name]; !exists {
		r.order = append(r.order, name)
	}

	r.positions[name] = position

	r.definitions[name] = &ResourceDefinition{
		Name:         name,
		Kind:         kind,
		PathTemplate: endpoint.Path,
		APIVersion:   r.version,
		Endpoint:     endpoint,
		Element:      element,
	}
}

// Version returns the API version captured when the registry was built.
func (r *Registry) Version() string {
	if r == nil {
		return ""
	}

	return r.version
}

// Lookup normalizes name and returns its definition.
func (r *Registry) Lookup(name string) (*ResourceDefinition, bool) {
	if r == nil {
		return nil, false
	}

	key, ok := NormalizeName(name)
	if !ok {
		return nil, false
	}

	definition, found := r.definitions[key]

	return definition, found
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.definitions)
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Definitions returns the definitions in registration order: entities first,
// then lists, each in document order.
func (r *Registry) Definitions() []*ResourceDefinition {
	if r == nil {
		return nil
	}

	definitions := make([]*ResourceDefinition, 0, len(r.order))
	for _, name := range r.order {
		definitions = append(definitions, r.definitions[name])
	}

	return definitions
}
