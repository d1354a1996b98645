package skella

import (
	"encoding/json"
	"strings"
)

// SchemaDocument is the root document served at {apiRoot}/{version}/schema.
type SchemaDocument struct {
	API       APIInfo    `json:"api"       yaml:"api"`
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// APIInfo describes the API that published the schema.
type APIInfo struct {
	Version string `json:"version" yaml:"version"`
}

// Endpoint declares one addressable resource type.
type Endpoint struct {
	Name        string     `json:"name"                  yaml:"name"`
	Path        string     `json:"path"                  yaml:"path"`
	Title       string     `json:"title,omitempty"       yaml:"title,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  []Property `json:"properties"            yaml:"properties"`
}

// Property returns the property with the given name.
func (e Endpoint) Property(name string) (Property, bool) {
	return FindProperty(e.Properties, name)
}

// HasFiles reports whether any property carries binary content.
func (e Endpoint) HasFiles() bool {
	for _, property := range e.Properties {
		if property.FileType != "" {
			return true
		}
	}

	return false
}

// PropertyType is the declared data type of a property.
type PropertyType string

// Property types published by the schema.
const (
	PropertyTypeString     PropertyType = "string"
	PropertyTypeLongString PropertyType = "long-string"
	PropertyTypeInt        PropertyType = "int"
	PropertyTypeFloat      PropertyType = "float"
	PropertyTypeArray      PropertyType = "array"
	PropertyTypeObject     PropertyType = "object"
	PropertyTypeBool       PropertyType = "bool"
)

// ParsePropertyType maps a declared type onto the enumeration. Long-form aliases
// ("integer", "boolean") are accepted. Unknown types are returned as-is with ok false.
func ParsePropertyType(value string) (PropertyType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "string":
		return PropertyTypeString, true
	case "long-string":
		return PropertyTypeLongString, true
	case "int", "integer":
		return PropertyTypeInt, true
	case "float":
		return PropertyTypeFloat, true
	case "array":
		return PropertyTypeArray, true
	case "object":
		return PropertyTypeObject, true
	case "bool", "boolean":
		return PropertyTypeBool, true
	default:
		return PropertyType(value), false
	}
}

// Property declares one field of an endpoint.
type Property struct {
	Name         string       `json:"name"                    yaml:"name"`
	Type         PropertyType `json:"data-type"               yaml:"data-type"`
	Description  string       `json:"description,omitempty"   yaml:"description,omitempty"`
	Optional     bool         `json:"optional,omitempty"      yaml:"optional,omitempty"`
	ChildrenType string       `json:"children-type,omitempty" yaml:"children-type,omitempty"`
	FileType     string       `json:"file-type,omitempty"     yaml:"file-type,omitempty"`
}

// UnmarshalJSON accepts both the hyphenated keys the server publishes and their
// camel-case spellings.
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string `json:"name"`
		DataType        string `json:"data-type"`
		Type            string `json:"type"`
		Description     string `json:"description"`
		Optional        bool   `json:"optional"`
		ChildrenType    string `json:"children-type"`
		ChildrenTypeAlt string `json:"childrenType"`
		FileType        string `json:"file-type"`
		FileTypeAlt     string `json:"fileType"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	declared := raw.DataType
	if declared == "" {
		declared = raw.Type
	}

	p.Name = raw.Name
	p.Type, _ = ParsePropertyType(declared)
	p.Description = raw.Description
	p.Optional = raw.Optional
	p.ChildrenType = firstNonEmpty(raw.ChildrenType, raw.ChildrenTypeAlt)
	p.FileType = firstNonEmpty(raw.FileType, raw.FileTypeAlt)

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

// ResourceKind tells single-entity resources from paginated lists.
type ResourceKind int

const (
	// KindSingle is a single-entity resource (a Model).
	KindSingle ResourceKind = iota
	// KindList is a paginated list resource (a Collection).
	KindList
)

// String implements fmt.Stringer.
func (k ResourceKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind in JSON and YAML output.
func (k ResourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ResourceDefinition is the compiled description of one endpoint.
//
// Element is set only for list resources whose member type was registered
// before the list was processed. It is never filled in afterwards.
type ResourceDefinition struct {
	Name         string              `json:"name"              yaml:"name"`
	Kind         ResourceKind        `json:"kind"              yaml:"kind"`
	PathTemplate string              `json:"path"              yaml:"path"`
	APIVersion   string              `json:"api_version"       yaml:"api_version"`
	Endpoint     Endpoint            `json:"-"                 yaml:"-"`
	Element      *ResourceDefinition `json:"element,omitempty" yaml:"element,omitempty"`
}

// IsList reports whether the definition describes a collection.
func (d *ResourceDefinition) IsList() bool {
	return d != nil && d.Kind == KindList
}

// ElementName returns the member type name, or an empty string when unresolved.
func (d *ResourceDefinition) ElementName() string {
	if d == nil || d.Element == nil {
		return ""
	}

	return d.Element.Name
}

// Attributes holds the attribute values of a model.
type Attributes map[string]interface{}

// Clone returns a shallow copy.
func (a Attributes) Clone() Attributes {
	clone := make(Attributes, len(a))
	for key, value := range a {
		clone[key] = value
	}

	return clone
}

// State is the population state of a schema controller.
type State int

const (
	// StateUnpopulated is the initial state.
	StateUnpopulated State = iota
	// StatePopulating is held while a schema fetch is in flight.
	StatePopulating
	// StatePopulated is reached once a fetched schema has been built.
	StatePopulated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnpopulated:
		return "unpopulated"
	case StatePopulating:
		return "populating"
	case StatePopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// EventKind enumerates the notifications a schema controller emits.
type EventKind int

const (
	// EventPopulated fires after a schema fetch has been built.
	EventPopulated EventKind = iota
	// EventLoggedIn fires after a successful login.
	EventLoggedIn
	// EventLoggedOut fires after a successful logout.
	EventLoggedOut
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventPopulated:
		return "populated"
	case EventLoggedIn:
		return "logged-in"
	case EventLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers.
type Event struct {
	Kind    EventKind
	Version string
	User    Model
}

// EventHandler receives events.
type EventHandler func(Event)
