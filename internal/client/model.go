package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/fivetwenty-io/skella/internal/constants"
	internalhttp "github.com/fivetwenty-io/skella/internal/http"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// model implements skella.Model for every single-entity definition.
type model struct {
	transport  *internalhttp.Client
	root       string
	version    string
	definition *skella.ResourceDefinition
	// memberOf is set for members of an untyped collection; their address
	// is the collection address followed by the id.
	memberOf string

	mu         sync.RWMutex
	attributes skella.Attributes
	hooks      []func(skella.Model)
}

func newModel(
	transport *internalhttp.Client,
	root string,
	definition *skella.ResourceDefinition,
	attributes skella.Attributes,
) *model {
	return &model{
		transport:  transport,
		root:       root,
		version:    definition.APIVersion,
		definition: definition,
		attributes: ensureAttributes(attributes.Clone()),
	}
}

func newMemberModel(
	transport *internalhttp.Client,
	collectionURL string,
	version string,
	attributes skella.Attributes,
) *model {
	return &model{
		transport:  transport,
		version:    version,
		memberOf:   collectionURL,
		attributes: ensureAttributes(attributes),
	}
}

func ensureAttributes(attributes skella.Attributes) skella.Attributes {
	if attributes == nil {
		return skella.Attributes{}
	}

	return attributes
}

// Definition implements skella.Model.Definition. Members of untyped
// collections have none.
func (m *model) Definition() *skella.ResourceDefinition {
	return m.definition
}

// Get implements skella.Model.Get.
func (m *model) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, found := m.attributes[key]

	return value, found
}

// GetString implements skella.Model.GetString.
func (m *model) GetString(key string) string {
	value, _ := m.Get(key)

	return skella.FormatValue(value)
}

// GetBool implements skella.Model.GetBool. Only a boolean true counts.
func (m *model) GetBool(key string) bool {
	value, _ := m.Get(key)
	flag, ok := value.(bool)

	return ok && flag
}

// Set implements skella.Model.Set.
func (m *model) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attributes[key] = value
}

// SetAttributes implements skella.Model.SetAttributes. Keys are merged.
func (m *model) SetAttributes(attributes skella.Attributes) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range attributes {
		m.attributes[key] = value
	}
}

// Unset implements skella.Model.Unset.
func (m *model) Unset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.attributes, key)
}

// Attributes implements skella.Model.Attributes. The result is a copy.
func (m *model) Attributes() skella.Attributes {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.attributes.Clone()
}

// ID implements skella.Model.ID.
func (m *model) ID() (interface{}, bool) {
	value, found := m.Get(constants.IDAttribute)

	return value, found && value != nil
}

// IsNew implements skella.Model.IsNew.
func (m *model) IsNew() bool {
	_, found := m.ID()

	return !found
}

// URL implements skella.Model.URL.
func (m *model) URL() string {
	if m.definition == nil {
		id, _ := m.ID()

		return m.memberOf + "/" + skella.FormatValue(id)
	}

	m.mu.RLock()
	path := skella.ExpandPath(m.definition.PathTemplate, m.attributes)
	m.mu.RUnlock()

	return m.root + path
}

// Fetch implements skella.Model.Fetch.
func (m *model) Fetch(ctx context.Context) error {
	resp, err := m.do(ctx, &internalhttp.Request{Method: http.MethodGet, Path: m.URL()})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", m.name(), err)
	}

	err = m.merge(resp.Body)
	if err != nil {
		return err
	}

	m.synced()

	return nil
}

// Save implements skella.Model.Save. New models are created with POST,
// others replaced with PUT.
func (m *model) Save(ctx context.Context) error {
	method := http.MethodPut
	if m.IsNew() {
		method = http.MethodPost
	}

	resp, err := m.do(ctx, &internalhttp.Request{Method: method, Path: m.URL(), Body: m.Attributes()})
	if err != nil {
		return fmt.Errorf("saving %s: %w", m.name(), err)
	}

	err = m.merge(resp.Body)
	if err != nil {
		return err
	}

	m.synced()

	return nil
}

// Destroy implements skella.Model.Destroy. A new model has nothing to delete.
func (m *model) Destroy(ctx context.Context) error {
	if m.IsNew() {
		return nil
	}

	_, err := m.do(ctx, &internalhttp.Request{Method: http.MethodDelete, Path: m.URL()})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", m.name(), err)
	}

	return nil
}

// RawGet implements skella.Model.RawGet.
func (m *model) RawGet(ctx context.Context, params interface{}, target interface{}) error {
	query, err := encodeQuery(params)
	if err != nil {
		return err
	}

	resp, err := m.do(ctx, &internalhttp.Request{Method: http.MethodGet, Path: m.URL(), Query: query})
	if err != nil {
		return fmt.Errorf("querying %s: %w", m.name(), err)
	}

	return decodeInto(resp.Body, target)
}

// SendForm implements skella.Model.SendForm. The body is sent as encoded by
// the form, with the form's own content type.
func (m *model) SendForm(ctx context.Context, method string, form *skella.Form, target interface{}) error {
	if form == nil {
		return skella.ErrNilForm
	}

	if method == "" {
		method = http.MethodPost
	}

	body, err := form.Encode()
	if err != nil {
		return fmt.Errorf("encoding form: %w", err)
	}

	resp, err := m.do(ctx, &internalhttp.Request{
		Method:      method,
		Path:        m.URL(),
		RawBody:     body,
		ContentType: form.ContentType(),
	})
	if err != nil {
		return fmt.Errorf("sending form to %s: %w", m.name(), err)
	}

	return decodeInto(resp.Body, target)
}

// FileTypeForProperty implements skella.Model.FileTypeForProperty.
func (m *model) FileTypeForProperty(name string) string {
	if m.definition == nil {
		return ""
	}

	property, found := m.definition.Endpoint.Property(name)
	if !found {
		return ""
	}

	return property.FileType
}

// HasFiles implements skella.Model.HasFiles.
func (m *model) HasFiles() bool {
	return m.definition != nil && m.definition.Endpoint.HasFiles()
}

// OnSync implements skella.Model.OnSync.
func (m *model) OnSync(hook func(skella.Model)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

func (m *model) synced() {
	m.mu.RLock()
	hooks := append([]func(skella.Model){}, m.hooks...)
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(m)
	}
}

func (m *model) do(ctx context.Context, req *internalhttp.Request) (*internalhttp.Response, error) {
	req.Accept = skella.AcceptHeader(m.version)

	return m.transport.Do(ctx, req)
}

// merge decodes a JSON object body into the attributes. Empty bodies are ignored.
func (m *model) merge(body []byte) error {
	if len(body) == 0 {
		return nil
	}

	var attributes skella.Attributes

	err := json.Unmarshal(body, &attributes)
	if err != nil {
		return fmt.Errorf("parsing %s response: %w", m.name(), err)
	}

	m.SetAttributes(attributes)

	return nil
}

func (m *model) name() string {
	if m.definition == nil {
		return m.memberOf
	}

	return m.definition.Name
}

func decodeInto(body []byte, target interface{}) error {
	if target == nil || len(body) == 0 {
		return nil
	}

	err := json.Unmarshal(body, target)
	if err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	return nil
}
