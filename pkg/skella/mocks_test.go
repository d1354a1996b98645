package skella_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

// MockModel implements skella.Model for testing.
type MockModel struct {
	mock.Mock
}

func (m *MockModel) Definition() *skella.ResourceDefinition { return nil }
func (m *MockModel) Get(key string) (interface{}, bool)     { return nil, false }
func (m *MockModel) GetString(key string) string            { return "" }
func (m *MockModel) GetBool(key string) bool                { return false }
func (m *MockModel) Set(key string, value interface{})      {}
func (m *MockModel) SetAttributes(skella.Attributes)        {}
func (m *MockModel) Unset(key string)                       {}
func (m *MockModel) Attributes() skella.Attributes          { return skella.Attributes{} }
func (m *MockModel) ID() (interface{}, bool)                { return nil, false }
func (m *MockModel) IsNew() bool                            { return true }
func (m *MockModel) URL() string                            { return "" }
func (m *MockModel) FileTypeForProperty(name string) string { return "" }
func (m *MockModel) HasFiles() bool                         { return false }
func (m *MockModel) OnSync(hook func(skella.Model))         {}

func (m *MockModel) Fetch(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockModel) Save(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockModel) Destroy(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockModel) RawGet(ctx context.Context, params interface{}, target interface{}) error {
	return m.Called(ctx, params, target).Error(0)
}

func (m *MockModel) SendForm(ctx context.Context, method string, form *skella.Form, target interface{}) error {
	return m.Called(ctx, method, form, target).Error(0)
}

// pagedCollection serves fixed pages keyed by offset.
type pagedCollection struct {
	total    int
	limit    int
	requests []*skella.ListOptions
	failAt   int
	models   []skella.Model
}

func newPagedCollection(total, limit int) *pagedCollection {
	return &pagedCollection{total: total, limit: limit, failAt: -1}
}

func (c *pagedCollection) Definition() *skella.ResourceDefinition { return nil }
func (c *pagedCollection) Options() skella.Attributes             { return nil }
func (c *pagedCollection) URL() string                            { return "/items" }
func (c *pagedCollection) Len() int                               { return len(c.models) }
func (c *pagedCollection) Offset() int                            { return 0 }
func (c *pagedCollection) Limit() int                             { return c.limit }
func (c *pagedCollection) Models() []skella.Model                 { return c.models }

func (c *pagedCollection) At(index int) skella.Model {
	if index < 0 || index >= len(c.models) {
		return nil
	}

	return c.models[index]
}

func (c *pagedCollection) Fetch(ctx context.Context, opts *skella.ListOptions) error {
	c.requests = append(c.requests, opts)

	if opts.Offset == c.failAt {
		return errPageFailed
	}

	end := c.total
	if opts.Limit > 0 {
		end = min(opts.Offset+opts.Limit, c.total)
	}

	c.models = nil
	for i := opts.Offset; i < end; i++ {
		c.models = append(c.models, &MockModel{})
	}

	return nil
}
