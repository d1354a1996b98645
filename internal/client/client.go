package client

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fivetwenty-io/skella/internal/http"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

var validate = validator.New()

// Client implements the skella.Client interface.
type Client struct {
	httpClient *http.Client
	config     *skella.Config
	schema     *Schema
	session    *Session
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *skella.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, http.WithSkipTLSVerify(true))
	}

	return httpOpts
}

// New creates a client. The configuration is validated and defaulted in place.
func New(config *skella.Config) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	httpClient := http.NewClient(config.APIRoot, createHTTPClientOptions(config)...)
	if config.SessionToken != "" {
		httpClient.SetCookie(config.SessionCookie, config.SessionToken)
	}

	schema, err := NewSchema(httpClient, config)
	if err != nil {
		return nil, err
	}

	session := NewSession(schema, httpClient, config)

	schema.Subscribe(skella.EventPopulated, func(skella.Event) {
		_, restoreErr := session.Restore(context.Background())
		if restoreErr != nil && config.Logger != nil {
			config.Logger.Warn("restoring cached user", map[string]interface{}{"error": restoreErr.Error()})
		}
	})

	return &Client{
		httpClient: httpClient,
		config:     config,
		schema:     schema,
		session:    session,
	}, nil
}

// Schema implements skella.Client.Schema.
func (c *Client) Schema() skella.Schema {
	return c.schema
}

// Session implements skella.Client.Session.
func (c *Client) Session() skella.Session {
	return c.session
}

// Populate fetches the schema. It is shorthand for Schema().Fetch.
func (c *Client) Populate(ctx context.Context) error {
	err := c.schema.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("populating client: %w", err)
	}

	return nil
}
