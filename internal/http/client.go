// Package http is the transport used by the skella client: a retrying HTTP
// client with a cookie jar and an interceptor chain.
package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// Client sends requests relative to a base URL.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	jar          *cookiejar.Jar
	logger       skella.Logger
	debug        bool
	userAgent    string
	interceptors *skella.InterceptorChain

	timeout       time.Duration
	retryMax      int
	retryWaitMin  time.Duration
	retryWaitMax  time.Duration
	skipTLSVerify bool
}

// Request is one API request. Path is either relative to the base URL or an
// absolute URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string

	// RawBody is sent untouched with ContentType instead of JSON-encoding Body.
	RawBody     []byte
	ContentType string

	// Accept is applied after custom headers and interceptors. Empty means application/json.
	Accept string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger skella.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig enables retries for 5xx, 429 and connection errors.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = retryMax

		if waitMin > 0 {
			c.retryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.retryWaitMax = waitMax
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *skella.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithSkipTLSVerify disables certificate verification.
func WithSkipTLSVerify(skip bool) Option {
	return func(c *Client) {
		c.skipTLSVerify = skip
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) // never fails without options

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		jar:          jar,
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
		retryMax:     constants.DefaultRetryMax,
		retryWaitMin: constants.DefaultRetryWaitMin,
		retryWaitMax: constants.DefaultRetryWaitMax,
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = client.retryMax
	retryClient.RetryWaitMin = client.retryWaitMin
	retryClient.RetryWaitMax = client.retryWaitMax
	retryClient.Logger = nil
	retryClient.CheckRetry = retryablehttp.DefaultRetryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = client.timeout
	retryClient.HTTPClient.Jar = jar

	if client.skipTLSVerify {
		if transport, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for development servers
		}
	}

	client.httpClient = retryClient

	return client
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req. For non-2xx responses the response is returned together with
// a *skella.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	address, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	intercepted := &skella.Request{
		Method:  req.Method,
		Path:    address,
		Headers: make(http.Header),
		Body:    body,
	}

	intercepted.Headers.Set("User-Agent", c.userAgent)

	if contentType != "" {
		intercepted.Headers.Set("Content-Type", contentType)
	}

	for key, value := range req.Headers {
		intercepted.Headers.Set(key, value)
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	accept := req.Accept
	if accept == "" {
		accept = intercepted.Headers.Get("Accept")
	}

	if accept == "" {
		accept = constants.ContentTypeJSON
	}

	intercepted.Headers.Set("Accept", accept)

	var payload interface{}
	if len(intercepted.Body) > 0 {
		payload = intercepted.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, intercepted.Method, intercepted.Path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": intercepted.Method,
			"url":    intercepted.Path,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &skella.Response{Error: err})

		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status": resp.StatusCode,
			"size":   len(resp.Body),
		})
	}

	var apiErr error
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr = skella.ParseAPIError(resp.StatusCode, resp.Body)
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &skella.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
		Error:      apiErr,
	})
	if err != nil {
		return resp, err
	}

	if apiErr != nil {
		return resp, apiErr
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Cookie returns the value of the named cookie the jar would send to address.
// A relative address is resolved against the base URL.
func (c *Client) Cookie(address, name string) (string, bool) {
	target, err := c.cookieURL(address)
	if err != nil {
		return "", false
	}

	for _, cookie := range c.jar.Cookies(target) {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}

	return "", false
}

// SetCookie stores a cookie with Path "/" for the base URL's host.
func (c *Client) SetCookie(name, value string) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}

	c.jar.SetCookies(base, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// ClearCookie expires the named cookie at every path on the way to address,
// so a cookie scoped to any of them stops being sent there.
func (c *Client) ClearCookie(address, name string) {
	target, err := c.cookieURL(address)
	if err != nil {
		return
	}

	expired := make([]*http.Cookie, 0, strings.Count(target.Path, "/")+1)
	expired = append(expired, &http.Cookie{Name: name, Path: "/", MaxAge: -1})

	for index := 1; index < len(target.Path); index++ {
		if target.Path[index] == '/' {
			expired = append(expired, &http.Cookie{Name: name, Path: target.Path[:index], MaxAge: -1})
		}
	}

	if target.Path != "" && target.Path != "/" {
		expired = append(expired, &http.Cookie{Name: name, Path: strings.TrimSuffix(target.Path, "/"), MaxAge: -1})
	}

	c.jar.SetCookies(target, expired)
}

func (c *Client) cookieURL(address string) (*url.URL, error) {
	resolved, err := c.resolve(address, nil)
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(resolved)
	if err != nil {
		return nil, fmt.Errorf("parsing cookie URL: %w", err)
	}

	return target, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	address := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		address = c.baseURL + path
	}

	if len(query) == 0 {
		return address, nil
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parsing request URL: %w", err)
	}

	values := parsed.Query()
	for key, items := range query {
		for _, item := range items {
			values.Add(key, item)
		}
	}

	parsed.RawQuery = values.Encode()

	return parsed.String(), nil
}

func encodeBody(req *Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}

	if req.Body == nil {
		return nil, "", nil
	}

	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encoding request body: %w", err)
	}

	return data, constants.ContentTypeJSON, nil
}
