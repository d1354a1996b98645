package skella

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Request represents an HTTP request that can be intercepted.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) *InterceptorChain {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)

	return c
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) *InterceptorChain {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)

	return c
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	if c == nil {
		return nil
	}

	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	if c == nil {
		return nil
	}

	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// RequestIDHeader carries a per-request identifier.
const RequestIDHeader = "X-Request-ID"

// RequestIDInterceptor tags each request with a random identifier unless one is set.
func RequestIDInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		if req.Headers.Get(RequestIDHeader) == "" {
			req.Headers.Set(RequestIDHeader, uuid.NewString())
		}

		return nil
	}
}

// MetricsCollector records request counts and latencies as Prometheus metrics.
type MetricsCollector struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetricsCollector creates a collector and registers it with registerer.
// A nil registerer leaves the metrics unregistered.
func NewMetricsCollector(registerer prometheus.Registerer) (*MetricsCollector, error) {
	collector := &MetricsCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skella",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skella",
			Subsystem: "client",
			Name:      "errors_total",
			Help:      "API requests that failed or returned an error status.",
		}, []string{"method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skella",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if registerer != nil {
		for _, metric := range []prometheus.Collector{collector.requests, collector.errors, collector.latency} {
			err := registerer.Register(metric)
			if err != nil {
				return nil, fmt.Errorf("registering metrics: %w", err)
			}
		}
	}

	return collector, nil
}

// Requests returns the request counter.
func (m *MetricsCollector) Requests() *prometheus.CounterVec {
	return m.requests
}

// Errors returns the error counter.
func (m *MetricsCollector) Errors() *prometheus.CounterVec {
	return m.errors
}

// MetricsRequestInterceptor records request start time.
func MetricsRequestInterceptor(collector *MetricsCollector) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata["start_time"] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records response metrics.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		collector.requests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

		if startTime, ok := req.Metadata["start_time"].(time.Time); ok {
			collector.latency.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())
		}

		if resp.Error != nil || resp.StatusCode >= http.StatusBadRequest {
			collector.errors.WithLabelValues(req.Method).Inc()
		}

		return nil
	}
}

// Instrument adds the collector's request and response interceptors to the chain.
func (c *InterceptorChain) Instrument(collector *MetricsCollector) *InterceptorChain {
	return c.AddRequestInterceptor(MetricsRequestInterceptor(collector)).
		AddResponseInterceptor(MetricsResponseInterceptor(collector))
}
