package skella_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/skella/pkg/skella"
)

var errInterceptorTest = errors.New("interceptor error")

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.messages = append(l.messages, "debug:"+msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.messages = append(l.messages, "info:"+msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.messages = append(l.messages, "warn:"+msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.messages = append(l.messages, "error:"+msg) }

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := skella.NewInterceptorChain()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *skella.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	}).AddRequestInterceptor(func(ctx context.Context, req *skella.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &skella.Request{Method: http.MethodGet, Path: "/schema"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := skella.NewInterceptorChain()
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *skella.Request) error {
		return errInterceptorTest
	}).AddRequestInterceptor(func(ctx context.Context, req *skella.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &skella.Request{})
	require.ErrorIs(t, err, errInterceptorTest)
	assert.Contains(t, err.Error(), "request interceptor failed")
	assert.False(t, called)

	chain.AddResponseInterceptor(func(ctx context.Context, req *skella.Request, resp *skella.Response) error {
		return errInterceptorTest
	})

	err = chain.ExecuteResponseInterceptors(context.Background(), &skella.Request{}, &skella.Response{})
	require.ErrorIs(t, err, errInterceptorTest)
	assert.Contains(t, err.Error(), "response interceptor failed")
}

func TestInterceptorChain_Nil(t *testing.T) {
	t.Parallel()

	var chain *skella.InterceptorChain

	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), &skella.Request{}))
	require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), &skella.Request{}, &skella.Response{}))
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := skella.HeaderInterceptor(map[string]string{"X-Client": "cli", "Accept": "text/plain"})
	req := &skella.Request{}

	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "cli", req.Headers.Get("X-Client"))
	assert.Equal(t, "text/plain", req.Headers.Get("Accept"))
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := skella.RequestIDInterceptor()

	first := &skella.Request{}
	second := &skella.Request{}

	require.NoError(t, interceptor(context.Background(), first))
	require.NoError(t, interceptor(context.Background(), second))

	assert.Len(t, first.Headers.Get(skella.RequestIDHeader), 36)
	assert.NotEqual(t, first.Headers.Get(skella.RequestIDHeader), second.Headers.Get(skella.RequestIDHeader))

	preset := &skella.Request{Headers: http.Header{skella.RequestIDHeader: []string{"fixed"}}}
	require.NoError(t, interceptor(context.Background(), preset))
	assert.Equal(t, "fixed", preset.Headers.Get(skella.RequestIDHeader))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &skella.Request{Method: http.MethodGet, Path: "/user/current"}

	require.NoError(t, skella.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, skella.LoggingResponseInterceptor(logger)(context.Background(), req, &skella.Response{StatusCode: http.StatusOK}))
	require.NoError(t, skella.LoggingResponseInterceptor(logger)(context.Background(), req, &skella.Response{Error: errInterceptorTest}))

	assert.Equal(t, []string{"debug:API Request", "debug:API Response", "error:API Response Error"}, logger.messages)
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	collector, err := skella.NewMetricsCollector(registry)
	require.NoError(t, err)

	chain := skella.NewInterceptorChain().Instrument(collector)
	ctx := context.Background()

	for _, status := range []int{http.StatusOK, http.StatusOK, http.StatusNotFound} {
		req := &skella.Request{Method: http.MethodGet, Path: "/schema"}
		require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
		assert.Contains(t, req.Metadata, "start_time")
		require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &skella.Response{StatusCode: status}))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(collector.Requests().WithLabelValues(http.MethodGet, "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.Requests().WithLabelValues(http.MethodGet, "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.Errors().WithLabelValues(http.MethodGet)), 0)

	_, err = skella.NewMetricsCollector(registry)
	require.Error(t, err, "registering twice fails")

	unregistered, err := skella.NewMetricsCollector(nil)
	require.NoError(t, err)
	assert.NotNil(t, unregistered)
}
