package couch_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTestInterceptor = errors.New("interceptor error")

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := couch.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *couch.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *couch.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(ctx, &couch.Request{Method: "GET", Path: "/albums"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := couch.NewInterceptorChain()

	called := false

	chain.AddResponseInterceptor(func(ctx context.Context, req *couch.Request, resp *couch.Response) error {
		return errTestInterceptor
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *couch.Request, resp *couch.Response) error {
		called = true

		return nil
	})

	err := chain.ExecuteResponseInterceptors(context.Background(), &couch.Request{}, &couch.Response{})
	require.ErrorIs(t, err, errTestInterceptor)
	assert.False(t, called)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := couch.HeaderInterceptor(map[string]string{
		"X-Custom-Header": "custom-value",
		"X-Request-ID":    "123456",
	})

	req := &couch.Request{Method: "GET", Path: "/albums"}

	err := interceptor(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "custom-value", req.Headers.Get("X-Custom-Header"))
	assert.Equal(t, "123456", req.Headers.Get("X-Request-ID"))
}

type recordingLogger struct {
	couch.NopLogger

	debug []string
	warn  []string
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.debug = append(l.debug, msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.warn = append(l.warn, msg) }

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &couch.Request{Method: "PUT", Path: "/albums/doc1"}

	require.NoError(t, couch.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, couch.LoggingResponseInterceptor(logger)(context.Background(), req, &couch.Response{StatusCode: 201}))
	require.NoError(t, couch.LoggingResponseInterceptor(logger)(context.Background(), req, &couch.Response{
		StatusCode: 409,
		Error:      couch.NewError("PUT", "/albums/doc1", 409, "Conflict", ""),
	}))

	assert.Equal(t, []string{"CouchDB Request", "CouchDB Response"}, logger.debug)
	assert.Equal(t, []string{"CouchDB Response Error"}, logger.warn)
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	collector := couch.NewMetricsCollector()

	var changes []string

	collector.SetOnChange(func(endpoint string, _ couch.Metrics) {
		changes = append(changes, endpoint)
	})

	interceptor := collector.Interceptor()
	req := &couch.Request{Method: "PUT", Path: "/albums/doc1"}

	require.NoError(t, interceptor(context.Background(), req, &couch.Response{StatusCode: http.StatusCreated, Duration: 10 * time.Millisecond}))
	require.NoError(t, interceptor(context.Background(), req, &couch.Response{
		StatusCode: http.StatusConflict,
		Duration:   30 * time.Millisecond,
		Error:      couch.NewError("PUT", "/albums/doc1", http.StatusConflict, "Conflict", ""),
	}))

	metrics, ok := collector.GetMetrics("PUT /albums/doc1")
	require.True(t, ok)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.Equal(t, int64(1), metrics.TotalConflicts)
	assert.Equal(t, 20*time.Millisecond, metrics.AverageLatency)
	assert.Equal(t, []string{"PUT /albums/doc1", "PUT /albums/doc1"}, changes)

	_, ok = collector.GetMetrics("GET /")
	assert.False(t, ok)
}
