package couch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports call metrics to a Prometheus registry.
type PrometheusCollector struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPrometheusCollector registers the couchdb_client_* metrics on reg.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	collector := &PrometheusCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couchdb_client",
			Name:      "requests_total",
			Help:      "Requests dispatched to the CouchDB server, by method, status code and error kind.",
		}, []string{"method", "code", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "couchdb_client",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests dispatched to the CouchDB server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	for _, c := range []prometheus.Collector{collector.requests, collector.latency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering couchdb metrics: %w", err)
		}
	}

	return collector, nil
}

// Interceptor returns the response interceptor feeding the collector.
func (p *PrometheusCollector) Interceptor() ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		kind := "ok"

		if resp.Error != nil {
			kind = "transport"
			if couchErr, ok := AsError(resp.Error); ok {
				kind = couchErr.Kind.String()
			}
		}

		p.requests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode), kind).Inc()
		p.latency.WithLabelValues(req.Method).Observe(resp.Duration.Seconds())

		return nil
	}
}
