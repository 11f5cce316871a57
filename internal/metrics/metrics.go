// Package metrics bundles the Prometheus collectors for the connection
// pool and the HTTP server and registers them on a caller-supplied
// Registerer; cmd/dbps-server passes the default registry, which the
// server exposes at GET /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors for the connection pool, the credential
// store's token endpoint, and the HTTP server.
type Metrics struct {
	PoolOutstanding *prometheus.GaugeVec
	TokenMints      prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// New registers and returns the collector set. Call once per process.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		PoolOutstanding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbps",
			Subsystem: "pool",
			Name:      "outstanding_connections",
			Help:      "Number of connections currently borrowed or idle per origin.",
		}, []string{"origin"}),
		TokenMints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbps",
			Subsystem: "auth",
			Name:      "tokens_minted_total",
			Help:      "Total number of bearer tokens minted by the credential store.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbps",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency by endpoint and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}

	registry.MustRegister(m.PoolOutstanding, m.TokenMints, m.RequestDuration)
	return m
}
