package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_requests_total",
		Help: "Requests served, by engine, operation and outcome",
	}, []string{"engine", "op", "outcome"})

	RequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvs_request_latency_seconds",
		Help:    "Histogram of engine call latency per operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine", "op"})

	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvs_active_connections",
		Help: "Client connections currently open",
	})

	PoolPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvs_pool_recovered_panics_total",
		Help: "Jobs that panicked inside a thread pool and were recovered",
	})
)
