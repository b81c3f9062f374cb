package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReclaimableBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvs_reclaimable_bytes",
		Help: "Bytes on disk held by commands no longer reachable from the index",
	})

	LiveKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvs_live_keys",
		Help: "Number of keys currently present in the index",
	})

	SegmentCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvs_segments",
		Help: "Number of log segments on disk",
	})

	CompactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_compactions_total",
		Help: "Compactions run, by outcome",
	}, []string{"outcome"})

	CompactionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvs_compaction_duration_seconds",
		Help:    "Time spent rewriting live entries during compaction",
		Buckets: prometheus.DefBuckets,
	})

	CompactedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvs_compacted_bytes_total",
		Help: "Reclaimable bytes released by compaction",
	})
)
