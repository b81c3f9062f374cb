package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/downfa11-org/go-kvs/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(ReclaimableBytes, LiveKeys, SegmentCount, CompactionsTotal, CompactionDuration, CompactedBytes)
	prometheus.MustRegister(RequestsTotal, RequestLatency, ActiveConnections, PoolPanics)
}

func StartMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		util.Info("Prometheus exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			util.Error("metrics server stopped: %v", err)
		}
	}()
}

// ObserveRequest records one engine call. outcome is "ok", "not_found",
// "key_not_found" or "error".
func ObserveRequest(engine, op, outcome string, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(engine, op, outcome).Inc()
	RequestLatency.WithLabelValues(engine, op).Observe(elapsed.Seconds())
}

// ObserveCompaction records a finished compaction.
func ObserveCompaction(elapsed time.Duration, reclaimed uint64, err error) {
	if err != nil {
		CompactionsTotal.WithLabelValues("error").Inc()
		return
	}
	CompactionsTotal.WithLabelValues("ok").Inc()
	CompactionDuration.Observe(elapsed.Seconds())
	CompactedBytes.Add(float64(reclaimed))
}
