package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viaduct_records_consumed_total",
		Help: "Records pulled from Kafka into the holding buffer, per cluster.",
	}, []string{"cluster"})

	RecordsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "viaduct_records_emitted_total",
		Help: "Records drained from the holding buffer and pushed to sinks.",
	})

	BufferOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "viaduct_holding_buffer_occupancy",
		Help: "Records waiting in the holding buffer at the end of a work cycle.",
	})

	CommitRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "viaduct_offset_commits_total",
		Help: "Async offset commit requests issued by cluster workers.",
	})

	CommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "viaduct_offset_commit_failures_total",
		Help: "Offset commits whose callback reported an error.",
	})

	DroppedCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "viaduct_dropped_commit_updates_total",
		Help: "Offset updates dropped because no worker owns the cluster.",
	})
)

func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
