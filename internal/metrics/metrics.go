package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followpick_provider_requests_total",
		Help: "Provider requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	ProviderRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followpick_provider_retries_total",
		Help: "Provider retry attempts after 429/5xx or transport errors",
	}, []string{"endpoint"})
	ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "followpick_provider_request_duration_seconds",
		Help:    "Provider call duration including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	Picks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followpick_picks_total",
		Help: "Winner picks by mode and outcome (ok or error code)",
	}, []string{"mode", "outcome"})
	HeuristicPicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "followpick_heuristic_picks_total",
		Help: "Orientation picks drawn from a count-only baseline",
	})
	SnapshotsSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followpick_snapshots_saved_total",
		Help: "Snapshots persisted by fidelity",
	}, []string{"fidelity"})
)

func init() {
	prometheus.MustRegister(ProviderRequests, ProviderRetries, ProviderDuration, Picks, HeuristicPicks, SnapshotsSaved)
}

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProvider records one finished provider call.
func ObserveProvider(endpoint, outcome string, start time.Time) {
	ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	ProviderDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncRetry increments the retry counter for an endpoint.
func IncRetry(endpoint string) { ProviderRetries.WithLabelValues(endpoint).Inc() }

// IncPick records a pick outcome.
func IncPick(mode, outcome string) { Picks.WithLabelValues(mode, outcome).Inc() }

// IncSnapshot records a persisted snapshot.
func IncSnapshot(fidelity string) { SnapshotsSaved.WithLabelValues(fidelity).Inc() }
