package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propvest", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propvest", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propvest", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	RecommendationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propvest", Name: "recommendation_runs_total", Help: "Recommendation requests served."},
		[]string{"source"}, // source: computed|cached
	)
	PropertiesScored = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "propvest", Name: "properties_scored",
			Help:    "Properties ranked per recommendation request.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)
	HistoryWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propvest", Name: "history_writes_total", Help: "Recommendation runs recorded."},
		[]string{"status"}, // status: ok|error
	)
)

// InitRegistry returns a registry with every Propvest collector registered.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, CacheEvents, RecommendationRuns, PropertiesScored, HistoryWrites)
	return reg
}

// MetricsHandler exposes the registry in the Prometheus text format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NewMetricsServer serves /metrics on its own listener.
func NewMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveRecommendation(cached bool, scored int) {
	if cached {
		RecommendationRuns.WithLabelValues("cached").Inc()
		return
	}
	RecommendationRuns.WithLabelValues("computed").Inc()
	PropertiesScored.Observe(float64(scored))
}

func ObserveHistoryWrite(err error) {
	if err != nil {
		HistoryWrites.WithLabelValues("error").Inc()
		return
	}
	HistoryWrites.WithLabelValues("ok").Inc()
}
