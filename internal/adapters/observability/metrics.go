package observability

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fairprice", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	FetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "fetch_requests_total", Help: "Listing-source fetches."},
		[]string{"scope", "outcome"}, // outcome: ok|empty|error
	)
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fairprice", Name: "fetch_duration_seconds",
			Help:    "Listing-source fetch duration seconds.",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 45, 90},
		},
		[]string{"scope"},
	)
	PoolAcquisitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "pool_acquisitions_total", Help: "Browser session acquisitions."},
		[]string{"outcome"}, // outcome: ok|spawned|timeout|canceled|spawn_error
	)
	PoolInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "fairprice", Name: "pool_sessions_in_use", Help: "Leased browser sessions."},
	)
	LadderRungs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "ladder_rungs_total", Help: "Escalation ladder rungs attempted."},
		[]string{"rung"},
	)
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "analyses_total", Help: "Completed analyses by outcome."},
		[]string{"outcome"}, // outcome: ok|degraded|cached|invalid|no_analogs|error
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fairprice", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, FetchRequests, FetchLatency,
		PoolAcquisitions, PoolInUse, LadderRungs, Analyses, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveFetch(scope, outcome string, dur time.Duration) {
	FetchRequests.WithLabelValues(scope, outcome).Inc()
	FetchLatency.WithLabelValues(scope).Observe(dur.Seconds())
}

func ObservePool(outcome string) { PoolAcquisitions.WithLabelValues(outcome).Inc() }

func ObserveRung(rung string) { LadderRungs.WithLabelValues(rung).Inc() }

func ObserveAnalysis(outcome string) { Analyses.WithLabelValues(outcome).Inc() }

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
