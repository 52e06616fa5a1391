// Package metrics exposes Prometheus collectors for the gazette pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Day outcomes recorded by ObserveDay.
const (
	DayPublished = "published"
	DayMissing   = "missing"
	DayFailed    = "failed"
	DayMalformed = "malformed"
)

// Fetch attempt outcomes recorded by ObserveFetch.
const (
	FetchOK        = "ok"
	FetchNotFound  = "not_found"
	FetchRetry     = "retry"
	FetchExhausted = "exhausted"
)

var (
	catalogDaysTotal        *prometheus.CounterVec
	catalogItemsTotal       *prometheus.CounterVec
	fetchAttemptsTotal      *prometheus.CounterVec
	fetchBytesTotal         *prometheus.CounterVec
	textExtractionsTotal    *prometheus.CounterVec
	throttleDelaysSeconds   *prometheus.HistogramVec
	textAttachDocsPerMinute prometheus.Gauge

	apiRequestsTotal          *prometheus.CounterVec
	apiRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		catalogDaysTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boe_catalog_days_total",
				Help: "Total number of calendar days processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		catalogItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boe_catalog_items_total",
				Help: "Total number of catalog items emitted, labeled by theme.",
			},
			[]string{"theme"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boe_fetch_attempts_total",
				Help: "Total number of HTTP GET attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boe_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		textExtractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boe_text_extractions_total",
				Help: "Total number of text attachment attempts, labeled by source (xml, html, none).",
			},
			[]string{"source"},
		)

		throttleDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boe_throttle_delays_seconds",
				Help:    "Histogram of throttle wait durations.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"lane"},
		)

		textAttachDocsPerMinute = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "boe_text_attach_docs_per_minute",
				Help: "Most recent text attachment throughput.",
			},
		)

		apiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boe_api_requests_total",
				Help: "Total number of operator API requests, labeled by method and status code.",
			},
			[]string{"method", "code"},
		)

		apiRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boe_api_request_duration_seconds",
				Help:    "Histogram of operator API request durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDay counts one processed calendar day.
func ObserveDay(outcome string) {
	Init()
	catalogDaysTotal.WithLabelValues(outcome).Inc()
}

// ObserveItem counts one emitted catalog item.
func ObserveItem(theme string) {
	Init()
	catalogItemsTotal.WithLabelValues(theme).Inc()
}

// ObserveFetch counts one GET attempt and the bytes it returned.
func ObserveFetch(rawURL string, outcome string, bytesFetched int) {
	Init()
	site := SanitizeSite(rawURL)
	fetchAttemptsTotal.WithLabelValues(site, outcome).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveExtraction counts one text attachment attempt by source.
func ObserveExtraction(source string) {
	Init()
	textExtractionsTotal.WithLabelValues(source).Inc()
}

// ObserveThrottleDelay records the duration of a throttle wait.
func ObserveThrottleDelay(lane string, duration time.Duration) {
	Init()
	throttleDelaysSeconds.WithLabelValues(lane).Observe(duration.Seconds())
}

// SetDocsPerMinute publishes the current text attachment throughput.
func SetDocsPerMinute(rate float64) {
	Init()
	textAttachDocsPerMinute.Set(rate)
}

// ObserveHTTPRequest records one operator API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	apiRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	apiRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
