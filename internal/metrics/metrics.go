// Package metrics defines the Prometheus collectors for opera-events.
//
// Every method is safe on a nil *Metrics so that library callers which do
// not care about metrics can pass nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opera_events"

// Fetch kinds
const (
	KindSearch = "search"
	KindDetail = "detail"
)

// Metrics holds all collectors
type Metrics struct {
	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	listingBlocks   *prometheus.CounterVec
	tokensDropped   prometheus.Counter
	eventsExtracted prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Source page fetches by kind and outcome",
		}, []string{"kind", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching source pages",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		listingBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_blocks_total",
			Help:      "Listing blocks seen on result pages by outcome",
		}, []string{"outcome"}),
		tokensDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_tokens_dropped_total",
			Help:      "Date tokens that matched no known format",
		}),
		eventsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_extracted_total",
			Help:      "Event records produced from result pages",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.fetchTotal, m.fetchDuration,
		m.listingBlocks, m.tokensDropped, m.eventsExtracted,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// ObserveFetch records one fetch of the given kind
func (m *Metrics) ObserveFetch(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetchTotal.WithLabelValues(kind, status).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveExtraction records the outcome of one result page parse
func (m *Metrics) ObserveExtraction(parsed, skipped, dropped, events int) {
	if m == nil {
		return
	}
	m.listingBlocks.WithLabelValues("parsed").Add(float64(parsed))
	m.listingBlocks.WithLabelValues("skipped").Add(float64(skipped))
	m.tokensDropped.Add(float64(dropped))
	m.eventsExtracted.Add(float64(events))
}

// ObserveRequest records one served API request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
