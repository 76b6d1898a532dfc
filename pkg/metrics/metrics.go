// Package metrics collects Prometheus counters for the harvest pipeline and
// exposes them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface the pipeline reports into.
type Recorder interface {
	RecordImage(outcome string)
	RecordAccount(state string)
	RecordStrategy(strategy string, outcome string)
	RecordFetch(duration time.Duration, statusCode int)
}

// Image outcomes.
const (
	ImageDownloaded = "downloaded"
	ImageSkipped    = "skipped"
	ImageFailed     = "failed"
)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	images       *prometheus.CounterVec
	accounts     *prometheus.CounterVec
	strategies   *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	fetchLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igharvest_images_total",
			Help: "Images handled, by outcome.",
		}, []string{"outcome"}),
		accounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igharvest_accounts_total",
			Help: "Account jobs finished, by terminal state.",
		}, []string{"state"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igharvest_discovery_strategy_total",
			Help: "Discovery strategy runs, by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igharvest_fetch_http_status_total",
			Help: "Final HTTP status of image fetches; 0 is a transport failure.",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "igharvest_fetch_latency_seconds",
			Help:    "Image fetch latency including retries and redirects.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.images, c.accounts, c.strategies, c.httpStatus, c.fetchLatency)
	return c
}

func (c *Collector) RecordImage(outcome string) {
	c.images.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAccount(state string) {
	c.accounts.WithLabelValues(state).Inc()
}

func (c *Collector) RecordStrategy(strategy, outcome string) {
	c.strategies.WithLabelValues(strategy, outcome).Inc()
}

func (c *Collector) RecordFetch(duration time.Duration, statusCode int) {
	c.fetchLatency.Observe(duration.Seconds())
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler serves the gatherer's metrics in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

type nop struct{}

func (nop) RecordImage(string)             {}
func (nop) RecordAccount(string)           {}
func (nop) RecordStrategy(string, string)  {}
func (nop) RecordFetch(time.Duration, int) {}

// Nop returns a Recorder that drops everything.
func Nop() Recorder { return nop{} }
