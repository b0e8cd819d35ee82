// Package metrics records pipeline counters in Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// Ensure Collector implements the interface.
var _ driven.PipelineMetrics = (*Collector)(nil)

const namespace = "chronicle"

// Collector implements driven.PipelineMetrics with Prometheus metrics.
type Collector struct {
	pagesFetched      prometheus.Counter
	itemsFetched      prometheus.Counter
	rateLimited       prometheus.Counter
	cooldownSeconds   prometheus.Histogram
	containersSkipped *prometheus.CounterVec
	itemsArchived     *prometheus.CounterVec
	writeFailures     prometheus.Counter
	remoteCalls       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Message pages fetched from the API.",
		}),
		itemsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Messages returned by page fetches.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Rate limit responses received.",
		}),
		cooldownSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting out rate limits.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		containersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containers_skipped_total",
			Help:      "Channels abandoned before their history was exhausted.",
		}, []string{"reason"}),
		itemsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_archived_total",
			Help:      "Messages classified and archived, by category.",
		}, []string{"category"}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Record files that could not be written.",
		}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_classifications_total",
			Help:      "Remote classifier calls, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.pagesFetched,
		c.itemsFetched,
		c.rateLimited,
		c.cooldownSeconds,
		c.containersSkipped,
		c.itemsArchived,
		c.writeFailures,
		c.remoteCalls,
	)

	return c
}

// PageFetched counts one page and its items.
func (c *Collector) PageFetched(items int) {
	c.pagesFetched.Inc()
	c.itemsFetched.Add(float64(items))
}

// RateLimited counts a rate limit and the wait it caused.
func (c *Collector) RateLimited(wait time.Duration) {
	c.rateLimited.Inc()
	c.cooldownSeconds.Observe(wait.Seconds())
}

// ContainerSkipped counts an abandoned channel.
func (c *Collector) ContainerSkipped(reason string) {
	c.containersSkipped.WithLabelValues(reason).Inc()
}

// ItemArchived counts an archived item under its category.
func (c *Collector) ItemArchived(category domain.Category) {
	c.itemsArchived.WithLabelValues(category.String()).Inc()
}

// WriteFailed counts a failed record write.
func (c *Collector) WriteFailed() {
	c.writeFailures.Inc()
}

// RemoteClassified counts a remote classifier call. Failures are
// labelled "error", successes by the returned category.
func (c *Collector) RemoteClassified(category domain.Category, err error) {
	if err != nil {
		c.remoteCalls.WithLabelValues("error").Inc()
		return
	}
	c.remoteCalls.WithLabelValues(category.String()).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
