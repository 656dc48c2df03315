// Package metrics exposes Prometheus counters for crawl activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesVisited counts pages fetched during email extraction.
	PagesVisited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forager_pages_visited_total",
		Help: "Pages fetched during email extraction.",
	})

	// EmailsFound counts distinct email addresses discovered.
	EmailsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forager_emails_found_total",
		Help: "Distinct email addresses discovered across all jobs.",
	})

	// SitemapsFetched counts sitemap documents fetched during discovery.
	SitemapsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forager_sitemaps_fetched_total",
		Help: "Sitemap documents fetched during URL discovery.",
	})

	// JobsCompleted counts finished jobs by terminal status.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forager_jobs_completed_total",
		Help: "Jobs finished, labelled by terminal status.",
	}, []string{"status"})

	// JobDuration observes end-to-end job runtime in seconds.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forager_job_duration_seconds",
		Help:    "End-to-end job runtime.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
