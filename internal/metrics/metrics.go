// Package metrics holds the Prometheus collectors for download decisions,
// upload grants and enrichment outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DownloadDecisions counts download requests by outcome
	// (accepted, quota_exceeded, payment_required, ...).
	DownloadDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viralpik",
		Name:      "download_decisions_total",
		Help:      "Download authorization decisions by outcome.",
	}, []string{"outcome"})

	UploadGrants = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "viralpik",
		Name:      "upload_grants_total",
		Help:      "Signed upload URLs issued.",
	})

	// EnrichmentTasks counts enrichment sub-tasks by task and result.
	EnrichmentTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viralpik",
		Name:      "enrichment_tasks_total",
		Help:      "Enrichment sub-task outcomes.",
	}, []string{"task", "result"})

	URLCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viralpik",
		Name:      "url_cache_lookups_total",
		Help:      "Presigned download URL cache lookups.",
	}, []string{"result"})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
