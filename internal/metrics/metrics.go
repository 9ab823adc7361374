// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels shared by the page and archive counters.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

var (
	pagesTotal     *prometheus.CounterVec
	documentsTotal *prometheus.CounterVec
	archivesTotal  *prometheus.CounterVec
	imagesTotal    *prometheus.CounterVec
	crawlsActive   prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readingroom_pages_total",
				Help: "Search result pages fetched, labeled by result.",
			},
			[]string{"result"},
		)

		documentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readingroom_documents_total",
				Help: "Documents run through the pipeline, labeled by final status.",
			},
			[]string{"status"},
		)

		archivesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readingroom_archives_total",
				Help: "Archive requests, labeled by result.",
			},
			[]string{"result"},
		)

		imagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readingroom_images_generated_total",
				Help: "Image generation calls, labeled by result.",
			},
			[]string{"result"},
		)

		crawlsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "readingroom_crawls_active",
				Help: "Number of crawls currently running.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObservePage counts a fetched search result page.
func ObservePage(result string) {
	Init()
	pagesTotal.WithLabelValues(result).Inc()
}

// ObserveDocument counts a document by its final pipeline status.
func ObserveDocument(status string) {
	Init()
	documentsTotal.WithLabelValues(status).Inc()
}

// ObserveArchive counts an archive request.
func ObserveArchive(result string) {
	Init()
	archivesTotal.WithLabelValues(result).Inc()
}

// ObserveImage counts an image generation call.
func ObserveImage(result string) {
	Init()
	imagesTotal.WithLabelValues(result).Inc()
}

// CrawlStarted marks a crawl as running; call the returned func when it ends.
func CrawlStarted() func() {
	Init()
	crawlsActive.Inc()
	return crawlsActive.Dec
}
