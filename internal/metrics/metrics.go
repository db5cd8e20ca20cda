package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_source_requests_total",
			Help: "Total number of source queries by outcome",
		},
		[]string{"source", "outcome"},
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_source_duration_seconds",
			Help:    "Duration of source queries in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_analyses_total",
			Help: "Total number of composite analyses by number of failed sources",
		},
		[]string{"degraded"},
	)

	BrowsersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insight_browsers_active",
			Help: "Number of headless browser processes currently running",
		},
	)

	BrowserLaunchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_browser_launches_total",
			Help: "Total number of headless browser launch attempts",
		},
		[]string{"status"},
	)
)

// RecordSource updates the per-source counters. An empty kind means success.
func RecordSource(source, kind string, elapsed time.Duration) {
	outcome := "ok"
	if kind != "" {
		outcome = kind
	}
	SourceRequestsTotal.WithLabelValues(source, outcome).Inc()
	SourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordAnalysis counts one finished analysis.
func RecordAnalysis(failed int) {
	degraded := "false"
	if failed > 0 {
		degraded = "true"
	}
	AnalysesTotal.WithLabelValues(degraded).Inc()
}

// RecordLaunch counts a browser launch attempt.
func RecordLaunch(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	BrowserLaunchesTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
