// Package metrics defines the Prometheus collectors used across the pipeline
// and exposes helpers for scraping or dumping them at the end of a batch run.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	DumpRowsTotal           *prometheus.CounterVec
	TitleNormalizations     *prometheus.CounterVec
	AnchorsTotal            *prometheus.CounterVec
	DocumentsExtractedTotal prometheus.Counter
	FilesProcessedTotal     *prometheus.CounterVec
	SurfacePairsTotal       *prometheus.CounterVec
	ProbabilityRowsTotal    *prometheus.CounterVec
	StageDuration           *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		DumpRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dump_rows_total",
				Help: "SQL dump rows by table and status (ok, bad, skipped, missed).",
			},
			[]string{"table", "status"},
		),
		TitleNormalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "title_normalizations_total",
				Help: "Title normalizer calls by result (redirect, canonical, recapitalized, null).",
			},
			[]string{"result"},
		),
		AnchorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anchors_total",
				Help: "Anchors seen during link extraction by status.",
			},
			[]string{"status"},
		),
		DocumentsExtractedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "documents_extracted_total",
				Help: "Total documents emitted by the link span extractor.",
			},
		),
		FilesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "files_processed_total",
				Help: "Input files processed by stage and status.",
			},
			[]string{"stage", "status"},
		),
		SurfacePairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surface_pairs_total",
				Help: "Surface/title pairs added to multi-maps by mode and source.",
			},
			[]string{"mode", "source"},
		),
		ProbabilityRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probability_rows_written_total",
				Help: "Conditional probability rows written per table.",
			},
			[]string{"table"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stage_duration_seconds",
				Help:    "Wall-clock duration of pipeline stages.",
				Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
			},
			[]string{"stage"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.DumpRowsTotal,
		m.TitleNormalizations,
		m.AnchorsTotal,
		m.DocumentsExtractedTotal,
		m.FilesProcessedTotal,
		m.SurfacePairsTotal,
		m.ProbabilityRowsTotal,
		m.StageDuration,
	)

	return m
}

// NewNop returns collectors bound to a private registry, for callers that do
// not export metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler for these collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile dumps every collector in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.gatherer)
}
