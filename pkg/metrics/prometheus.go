package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics and the provider request metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	symbolsTotal  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	lastRun       prometheus.Gauge
	providerReqs  *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketregime_pipeline_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketregime_pipeline_run_seconds",
				Help:    "Wall time of a whole pipeline run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		symbolsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketregime_pipeline_symbols_total",
				Help: "Symbols processed by outcome (ok, skipped, failed)",
			},
			[]string{"outcome"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketregime_pipeline_stage_seconds",
				Help:    "Duration of each per-symbol stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketregime_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastRun: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketregime_pipeline_last_success_timestamp_seconds",
				Help: "Unix time of the last run that finished without failed symbols",
			},
		),
		providerReqs: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketregime_provider_request_seconds",
				Help:    "External provider request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "result"},
		),
	}
}

func (r *Recorder) RecordRun(outcome string, seconds float64) {
	r.runsTotal.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(seconds)
}

func (r *Recorder) RecordSymbol(outcome string) {
	r.symbolsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastRun(t time.Time) {
	r.lastRun.Set(float64(t.Unix()))
}

// ObserveRequest records one provider call.
func (r *Recorder) ObserveRequest(provider, result string, seconds float64) {
	r.providerReqs.WithLabelValues(provider, result).Observe(seconds)
}
