package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wisense"

var (
	// SamplesTotal counts samples accepted into the rolling store
	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total number of accepted samples",
		},
		[]string{"band", "material"},
	)

	ParseFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Total number of command outputs that did not yield a reading",
		},
	)

	SourceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Total number of failed metrics command invocations",
		},
	)

	// SkippedTicksTotal counts ticks dropped because a fetch overran the interval
	SkippedTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_ticks_total",
			Help:      "Total number of sampling ticks skipped to catch up",
		},
	)

	JournalFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_failures_total",
			Help:      "Total number of samples that could not be written to the session journal",
		},
	)

	RSSI = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rssi_dbm",
			Help:      "Most recent received signal strength in dBm",
		},
	)

	Noise = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "noise_dbm",
			Help:      "Most recent noise floor in dBm",
		},
	)

	SNR = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snr_db",
			Help:      "Most recent signal-to-noise ratio in dB",
		},
	)

	RetainedSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retained_samples",
			Help:      "Number of samples inside the rolling window",
		},
	)

	// FetchDuration observes the wall time of one metrics command invocation
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Metrics command latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)
