package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	AnalyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "elm_make_analyze_seconds",
		Help:    "Time spent deciding which cached interfaces can be reused.",
		Buckets: prometheus.DefBuckets,
	})

	CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "elm_make_compile_seconds",
		Help:    "Time spent compiling a single module.",
		Buckets: prometheus.DefBuckets,
	})

	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "elm_make_jobs_in_flight",
		Help: "Number of compile jobs currently dispatched to workers.",
	})

	ReadyQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "elm_make_ready_queue_depth",
		Help: "Number of schedulable modules waiting for a free worker.",
	})

	ModulesReusedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elm_make_modules_reused_total",
		Help: "Total number of modules whose cached interface was reused.",
	})

	ModulesCompiledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elm_make_modules_compiled_total",
		Help: "Total number of modules compiled.",
	})

	BuildErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elm_make_build_errors_total",
		Help: "Total number of failed builds, by error code.",
	}, []string{"code"})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "elm_make_build_seconds",
		Help:    "End-to-end duration of a build run.",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)
