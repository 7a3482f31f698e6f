package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spec_operator_invocations_total",
		Help: "Total number of operator invocations, by operator and workflow status",
	}, []string{"operator", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spec_operator_stage_duration_seconds",
		Help:    "Duration of each operator stage",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
	}, []string{"operator", "stage"})

	SpecsDetected = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spec_operator_specs_detected",
		Help:    "Number of specs reported per invocation",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	}, []string{"detector"})

	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spec_operator_edge_frames_total",
		Help: "Total number of frames written to edge videos",
	})
)
