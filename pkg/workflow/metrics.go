package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserflow",
		Subsystem: "workflow",
		Name:      "runs_total",
		Help:      "Workflow runs by final status.",
	}, []string{"status"})

	metricSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserflow",
		Subsystem: "workflow",
		Name:      "steps_total",
		Help:      "Executed steps by kind and outcome.",
	}, []string{"kind", "outcome"})

	metricStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "browserflow",
		Subsystem: "workflow",
		Name:      "step_duration_seconds",
		Help:      "Step execution time by kind.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})
)

func observeStep(kind Kind, err error, elapsed time.Duration) {
	label := string(kind)
	if label == "" {
		label = "unsupported"
	}
	metricSteps.WithLabelValues(label, outcome(err)).Inc()
	metricStepDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	switch err.(type) {
	case nil:
		return "success"
	case *ValidationError:
		return "invalid"
	case *UnsupportedStepTypeError:
		return "unsupported"
	case *ConnectivityError:
		return "disconnected"
	default:
		return "failed"
	}
}
