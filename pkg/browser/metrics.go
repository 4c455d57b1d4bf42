package browser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLaunches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "browserflow",
		Subsystem: "browser",
		Name:      "launches_total",
		Help:      "Browser processes launched, including relaunches.",
	})
	metricRelaunches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "browserflow",
		Subsystem: "browser",
		Name:      "relaunches_total",
		Help:      "Relaunches triggered by a disconnected browser.",
	})
	metricActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "browserflow",
		Subsystem: "browser",
		Name:      "active",
		Help:      "1 while a connected browser is held by the session manager.",
	})
	metricPagesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "browserflow",
		Subsystem: "browser",
		Name:      "pages_opened_total",
		Help:      "Pages opened, retained or fresh.",
	})
)
