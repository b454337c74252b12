package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the planner's Prometheus instruments.
type Manager struct {
	CounterRequests         *prometheus.CounterVec
	CounterPlanRuns         *prometheus.CounterVec
	CounterPlanWarnings     prometheus.Counter
	CounterAllocationErrors *prometheus.CounterVec

	HistPlanDuration prometheus.Histogram
}

// NewRegistry returns a registry with build, runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewTestManager() *Manager {
	return NewManager("mesoplan", "test", prometheus.NewRegistry())
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
		CounterPlanRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plan_runs_total",
			Help:      "Week planning runs by outcome",
		}, []string{"outcome"}),
		CounterPlanWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plan_warnings_total",
			Help:      "Warnings attached to planned muscle groups",
		}),
		CounterAllocationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocation_errors_total",
			Help:      "Muscle groups that could not be allocated",
		}, []string{"muscle_group"}),
		HistPlanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plan_duration_seconds",
			Help:      "Duration of week planning runs",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
