package measure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/askiada/go-multi/pkg/multi/model"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

type multiPrometheus struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	commits    prometheus.Counter
}

func (mp *multiPrometheus) New() error {
	mp.commits.Inc()

	return nil
}

func (mp *multiPrometheus) PrepareOperation(_, _ *model.OperationInfo) error {
	return nil
}

func (mp *multiPrometheus) OnOperationOutput(op *model.OperationInfo, duration time.Duration) error {
	mp.observe(op, OutcomeCompleted, duration)

	return nil
}

func (mp *multiPrometheus) OnOperationFailure(op *model.OperationInfo, _ error, duration time.Duration) error {
	mp.observe(op, OutcomeFailed, duration)

	return nil
}

func (mp *multiPrometheus) Finish() error {
	return nil
}

func (mp *multiPrometheus) observe(op *model.OperationInfo, outcome string, duration time.Duration) {
	mp.operations.WithLabelValues(op.Name, op.Kind, outcome).Inc()
	mp.duration.WithLabelValues(op.Name, op.Kind).Observe(duration.Seconds())
}

// MultiPrometheus exports operation counts and durations to reg.
// It registers its collectors, so it must be called once per registry.
func MultiPrometheus(reg prometheus.Registerer) model.MultiOption {
	return &multiPrometheus{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "multi_operations_total",
				Help: "Total number of operations run, by outcome",
			},
			[]string{"operation", "kind", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "multi_operation_duration_seconds",
				Help:    "Operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation", "kind"},
		),
		commits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "multi_commits_total",
				Help: "Total number of commits started",
			},
		),
	}
}
