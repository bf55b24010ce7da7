package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-multi/pkg/multi/model"
)

type multiMeasure struct {
	Measure

	mu      sync.Mutex
	started time.Time
}

func (mm *multiMeasure) New() error {
	mm.AddMetric(model.StartOperation.Key())
	mm.AddMetric(model.EndOperation.Key())

	mm.mu.Lock()
	mm.started = time.Now()
	mm.mu.Unlock()

	return nil
}

func (mm *multiMeasure) PrepareOperation(_, op *model.OperationInfo) error {
	mm.AddMetric(op.Key())

	return nil
}

func (mm *multiMeasure) OnOperationOutput(op *model.OperationInfo, duration time.Duration) error {
	mm.AddMetric(op.Key()).AddDuration(duration)

	return nil
}

func (mm *multiMeasure) OnOperationFailure(op *model.OperationInfo, _ error, duration time.Duration) error {
	mm.AddMetric(op.Key()).AddFailure(duration)

	return nil
}

// Finish records the duration of the whole commit on the end metric.
func (mm *multiMeasure) Finish() error {
	mm.mu.Lock()
	elapsed := time.Since(mm.started)
	mm.mu.Unlock()

	end := mm.AddMetric(model.EndOperation.Key())
	end.AddDuration(elapsed)
	end.SetTotalDuration(elapsed)

	return nil
}

// MultiMeasure times every operation of a commit into measure. Metrics are named after
// model.OperationInfo.Key.
func MultiMeasure(measure Measure) model.MultiOption {
	return &multiMeasure{Measure: measure}
}
