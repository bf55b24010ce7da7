package measure

import "time"

type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

type Metric interface {
	AddDuration(elapsed time.Duration)
	AddFailure(elapsed time.Duration)
	AVGDuration() time.Duration
	Total() int64
	Failures() int64
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
}
