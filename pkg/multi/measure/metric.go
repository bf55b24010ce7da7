package measure

import (
	"sync"
	"time"
)

type DefaultMetric struct {
	mu          *sync.Mutex
	EndDuration time.Duration
	elapsed     time.Duration
	total       int64
	failures    int64
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.elapsed += elapsed
}

// AddFailure counts a failed run. Its duration is part of the average.
func (mt *DefaultMetric) AddFailure(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.failures++
	mt.elapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.elapsed) / float64(mt.total)))
}

func (mt *DefaultMetric) Total() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) Failures() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.failures
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
