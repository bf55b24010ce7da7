package measure

import (
	"sync"
)

// DefaultMeasure keeps one metric per operation name. It can be shared by several commits.
type DefaultMeasure struct {
	mu         sync.Mutex
	Operations map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Operations: make(map[string]Metric),
	}
}

// AddMetric returns the metric of name, creating it on first use.
func (m *DefaultMeasure) AddMetric(name string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.Operations[name]; ok {
		return mt
	}

	mt := &DefaultMetric{mu: &sync.Mutex{}}
	m.Operations[name] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Operations[name]
}

// AllMetrics returns a copy of the metrics keyed by operation name.
func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Metric, len(m.Operations))
	for name, mt := range m.Operations {
		out[name] = mt
	}

	return out
}

var _ Measure = (*DefaultMeasure)(nil)
