package multi

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-multi/pkg/multi/model"
)

type Option func(m *Multi)

// WithLogger sets the logger of the commit. Operations are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Multi) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHooks registers hooks observing the commit.
func WithHooks(hooks ...model.MultiOption) Option {
	return func(m *Multi) {
		m.hooks = append(m.hooks, hooks...)
	}
}

// RollbackOn classifies errors matching any of targets as rollbacks when an operation raises them.
func RollbackOn(targets ...error) Option {
	return func(m *Multi) {
		m.rollbackOn = append(m.rollbackOn, targets...)
	}
}

func (m *Multi) isRollback(err error) bool {
	if IsRollback(err) {
		return true
	}

	for _, target := range m.rollbackOn {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
