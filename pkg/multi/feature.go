package multi

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-multi/pkg/multi/model"
)

// prepareHooks runs before any transaction is opened: an error aborts the commit.
func (m *Multi) prepareHooks() error {
	for _, hook := range m.hooks {
		err := hook.New()
		if err != nil {
			return errors.Wrap(err, "unable to initialise hook")
		}
	}

	parent := model.StartOperation
	for idx, op := range m.operations {
		info := op.info(idx)
		for _, hook := range m.hooks {
			err := hook.PrepareOperation(parent, info)
			if err != nil {
				return errors.Wrapf(err, "unable to prepare operation %s", op.name)
			}
		}
		parent = info
	}

	return nil
}

func (m *Multi) onOutput(idx int, op *Operation, duration time.Duration) {
	for _, hook := range m.hooks {
		err := hook.OnOperationOutput(op.info(idx), duration)
		if err != nil {
			m.logger.Warn("hook failed on operation output", zap.String("operation", op.name), zap.Error(err))
		}
	}
}

func (m *Multi) onFailure(idx int, op *Operation, opErr error, duration time.Duration) {
	for _, hook := range m.hooks {
		err := hook.OnOperationFailure(op.info(idx), opErr, duration)
		if err != nil {
			m.logger.Warn("hook failed on operation failure", zap.String("operation", op.name), zap.Error(err))
		}
	}
}

func (m *Multi) finishHooks() {
	for _, hook := range m.hooks {
		err := hook.Finish()
		if err != nil {
			m.logger.Warn("unable to finish hook", zap.Error(err))
		}
	}
}
