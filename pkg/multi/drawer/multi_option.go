package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-multi/pkg/multi/measure"
	"github.com/askiada/go-multi/pkg/multi/model"
)

type multiDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time

	last     string
	prepared []string
	marked   map[string]struct{}
}

func (md *multiDrawer) New() error {
	md.startTime = time.Now()
	md.last = model.StartOperation.Key()
	md.prepared = nil
	md.marked = make(map[string]struct{})

	err := md.AddOperation(model.StartOperation.Key(), model.StartOperation.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start operation to drawer")
	}

	err = md.AddOperation(model.EndOperation.Key(), model.EndOperation.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end operation to drawer")
	}

	return nil
}

func (md *multiDrawer) PrepareOperation(parent, op *model.OperationInfo) error {
	err := md.AddOperation(op.Key(), op.Name)
	if err != nil {
		return err
	}

	err = md.AddLink(parent.Key(), op.Key())
	if err != nil {
		return err
	}

	md.last = op.Key()
	md.prepared = append(md.prepared, op.Key())

	return nil
}

func (md *multiDrawer) OnOperationOutput(op *model.OperationInfo, _ time.Duration) error {
	md.marked[op.Key()] = struct{}{}

	return md.MarkOperation(op.Key(), StatusCompleted)
}

func (md *multiDrawer) OnOperationFailure(op *model.OperationInfo, _ error, _ time.Duration) error {
	md.marked[op.Key()] = struct{}{}

	return md.MarkOperation(op.Key(), StatusFailed)
}

// Finish links the last operation to the end, greys out the operations that never ran and draws.
func (md *multiDrawer) Finish() error {
	err := md.AddLink(md.last, model.EndOperation.Key())
	if err != nil {
		return err
	}

	for _, key := range md.prepared {
		if _, ok := md.marked[key]; ok {
			continue
		}

		err = md.MarkOperation(key, StatusSkipped)
		if err != nil {
			return err
		}
	}

	err = md.SetTotalTime(model.EndOperation.Key(), md.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if md.m != nil {
		err = md.AddMeasure(md.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = md.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw multi")
	}

	return nil
}

// MultiDrawer draws the operations of a commit with drawer when the commit ends. Vertices are
// keyed by model.OperationInfo.Key and labelled with the operation name.
// When measure is set, it must also be registered with measure.MultiMeasure, before this option.
func MultiDrawer(drawer Drawer, measure measure.Measure) model.MultiOption {
	return &multiDrawer{Drawer: drawer, m: measure}
}
