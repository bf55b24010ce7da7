package multi

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-multi/pkg/multi/model"
)

// Kind is the closed set of operation variants.
type Kind int

const (
	KindCreate Kind = iota
	KindUpdate
	KindUpdateAll
	KindDestroy
	KindDestroyAll
	KindRun
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindUpdateAll:
		return "update_all"
	case KindDestroy:
		return "destroy"
	case KindDestroyAll:
		return "destroy_all"
	case KindRun:
		return "run"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Input produces the value an operation acts upon from the outputs of the earlier operations.
// It is evaluated once, at commit time.
type Input func(ctx context.Context, results Results) (any, error)

// Static returns an Input producing v.
func Static(v any) Input {
	return func(context.Context, Results) (any, error) {
		return v, nil
	}
}

// Operation is a named unit of work of a Multi.
type Operation struct {
	name  string
	kind  Kind
	input Input

	modelName string
	record    *model.Record
	dataset   model.Dataset
}

func (o *Operation) Name() string {
	return o.name
}

func (o *Operation) Kind() Kind {
	return o.kind
}

// FailFast reports whether the operation always aborts its Multi.
func (o *Operation) FailFast() bool {
	return o.kind == KindError
}

func (o *Operation) String() string {
	return fmt.Sprintf("%s(%s)", o.kind, o.name)
}

func (o *Operation) info(idx int) *model.OperationInfo {
	return &model.OperationInfo{Kind: o.kind.String(), Name: o.name, Index: idx}
}

// run evaluates the input, then applies the effect through tx.
// Rollback-kind errors, as decided by isRollback, come back as an *OperationFailure.
func (o *Operation) run(ctx context.Context, tx model.Tx, results Results, isRollback func(error) bool) (any, error) {
	input, err := o.input(ctx, results)
	if err != nil {
		if isRollback(err) {
			return nil, newOperationFailure(o, nil, err)
		}

		return nil, err
	}

	if o.kind == KindError {
		return nil, newControlledFailure(o, input)
	}

	out, err := o.perform(ctx, tx, input)
	if err != nil {
		if isRollback(err) {
			return nil, newOperationFailure(o, input, err)
		}

		return nil, err
	}

	return out, nil
}

func (o *Operation) perform(ctx context.Context, tx model.Tx, input any) (any, error) {
	switch o.kind {
	case KindCreate:
		attrs, err := o.attributes(input)
		if err != nil {
			return nil, err
		}

		return tx.Create(ctx, o.modelName, attrs)
	case KindUpdate:
		attrs, err := o.attributes(input)
		if err != nil {
			return nil, err
		}

		return tx.Update(ctx, o.record, attrs)
	case KindUpdateAll:
		attrs, err := o.attributes(input)
		if err != nil {
			return nil, err
		}

		return tx.UpdateAll(ctx, o.dataset, attrs)
	case KindDestroy:
		rec, ok := input.(*model.Record)
		if !ok {
			return nil, o.inputTypeError(input, rec)
		}

		return tx.Destroy(ctx, rec)
	case KindDestroyAll:
		ds, ok := input.(model.Dataset)
		if !ok {
			return nil, o.inputTypeError(input, ds)
		}

		return tx.DestroyAll(ctx, ds)
	case KindRun:
		return input, nil
	case KindError:
		return nil, newControlledFailure(o, input)
	default:
		return nil, errors.Errorf("operation %s: unsupported kind %s", o.name, o.kind)
	}
}

func (o *Operation) attributes(input any) (model.Attributes, error) {
	switch attrs := input.(type) {
	case model.Attributes:
		return attrs, nil
	case map[string]any:
		return model.Attributes(attrs), nil
	case nil:
		return model.Attributes{}, nil
	default:
		return nil, o.inputTypeError(input, model.Attributes{})
	}
}

func (o *Operation) inputTypeError(got, want any) error {
	return errors.Wrapf(ErrInputType, "operation %s: got %T, want %T", o.name, got, want)
}
