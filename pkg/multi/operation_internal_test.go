package multi

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-multi/pkg/multi/model"
)

// fakeTx records the effects it is asked to apply and returns err for every effect.
type fakeTx struct {
	model.Tx

	calls []string
	err   error
}

func (f *fakeTx) Create(_ context.Context, modelName string, attrs model.Attributes) (*model.Record, error) {
	f.calls = append(f.calls, "create "+modelName)
	if f.err != nil {
		return nil, f.err
	}

	return &model.Record{Model: modelName, ID: "1", Attributes: attrs}, nil
}

func (f *fakeTx) Update(_ context.Context, rec *model.Record, attrs model.Attributes) (*model.Record, error) {
	f.calls = append(f.calls, "update "+rec.ID)
	if f.err != nil {
		return nil, f.err
	}

	rec.Attributes = rec.Attributes.Merge(attrs)

	return rec, nil
}

func (f *fakeTx) UpdateAll(_ context.Context, ds model.Dataset, _ model.Attributes) (int, error) {
	f.calls = append(f.calls, "update_all "+ds.Model)

	return 3, f.err
}

func (f *fakeTx) Destroy(_ context.Context, rec *model.Record) (*model.Record, error) {
	f.calls = append(f.calls, "destroy "+rec.ID)
	if f.err != nil {
		return nil, f.err
	}

	rec.Destroyed = true

	return rec, nil
}

func (f *fakeTx) DestroyAll(_ context.Context, ds model.Dataset) ([]*model.Record, error) {
	f.calls = append(f.calls, "destroy_all "+ds.Model)

	return []*model.Record{}, f.err
}

func TestKindString(t *testing.T) {
	t.Parallel()

	tcs := map[Kind]string{
		KindCreate:     "create",
		KindUpdate:     "update",
		KindUpdateAll:  "update_all",
		KindDestroy:    "destroy",
		KindDestroyAll: "destroy_all",
		KindRun:        "run",
		KindError:      "error",
		Kind(42):       "kind(42)",
	}

	for kind, want := range tcs {
		assert.Equal(t, want, kind.String())
	}
}

func TestFailFast(t *testing.T) {
	t.Parallel()

	for kind := KindCreate; kind <= KindError; kind++ {
		op := &Operation{name: "op", kind: kind}
		assert.Equal(t, kind == KindError, op.FailFast(), kind.String())
	}
}

func TestOperationRun(t *testing.T) {
	t.Parallel()

	rec := &model.Record{Model: "dummies", ID: "7"}

	tcs := map[string]struct {
		op        *Operation
		wantCalls []string
		check     func(t *testing.T, out any)
	}{
		"create": {
			op:        &Operation{name: "op", kind: KindCreate, modelName: "dummies", input: Static(model.Attributes{"name": "x"})},
			wantCalls: []string{"create dummies"},
			check: func(t *testing.T, out any) {
				t.Helper()
				created, ok := out.(*model.Record)
				require.True(t, ok)
				assert.Equal(t, "x", created.Get("name"))
			},
		},
		"create with nil attributes": {
			op:        &Operation{name: "op", kind: KindCreate, modelName: "dummies", input: Static(nil)},
			wantCalls: []string{"create dummies"},
		},
		"update": {
			op:        &Operation{name: "op", kind: KindUpdate, record: rec.Clone(), input: Static(map[string]any{"name": "y"})},
			wantCalls: []string{"update 7"},
			check: func(t *testing.T, out any) {
				t.Helper()
				assert.Equal(t, "y", out.(*model.Record).Get("name"))
			},
		},
		"update_all": {
			op:        &Operation{name: "op", kind: KindUpdateAll, dataset: model.All("dummies"), input: Static(model.Attributes{})},
			wantCalls: []string{"update_all dummies"},
			check: func(t *testing.T, out any) {
				t.Helper()
				assert.Equal(t, 3, out)
			},
		},
		"destroy": {
			op:        &Operation{name: "op", kind: KindDestroy, input: Static(rec.Clone())},
			wantCalls: []string{"destroy 7"},
			check: func(t *testing.T, out any) {
				t.Helper()
				assert.False(t, out.(*model.Record).Persisted())
			},
		},
		"destroy_all": {
			op:        &Operation{name: "op", kind: KindDestroyAll, input: Static(model.All("dummies"))},
			wantCalls: []string{"destroy_all dummies"},
		},
		"run": {
			op: &Operation{name: "op", kind: KindRun, input: Static("out")},
			check: func(t *testing.T, out any) {
				t.Helper()
				assert.Equal(t, "out", out)
			},
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tx := &fakeTx{}
			out, err := tc.op.run(context.Background(), tx, Results{}, IsRollback)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCalls, tx.calls)

			if tc.check != nil {
				tc.check(t, out)
			}
		})
	}
}

func TestOperationRunErrors(t *testing.T) {
	t.Parallel()

	attrs := model.Attributes{"name": "x"}
	rollback := NewRollback("nope")

	tcs := map[string]struct {
		op          *Operation
		txErr       error
		wantFailure bool
		wantArgs    any
		wantErrIs   error
	}{
		"rollback from the effect": {
			op:          &Operation{name: "op", kind: KindCreate, modelName: "dummies", input: Static(attrs)},
			txErr:       rollback,
			wantFailure: true,
			wantArgs:    attrs,
			wantErrIs:   rollback,
		},
		"rollback from the input": {
			op: &Operation{name: "op", kind: KindRun, input: func(context.Context, Results) (any, error) {
				return nil, rollback
			}},
			wantFailure: true,
			wantErrIs:   rollback,
		},
		"unclassified error from the effect": {
			op:        &Operation{name: "op", kind: KindCreate, modelName: "dummies", input: Static(attrs)},
			txErr:     assert.AnError,
			wantErrIs: assert.AnError,
		},
		"unclassified error from the input": {
			op: &Operation{name: "op", kind: KindRun, input: func(context.Context, Results) (any, error) {
				return nil, assert.AnError
			}},
			wantErrIs: assert.AnError,
		},
		"wrong input type": {
			op:        &Operation{name: "op", kind: KindDestroyAll, input: Static(42)},
			wantErrIs: ErrInputType,
		},
		"wrong attributes type": {
			op:        &Operation{name: "op", kind: KindUpdateAll, input: Static("name=x")},
			wantErrIs: ErrInputType,
		},
		"error operation": {
			op:          &Operation{name: "op", kind: KindError, input: Static("value")},
			wantFailure: true,
			wantArgs:    "value",
			wantErrIs:   ErrControlledFailure,
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.op.run(context.Background(), &fakeTx{err: tc.txErr}, Results{}, IsRollback)
			require.ErrorIs(t, err, tc.wantErrIs)

			failure := &OperationFailure{}
			if !tc.wantFailure {
				assert.False(t, errors.As(err, &failure))

				return
			}

			require.ErrorAs(t, err, &failure)
			assert.Same(t, tc.op, failure.Operation)
			assert.Equal(t, tc.wantArgs, failure.Arguments)
		})
	}
}

func TestOperationInputIsEvaluatedOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	op := &Operation{name: "op", kind: KindRun, input: func(context.Context, Results) (any, error) {
		calls++

		return calls, nil
	}}

	out, err := op.run(context.Background(), &fakeTx{}, Results{}, IsRollback)
	require.NoError(t, err)
	assert.Equal(t, 1, out)
	assert.Equal(t, 1, calls)
}
