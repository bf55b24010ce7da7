package multi

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-multi/pkg/multi/model"
)

// State tracks a Multi through its single commit.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCommitted
	StateRolledBack
	StatePropagated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StatePropagated:
		return "propagated"
	default:
		return "unknown"
	}
}

// Multi is an ordered list of uniquely named operations committed as one transaction.
//
// Builder methods return the Multi itself so calls can be chained. A builder call that would
// break name uniqueness leaves the list unchanged and records the error, see Err.
// A Multi is not safe for concurrent use.
type Multi struct {
	backend    model.Backend
	operations []*Operation
	err        error

	logger     *zap.Logger
	hooks      []model.MultiOption
	rollbackOn []error

	state    State
	position int
}

// New creates an empty Multi committing through backend.
func New(backend model.Backend, opts ...Option) *Multi {
	m := &Multi{
		backend:  backend,
		logger:   zap.NewNop(),
		position: -1,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Create adds an operation creating a record of modelName from the attributes produced by attrs.
func (m *Multi) Create(name, modelName string, attrs Input) *Multi {
	return m.add(&Operation{name: name, kind: KindCreate, input: attrs, modelName: modelName})
}

// Update adds an operation persisting the attributes produced by attrs onto rec.
func (m *Multi) Update(name string, rec *model.Record, attrs Input) *Multi {
	return m.add(&Operation{name: name, kind: KindUpdate, input: attrs, record: rec})
}

// UpdateAll adds an operation applying the attributes produced by attrs to every record of ds.
// Its output is the number of records affected.
func (m *Multi) UpdateAll(name string, ds model.Dataset, attrs Input) *Multi {
	return m.add(&Operation{name: name, kind: KindUpdateAll, input: attrs, dataset: ds})
}

// Destroy adds an operation deleting the *model.Record produced by rec.
func (m *Multi) Destroy(name string, rec Input) *Multi {
	return m.add(&Operation{name: name, kind: KindDestroy, input: rec})
}

// DestroyAll adds an operation deleting every record of the model.Dataset produced by ds.
func (m *Multi) DestroyAll(name string, ds Input) *Multi {
	return m.add(&Operation{name: name, kind: KindDestroyAll, input: ds})
}

// Run adds an operation running procedure. Its output is whatever procedure returns.
// The current transaction scope is available through model.TxFromContext.
func (m *Multi) Run(name string, procedure Input) *Multi {
	return m.add(&Operation{name: name, kind: KindRun, input: procedure})
}

// Error adds an operation that always aborts the commit with value, before any transaction is opened.
func (m *Multi) Error(name string, value any) *Multi {
	return m.add(&Operation{name: name, kind: KindError, input: Static(value)})
}

// Append adds the operations of other at the end of m.
func (m *Multi) Append(other *Multi) *Multi {
	if !m.canCombine(other) {
		return m
	}

	m.operations = append(m.operations, other.operations...)

	return m
}

// Prepend adds the operations of other at the start of m.
func (m *Multi) Prepend(other *Multi) *Multi {
	if !m.canCombine(other) {
		return m
	}

	ops := make([]*Operation, 0, len(other.operations)+len(m.operations))
	ops = append(ops, other.operations...)
	m.operations = append(ops, m.operations...)

	return m
}

// Merge is not supported. It records ErrMergeNotSupported.
func (m *Multi) Merge(_ *Multi) *Multi {
	m.setErr(ErrMergeNotSupported)

	return m
}

// Names returns the operation names in order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.operations))
	for i, op := range m.operations {
		names[i] = op.name
	}

	return names
}

// Operations returns a copy of the ordered operation list.
func (m *Multi) Operations() []*Operation {
	ops := make([]*Operation, len(m.operations))
	copy(ops, m.operations)

	return ops
}

func (m *Multi) Len() int {
	return len(m.operations)
}

// Err returns the first error recorded by a builder call.
func (m *Multi) Err() error {
	return m.err
}

func (m *Multi) State() State {
	return m.state
}

// Position is the index of the operation running or last run, -1 before the commit.
func (m *Multi) Position() int {
	return m.position
}

func (m *Multi) add(op *Operation) *Multi {
	if op.input == nil {
		op.input = Static(nil)
	}

	err := m.checkUniqueness(op.name)
	if err != nil {
		m.setErr(err)

		return m
	}

	m.operations = append(m.operations, op)

	return m
}

func (m *Multi) canCombine(other *Multi) bool {
	if other == nil {
		return false
	}

	if other.err != nil {
		m.setErr(errors.WithMessage(other.err, "unable to combine multi"))

		return false
	}

	err := m.checkUniqueness(other.Names()...)
	if err != nil {
		m.setErr(err)

		return false
	}

	return true
}

// checkUniqueness lists, in list order, the existing names found in names.
func (m *Multi) checkUniqueness(names ...string) error {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	repeated := []string{}
	for _, op := range m.operations {
		if _, ok := wanted[op.name]; ok {
			repeated = append(repeated, op.name)
		}
	}

	if len(repeated) > 0 {
		return &UniqueOperationError{Names: repeated}
	}

	return nil
}

func (m *Multi) setErr(err error) {
	if m.err == nil {
		m.err = err
	}
}

// Commit runs every operation in order inside one outer transaction, each in its own nested scope.
//
// A rollback-kind failure undoes every effect and comes back as a failure Result holding the
// outputs of the operations that completed before it. Any other error undoes every effect and is
// returned as is, with no Result. A Multi commits at most once.
func (m *Multi) Commit(ctx context.Context) (*Result, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.state != StatePending {
		return nil, ErrAlreadyCommitted
	}

	m.state = StateRunning

	err := m.prepareHooks()
	if err != nil {
		m.state = StatePropagated

		return nil, err
	}
	defer m.finishHooks()

	results := newResultsLog()

	for idx, op := range m.operations {
		if op.FailFast() {
			return m.failFast(ctx, idx, op, results)
		}
	}

	if m.backend == nil {
		m.state = StatePropagated

		return nil, ErrBackendMustBeSet
	}

	tx, err := m.backend.Begin(ctx)
	if err != nil {
		m.state = StatePropagated

		return nil, errors.Wrap(err, "unable to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			// rollback before re-panicking
			_ = tx.Rollback()
			m.state = StatePropagated
			panic(r)
		}
	}()

	for idx, op := range m.operations {
		m.position = idx

		out, err := m.runOperation(ctx, tx, idx, op, results)
		if err != nil {
			return m.abort(tx, op, results, err)
		}

		results.add(op.name, out)
	}

	err = tx.Commit()
	if err != nil {
		m.state = StatePropagated

		return nil, errors.Wrap(err, "unable to commit transaction")
	}

	m.state = StateCommitted
	m.logger.Info("multi committed", zap.Strings("operations", m.Names()))

	return newResult(results.view(), nil), nil
}

func (m *Multi) runOperation(ctx context.Context, tx model.Tx, idx int, op *Operation, results *resultsLog) (any, error) {
	nested, err := tx.Begin(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to begin nested transaction for %s", op.name)
	}

	start := time.Now()
	out, err := op.run(model.ContextWithTx(ctx, nested), nested, results.view(), m.isRollback)
	duration := time.Since(start)

	if err != nil {
		rbErr := nested.Rollback()
		if rbErr != nil {
			m.logger.Error("unable to roll back nested transaction", zap.String("operation", op.name), zap.Error(rbErr))
		}

		m.onFailure(idx, op, err, duration)

		return nil, err
	}

	err = nested.Commit()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to commit nested transaction for %s", op.name)
	}

	m.logger.Debug("operation completed",
		zap.String("operation", op.name), zap.Stringer("kind", op.kind), zap.Duration("duration", duration))
	m.onOutput(idx, op, duration)

	return out, nil
}

// abort rolls the outer scope back, then classifies cause.
func (m *Multi) abort(tx model.Tx, op *Operation, results *resultsLog, cause error) (*Result, error) {
	rbErr := tx.Rollback()

	failure, ok := cause.(*OperationFailure)
	if ok {
		m.state = StateRolledBack
		if rbErr != nil {
			m.logger.Error("unable to roll back transaction", zap.String("operation", op.name), zap.Error(rbErr))
		}

		m.logger.Warn("multi rolled back", zap.String("operation", op.name), zap.Error(cause))

		return newResult(results.view(), failure), nil
	}

	m.state = StatePropagated
	m.logger.Error("multi aborted", zap.String("operation", op.name), zap.Error(cause))

	if rbErr != nil {
		return nil, errors.WithMessagef(cause, "unable to roll back transaction: %s", rbErr)
	}

	return nil, cause
}

// failFast runs only op, an Error operation, without opening any transaction.
func (m *Multi) failFast(ctx context.Context, idx int, op *Operation, results *resultsLog) (*Result, error) {
	m.position = idx

	start := time.Now()
	_, err := op.run(ctx, nil, results.view(), m.isRollback)
	duration := time.Since(start)

	failure, ok := err.(*OperationFailure)
	if !ok {
		m.state = StatePropagated

		return nil, err
	}

	m.onFailure(idx, op, failure, duration)
	m.state = StateRolledBack
	m.logger.Warn("multi failed fast", zap.String("operation", op.name), zap.Any("value", failure.Value()))

	return newResult(results.view(), failure), nil
}
