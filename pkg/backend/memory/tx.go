package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-multi/internal/journal"
	"github.com/askiada/go-multi/pkg/multi/model"
)

type tx struct {
	store    *Store
	parent   *tx
	child    *tx
	depth    int
	snapshot tables
	journal  *journal.Journal
	done     bool
}

var _ model.Tx = (*tx)(nil)

func newTx(s *Store, parent *tx) *tx {
	t := &tx{
		store:    s,
		parent:   parent,
		snapshot: s.snapshot(),
		journal:  journal.New(),
	}

	if parent != nil {
		t.depth = parent.depth + 1
		parent.child = t
	}

	return t
}

func (t *tx) Depth() int {
	return t.depth
}

func (t *tx) Begin(ctx context.Context) (model.Tx, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	err = ctx.Err()
	if err != nil {
		return nil, errors.Wrap(err, "unable to begin nested transaction")
	}

	return newTx(t.store, t), nil
}

func (t *tx) Commit() error {
	err := t.usable()
	if err != nil {
		return err
	}

	t.end()

	if t.parent != nil {
		t.journal.MergeInto(t.parent.journal)

		return nil
	}

	t.journal.Reset()
	t.store.logger.Debug("transaction committed")
	t.store.lock.Release(1)

	return nil
}

// Rollback also rolls back any active nested scope.
func (t *tx) Rollback() error {
	if t.done {
		return model.ErrTxDone
	}

	if t.child != nil {
		err := t.child.Rollback()
		if err != nil {
			return err
		}
	}

	t.end()
	t.store.restore(t.snapshot)
	t.journal.Restore()

	if t.parent == nil {
		t.store.logger.Debug("transaction rolled back")
		t.store.lock.Release(1)
	}

	return nil
}

func (t *tx) end() {
	t.done = true
	t.snapshot = nil
	if t.parent != nil {
		t.parent.child = nil
	}
}

func (t *tx) usable() error {
	if t.done {
		return model.ErrTxDone
	}

	if t.child != nil {
		return model.ErrScopeNotInnermost
	}

	return nil
}

func (t *tx) Create(ctx context.Context, modelName string, attrs model.Attributes) (*model.Record, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	schema, err := t.store.schema(modelName)
	if err != nil {
		return nil, err
	}

	err = schema.Validate(attrs)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate id")
	}

	t.store.mu.Lock()
	t.store.tables[modelName] = append(t.store.tables[modelName], &row{id: id.String(), attrs: attrs.Clone()})
	t.store.mu.Unlock()

	rec := &model.Record{Model: modelName, ID: id.String(), Attributes: attrs.Clone()}
	t.journal.RememberNew(rec)
	t.store.logger.Debug("record created", zap.String("model", modelName), zap.String("id", rec.ID))

	return rec, nil
}

func (t *tx) Update(ctx context.Context, rec *model.Record, attrs model.Attributes) (*model.Record, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	if !rec.Persisted() {
		return nil, errors.Wrap(model.ErrRecordNotFound, "unable to update a record that is not persisted")
	}

	schema, err := t.store.schema(rec.Model)
	if err != nil {
		return nil, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	r := t.store.row(rec.Model, rec.ID)
	if r == nil {
		return nil, errors.Wrapf(model.ErrRecordNotFound, "%s %s", rec.Model, rec.ID)
	}

	merged := r.attrs.Merge(attrs)

	err = schema.Validate(merged)
	if err != nil {
		return nil, err
	}

	t.journal.Remember(rec)
	r.attrs = merged
	rec.Attributes = merged.Clone()

	return rec, nil
}

func (t *tx) UpdateAll(ctx context.Context, ds model.Dataset, attrs model.Attributes) (int, error) {
	err := t.usable()
	if err != nil {
		return 0, err
	}

	schema, err := t.store.schema(ds.Model)
	if err != nil {
		return 0, err
	}

	err = schema.CheckFields(attrs)
	if err != nil {
		return 0, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	count := 0
	for _, r := range t.store.tables[ds.Model] {
		if ds.Matches(r.id, r.attrs) {
			r.attrs = r.attrs.Merge(attrs)
			count++
		}
	}

	return count, nil
}

func (t *tx) Destroy(ctx context.Context, rec *model.Record) (*model.Record, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	if !rec.Persisted() {
		return nil, errors.Wrap(model.ErrRecordNotFound, "unable to destroy a record that is not persisted")
	}

	t.store.mu.Lock()
	removed := t.store.remove(model.All(rec.Model).Where("id", rec.ID))
	t.store.mu.Unlock()

	if len(removed) == 0 {
		return nil, errors.Wrapf(model.ErrRecordNotFound, "%s %s", rec.Model, rec.ID)
	}

	t.journal.Remember(rec)
	rec.Destroyed = true

	return rec, nil
}

func (t *tx) DestroyAll(ctx context.Context, ds model.Dataset) ([]*model.Record, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	_, err = t.store.schema(ds.Model)
	if err != nil {
		return nil, err
	}

	t.store.mu.Lock()
	removed := t.store.remove(ds)
	t.store.mu.Unlock()

	for _, rec := range removed {
		rec.Destroyed = true
	}

	return removed, nil
}

func (t *tx) Find(ctx context.Context, ds model.Dataset) ([]*model.Record, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	_, err = t.store.schema(ds.Model)
	if err != nil {
		return nil, err
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	return t.store.find(ds), nil
}

// row expects s.mu to be held.
func (s *Store) row(modelName, id string) *row {
	for _, r := range s.tables[modelName] {
		if r.id == id {
			return r
		}
	}

	return nil
}

// remove expects s.mu to be held. It returns the removed rows as records, in match order.
func (s *Store) remove(ds model.Dataset) []*model.Record {
	kept := make([]*row, 0, len(s.tables[ds.Model]))
	removed := []*model.Record{}

	for _, r := range s.tables[ds.Model] {
		if ds.Matches(r.id, r.attrs) {
			removed = append(removed, &model.Record{Model: ds.Model, ID: r.id, Attributes: r.attrs})

			continue
		}
		kept = append(kept, r)
	}

	s.tables[ds.Model] = kept

	return removed
}
