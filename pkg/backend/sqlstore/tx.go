package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-multi/internal/journal"
	"github.com/askiada/go-multi/pkg/multi/model"
)

// ErrRollbackOnly is returned when committing a transaction whose nested scope rolled back
// without savepoints or compensation. The transaction is rolled back instead.
var ErrRollbackOnly = errors.New("transaction is marked rollback-only")

// undo is a compensating statement for one write.
type undo struct {
	query string
	args  []any
}

type tx struct {
	store   *Store
	sqlTx   *sql.Tx
	root    *tx
	parent  *tx
	child   *tx
	depth   int
	journal *journal.Journal
	undo    []undo
	done    bool

	// root only
	rollbackOnly bool
}

var _ model.Tx = (*tx)(nil)

func newRootTx(s *Store, sqlTx *sql.Tx) *tx {
	t := &tx{store: s, sqlTx: sqlTx, journal: journal.New()}
	t.root = t

	return t
}

func (t *tx) Depth() int {
	return t.depth
}

func (t *tx) savepoint() string {
	return fmt.Sprintf("sp_%d", t.depth)
}

func (t *tx) Begin(ctx context.Context) (model.Tx, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	child := &tx{
		store:   t.store,
		sqlTx:   t.sqlTx,
		root:    t.root,
		parent:  t,
		depth:   t.depth + 1,
		journal: journal.New(),
	}

	if t.store.savepoints {
		_, err = t.sqlTx.ExecContext(ctx, "SAVEPOINT "+child.savepoint())
		if err != nil {
			return nil, errors.Wrap(err, "unable to begin nested transaction")
		}
	}

	t.child = child

	return child, nil
}

func (t *tx) Commit() error {
	err := t.usable()
	if err != nil {
		return err
	}

	t.end()

	if t.parent != nil {
		if t.store.savepoints {
			_, err = t.sqlTx.Exec("RELEASE SAVEPOINT " + t.savepoint())
			if err != nil {
				t.journal.Restore()

				return errors.Wrap(err, "unable to commit nested transaction")
			}
		}

		t.journal.MergeInto(t.parent.journal)
		t.parent.undo = append(t.parent.undo, t.undo...)

		return nil
	}

	if t.rollbackOnly {
		t.journal.Restore()

		err = t.sqlTx.Rollback()
		if err != nil {
			return errors.Wrap(err, "unable to roll back rollback-only transaction")
		}

		return ErrRollbackOnly
	}

	err = t.sqlTx.Commit()
	if err != nil {
		t.journal.Restore()

		return errors.Wrap(err, "unable to commit transaction")
	}

	t.journal.Reset()
	t.store.logger.Debug("transaction committed")

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
	t.journal.Restore()

	if t.store.compensate {
		return t.compensate()
	}

	if t.parent != nil {
		if !t.store.savepoints {
			t.root.rollbackOnly = true

			return nil
		}

		_, err := t.sqlTx.Exec("ROLLBACK TO SAVEPOINT " + t.savepoint())

		return errors.Wrap(err, "unable to roll back nested transaction")
	}

	err := t.sqlTx.Rollback()
	if err != nil {
		return errors.Wrap(err, "unable to roll back transaction")
	}

	t.store.logger.Debug("transaction rolled back")

	return nil
}

// compensate replays the undo statements of the scope in reverse order. A root scope then
// commits, so the outcome does not depend on what the driver's rollback keeps.
func (t *tx) compensate() error {
	for i := len(t.undo) - 1; i >= 0; i-- {
		_, err := t.sqlTx.Exec(t.undo[i].query, t.undo[i].args...)
		if err != nil {
			if t.parent == nil {
				_ = t.sqlTx.Rollback()
			}

			return errors.Wrap(err, "unable to undo write")
		}
	}

	t.store.logger.Debug("writes compensated", zap.Int("depth", t.depth), zap.Int("statements", len(t.undo)))
	t.undo = nil

	if t.parent != nil {
		return nil
	}

	err := t.sqlTx.Commit()
	if err != nil {
		return errors.Wrap(err, "unable to commit compensated transaction")
	}

	t.store.logger.Debug("transaction rolled back")

	return nil
}

func (t *tx) remember(query string, args []any) {
	t.undo = append(t.undo, undo{query: query, args: args})
}

// rememberRows records statements that put rows back to their current state.
func (t *tx) rememberRows(schema model.Schema, recs []*model.Record, deleted bool) {
	for _, rec := range recs {
		if deleted {
			t.remember(insertQuery(schema), row(schema, rec))

			continue
		}

		if query := restoreQuery(schema); query != "" {
			t.remember(query, row(schema, rec))
		}
	}
}

func (t *tx) end() {
	t.done = true
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

	rec := &model.Record{Model: modelName, ID: id.String(), Attributes: attrs.Clone()}

	// absent fields are bound as NULL
	_, err = t.sqlTx.ExecContext(ctx, insertQuery(schema), row(schema, rec)...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to insert into %s", modelName)
	}

	t.remember(fmt.Sprintf("DELETE FROM %s WHERE id = $1", modelName), []any{rec.ID})
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

	stored, err := t.find(ctx, schema, model.All(rec.Model).Where("id", rec.ID))
	if err != nil {
		return nil, err
	}

	if len(stored) == 0 {
		return nil, errors.Wrapf(model.ErrRecordNotFound, "%s %s", rec.Model, rec.ID)
	}

	err = schema.ValidateChanges(stored[0].Attributes, attrs)
	if err != nil {
		return nil, err
	}

	err = t.set(ctx, schema, stored, attrs)
	if err != nil {
		return nil, err
	}

	t.journal.Remember(rec)
	rec.Attributes = rec.Attributes.Merge(attrs)

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

	matched, err := t.find(ctx, schema, ds)
	if err != nil {
		return 0, err
	}

	if len(matched) == 0 || len(attrs) == 0 {
		return len(matched), nil
	}

	err = t.set(ctx, schema, matched, attrs)
	if err != nil {
		return 0, err
	}

	return len(matched), nil
}

func (t *tx) Destroy(ctx context.Context, rec *model.Record) (*model.Record, error) {
	err := t.usable()
	if err != nil {
		return nil, err
	}

	if !rec.Persisted() {
		return nil, errors.Wrap(model.ErrRecordNotFound, "unable to destroy a record that is not persisted")
	}

	schema, err := t.store.schema(rec.Model)
	if err != nil {
		return nil, err
	}

	removed, err := t.delete(ctx, schema, model.All(rec.Model).Where("id", rec.ID))
	if err != nil {
		return nil, err
	}

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

	schema, err := t.store.schema(ds.Model)
	if err != nil {
		return nil, err
	}

	removed, err := t.delete(ctx, schema, ds)
	if err != nil {
		return nil, err
	}

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

	schema, err := t.store.schema(ds.Model)
	if err != nil {
		return nil, err
	}

	return t.find(ctx, schema, ds)
}

func (t *tx) find(ctx context.Context, schema model.Schema, ds model.Dataset) ([]*model.Record, error) {
	cond, args, err := where(schema, ds, 1)
	if err != nil {
		return nil, err
	}

	fields := schema.FieldNames()
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id", strings.Join(append([]string{"id"}, fields...), ", "), ds.Model, cond)

	rows, err := t.sqlTx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to query %s", ds.Model)
	}
	defer rows.Close()

	recs := []*model.Record{}
	for rows.Next() {
		values := make([]sql.NullString, len(fields)+1)
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}

		err = rows.Scan(dest...)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to scan %s", ds.Model)
		}

		rec := &model.Record{Model: ds.Model, ID: values[0].String, Attributes: make(model.Attributes, len(fields))}
		for i, field := range fields {
			if values[i+1].Valid {
				rec.Attributes[field] = values[i+1].String
			} else {
				rec.Attributes[field] = nil
			}
		}
		recs = append(recs, rec)
	}

	return recs, errors.Wrapf(rows.Err(), "unable to read %s", ds.Model)
}

// set writes attrs to the given rows one id at a time.
func (t *tx) set(ctx context.Context, schema model.Schema, recs []*model.Record, attrs model.Attributes) error {
	cols := columns(schema, attrs)
	if len(cols) == 0 {
		return nil
	}

	assignments := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, toColumn(attrs[col]))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", schema.Model, strings.Join(assignments, ", "), len(cols)+1)

	for _, rec := range recs {
		_, err := t.sqlTx.ExecContext(ctx, query, append(args, rec.ID)...)
		if err != nil {
			return errors.Wrapf(err, "unable to update %s", schema.Model)
		}

		t.rememberRows(schema, []*model.Record{rec}, false)
	}

	return nil
}

// delete removes the rows matching ds one id at a time and returns the rows it removed, in
// match order. A row deleted concurrently between the match and its delete is left out.
func (t *tx) delete(ctx context.Context, schema model.Schema, ds model.Dataset) ([]*model.Record, error) {
	matched, err := t.find(ctx, schema, ds)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", ds.Model)
	removed := make([]*model.Record, 0, len(matched))

	for _, rec := range matched {
		res, err := t.sqlTx.ExecContext(ctx, query, rec.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to delete from %s", ds.Model)
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}

		removed = append(removed, rec)
	}

	t.rememberRows(schema, removed, true)

	return removed, nil
}
