// Package sqlstore provides a transactional backend on top of database/sql.
//
// Records of a model live in a table named after the model, with a TEXT primary key id and one
// TEXT column per schema field. Attribute values are stored in their fmt.Sprint form.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "github.com/proullon/ramsql/driver"
	"go.uber.org/zap"

	"github.com/askiada/go-multi/pkg/multi/model"
)

type Option func(s *Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the SQL backend. It is safe for concurrent use; isolation is the database's.
type Store struct {
	db         *sql.DB
	savepoints bool
	compensate bool
	schemas    map[string]model.Schema
	logger     *zap.Logger
}

var _ model.Backend = (*Store)(nil)

// Open opens and pings the database described by cfg.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s database", cfg.Driver)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, errors.Wrapf(err, "unable to reach %s database", cfg.Driver)
	}

	return New(db, cfg, opts...)
}

// New wraps an already opened database. The DSN of cfg is ignored.
func New(db *sql.DB, cfg Config, opts ...Option) (*Store, error) {
	err := cfg.validateSchemas()
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:         db,
		savepoints: cfg.Savepoints,
		compensate: cfg.compensating(),
		schemas:    cfg.schemas(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "unable to close database")
}

// Migrate creates the table of every model that does not have one yet.
func (s *Store) Migrate(ctx context.Context) error {
	models := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		models = append(models, name)
	}
	sort.Strings(models)

	for _, name := range models {
		cols := []string{"id TEXT PRIMARY KEY"}
		for _, field := range s.schemas[name].FieldNames() {
			cols = append(cols, field+" TEXT")
		}

		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(cols, ", "))

		_, err := s.db.ExecContext(ctx, query)
		if err != nil {
			return errors.Wrapf(err, "unable to create table %s", name)
		}

		s.logger.Debug("table migrated", zap.String("model", name))
	}

	return nil
}

func (s *Store) Begin(ctx context.Context) (model.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to begin transaction")
	}

	s.logger.Debug("transaction started")

	return newRootTx(s, sqlTx), nil
}

func (s *Store) schema(modelName string) (model.Schema, error) {
	schema, ok := s.schemas[modelName]
	if !ok {
		return model.Schema{}, errors.Wrapf(model.ErrUnknownModel, "%q", modelName)
	}

	return schema, nil
}

// row returns the id followed by every schema field of rec, ready to be bound as arguments.
func row(schema model.Schema, rec *model.Record) []any {
	fields := schema.FieldNames()
	args := make([]any, 0, len(fields)+1)
	args = append(args, rec.ID)
	for _, field := range fields {
		args = append(args, toColumn(rec.Attributes[field]))
	}

	return args
}

func placeholders(from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", from+i)
	}

	return strings.Join(out, ", ")
}

// insertQuery inserts the id and every schema field, in the order of row.
func insertQuery(schema model.Schema) string {
	cols := append([]string{"id"}, schema.FieldNames()...)

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", schema.Model, strings.Join(cols, ", "), placeholders(1, len(cols)))
}

// restoreQuery overwrites every schema field of a row, with arguments in the order of row.
func restoreQuery(schema model.Schema) string {
	fields := schema.FieldNames()
	if len(fields) == 0 {
		return ""
	}

	assignments := make([]string, len(fields))
	for i, field := range fields {
		assignments[i] = fmt.Sprintf("%s = $%d", field, i+2)
	}

	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", schema.Model, strings.Join(assignments, ", "))
}

// columns returns the schema fields present in attrs, sorted.
func columns(schema model.Schema, attrs model.Attributes) []string {
	cols := []string{}
	for _, field := range schema.FieldNames() {
		if _, ok := attrs[field]; ok {
			cols = append(cols, field)
		}
	}

	return cols
}

func toColumn(v any) any {
	if v == nil {
		return nil
	}

	return fmt.Sprint(v)
}

// where renders the conditions of ds with placeholders starting at $next.
func where(schema model.Schema, ds model.Dataset, next int) (string, []any, error) {
	if len(ds.Conditions) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(ds.Conditions))
	args := make([]any, 0, len(ds.Conditions))

	for _, cond := range ds.Conditions {
		if _, ok := schema.Fields[cond.Field]; !ok && cond.Field != "id" {
			return "", nil, errors.Wrapf(model.ErrInvalidRecord, "%s: unknown field %q", schema.Model, cond.Field)
		}

		switch cond.Operator {
		case model.OpEq, model.OpNotEq:
		default:
			return "", nil, errors.Wrapf(model.ErrInvalidRecord, "unsupported operator %q", cond.Operator)
		}

		clauses = append(clauses, fmt.Sprintf("%s %s $%d", cond.Field, cond.Operator, next))
		args = append(args, toColumn(cond.Value))
		next++
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
