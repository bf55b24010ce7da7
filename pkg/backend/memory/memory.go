// Package memory provides an in-memory transactional backend.
//
// An outer scope holds the store lock until it ends, so concurrent commits are serialised.
// Every scope, nested or not, snapshots the tables when it begins and puts the snapshot back
// when it rolls back: rolling back an outer scope undoes every nested scope, committed or not.
package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/askiada/go-multi/pkg/multi/model"
)

type row struct {
	id    string
	attrs model.Attributes
}

// tables keeps rows of each model in insertion order.
type tables map[string][]*row

func (t tables) clone() tables {
	out := make(tables, len(t))
	for name, rows := range t {
		cp := make([]*row, len(rows))
		for i, r := range rows {
			cp[i] = &row{id: r.id, attrs: r.attrs.Clone()}
		}
		out[name] = cp
	}

	return out
}

type Option func(s *Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSchemas registers the models the store accepts.
func WithSchemas(schemas ...model.Schema) Option {
	return func(s *Store) {
		for _, schema := range schemas {
			s.schemas[schema.Model] = schema
		}
	}
}

// Store is the in-memory backend.
type Store struct {
	// lock is held by the active outer scope.
	lock    *semaphore.Weighted
	mu      sync.RWMutex
	tables  tables
	schemas map[string]model.Schema
	logger  *zap.Logger
}

var _ model.Backend = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		lock:    semaphore.NewWeighted(1),
		tables:  make(tables),
		schemas: make(map[string]model.Schema),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	for name := range s.schemas {
		s.tables[name] = nil
	}

	return s
}

// RegisterSchema declares a model. Registering a model twice replaces its schema.
func (s *Store) RegisterSchema(schema model.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemas[schema.Model] = schema
	if _, ok := s.tables[schema.Model]; !ok {
		s.tables[schema.Model] = nil
	}
}

// Begin opens an outer scope. It blocks while another outer scope is active, until ctx is done.
func (s *Store) Begin(ctx context.Context) (model.Tx, error) {
	err := ctx.Err()
	if err != nil {
		return nil, errors.Wrap(err, "unable to begin transaction")
	}

	err = s.lock.Acquire(ctx, 1)
	if err != nil {
		return nil, errors.Wrap(err, "unable to begin transaction")
	}

	s.logger.Debug("transaction started")

	return newTx(s, nil), nil
}

// Count returns the number of stored records of modelName. It must not be called from inside a commit.
func (s *Store) Count(modelName string) int {
	_ = s.lock.Acquire(context.Background(), 1)
	defer s.lock.Release(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tables[modelName])
}

// All returns the stored records of modelName in insertion order. It must not be called from inside a commit.
func (s *Store) All(modelName string) []*model.Record {
	_ = s.lock.Acquire(context.Background(), 1)
	defer s.lock.Release(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.find(model.All(modelName))
}

// find expects s.mu to be held.
func (s *Store) find(ds model.Dataset) []*model.Record {
	recs := []*model.Record{}
	for _, r := range s.tables[ds.Model] {
		if ds.Matches(r.id, r.attrs) {
			recs = append(recs, &model.Record{Model: ds.Model, ID: r.id, Attributes: r.attrs.Clone()})
		}
	}

	return recs
}

func (s *Store) schema(modelName string) (model.Schema, error) {
	schema, ok := s.schemas[modelName]
	if !ok {
		return model.Schema{}, errors.Wrapf(model.ErrUnknownModel, "%q", modelName)
	}

	return schema, nil
}

func (s *Store) snapshot() tables {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tables.clone()
}

func (s *Store) restore(t tables) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = t
}
