package model

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrTxDone            = errors.New("transaction has already been committed or rolled back")
	ErrScopeNotInnermost = errors.New("transaction scope has an active nested scope")
	ErrRecordNotFound    = errors.New("record not found")
	ErrUnknownModel      = errors.New("unknown model")
	ErrInvalidRecord     = errors.New("invalid record")
)

// Backend opens outer transaction scopes.
type Backend interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction scope. Scopes nest to an arbitrary depth and must end in LIFO order.
// Rolling back a scope undoes the effects of every scope nested in it, including the ones
// that already committed.
type Tx interface {
	// Begin opens a nested scope.
	Begin(ctx context.Context) (Tx, error)
	Commit() error
	Rollback() error
	// Depth is 0 for an outer scope.
	Depth() int

	Create(ctx context.Context, modelName string, attrs Attributes) (*Record, error)
	// Update persists attrs onto rec. rec is left untouched when validation fails.
	Update(ctx context.Context, rec *Record, attrs Attributes) (*Record, error)
	UpdateAll(ctx context.Context, ds Dataset, attrs Attributes) (int, error)
	Destroy(ctx context.Context, rec *Record) (*Record, error)
	// DestroyAll returns the deleted records in match order.
	DestroyAll(ctx context.Context, ds Dataset) ([]*Record, error)
	Find(ctx context.Context, ds Dataset) ([]*Record, error)
}

type txKey struct{}

// ContextWithTx returns a copy of ctx carrying tx.
func ContextWithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction scope carried by ctx, if any.
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(Tx)

	return tx, ok
}
