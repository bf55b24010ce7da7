package multi

import "github.com/pkg/errors"

// resultsLog is the append-only store behind every Results view of a commit.
type resultsLog struct {
	names  []string
	values []any
	index  map[string]int
}

func newResultsLog() *resultsLog {
	return &resultsLog{index: make(map[string]int)}
}

func (l *resultsLog) add(name string, value any) {
	l.index[name] = len(l.names)
	l.names = append(l.names, name)
	l.values = append(l.values, value)
}

// view exposes the entries recorded so far and never the ones added later.
func (l *resultsLog) view() Results {
	return Results{log: l, size: len(l.names)}
}

// Results is a read-only, ordered view of the outputs of completed operations.
// The zero value is empty.
type Results struct {
	log  *resultsLog
	size int
}

// Get returns the output of the operation called name.
func (r Results) Get(name string) (any, bool) {
	if r.log == nil {
		return nil, false
	}

	idx, ok := r.log.index[name]
	if !ok || idx >= r.size {
		return nil, false
	}

	return r.log.values[idx], true
}

// Value returns the output of the operation called name, nil when absent.
func (r Results) Value(name string) any {
	v, _ := r.Get(name)

	return v
}

func (r Results) Has(name string) bool {
	_, ok := r.Get(name)

	return ok
}

// Keys returns the operation names in execution order.
func (r Results) Keys() []string {
	keys := make([]string, r.size)
	if r.log != nil {
		copy(keys, r.log.names[:r.size])
	}

	return keys
}

func (r Results) Len() int {
	return r.size
}

// Map returns a copy of the outputs keyed by operation name.
func (r Results) Map() map[string]any {
	out := make(map[string]any, r.size)
	for i := 0; i < r.size; i++ {
		out[r.log.names[i]] = r.log.values[i]
	}

	return out
}

// Lookup returns the output of the operation called name as a T.
func Lookup[T any](r Results, name string) (T, error) {
	var zero T

	v, ok := r.Get(name)
	if !ok {
		return zero, errors.Wrapf(ErrResultNotFound, "operation %q", name)
	}

	typed, ok := v.(T)
	if !ok {
		return zero, errors.Wrapf(ErrResultType, "operation %q returned %T, not %T", name, v, zero)
	}

	return typed, nil
}
