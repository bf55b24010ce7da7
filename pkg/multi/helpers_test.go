package multi_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-multi/pkg/backend/memory"
	"github.com/askiada/go-multi/pkg/multi"
	"github.com/askiada/go-multi/pkg/multi/model"
)

var dummySchema = model.Schema{
	Model: "dummies",
	Fields: map[string]string{
		"name":    "required,max=32",
		"user_id": "omitempty,min=1",
	},
}

// countingBackend counts the outer scopes opened on a memory store.
type countingBackend struct {
	*memory.Store

	mu     sync.Mutex
	begins int
}

func newBackend(t *testing.T) *countingBackend {
	t.Helper()

	return &countingBackend{Store: memory.New(memory.WithSchemas(dummySchema))}
}

func (b *countingBackend) Begin(ctx context.Context) (model.Tx, error) {
	b.mu.Lock()
	b.begins++
	b.mu.Unlock()

	return b.Store.Begin(ctx)
}

func (b *countingBackend) Begins() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.begins
}

func seed(t *testing.T, store *memory.Store, name string) *model.Record {
	t.Helper()

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	rec, err := tx.Create(ctx, "dummies", model.Attributes{"name": name})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return rec
}

func storedNames(store *memory.Store) []string {
	recs := store.All("dummies")
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = fmt.Sprint(rec.Get("name"))
	}

	return out
}

// tracker records the operations that ran, in order.
type tracker struct {
	ran []string
}

func (tr *tracker) run(name string, out any) multi.Input {
	return func(context.Context, multi.Results) (any, error) {
		tr.ran = append(tr.ran, name)

		return out, nil
	}
}

func (tr *tracker) fail(name string, err error) multi.Input {
	return func(context.Context, multi.Results) (any, error) {
		tr.ran = append(tr.ran, name)

		return nil, err
	}
}

type hookCall struct {
	Method string
	Name   string
	Parent string
	Err    bool
}

// recordingHook records every call it receives. Errors are returned from the named method.
type recordingHook struct {
	calls   []hookCall
	failOn  string
	failErr error
}

func (h *recordingHook) result(method string) error {
	if h.failOn == method {
		return h.failErr
	}

	return nil
}

func (h *recordingHook) New() error {
	h.calls = append(h.calls, hookCall{Method: "New"})

	return h.result("New")
}

func (h *recordingHook) PrepareOperation(parent, op *model.OperationInfo) error {
	h.calls = append(h.calls, hookCall{Method: "PrepareOperation", Name: op.Name, Parent: parent.Name})

	return h.result("PrepareOperation")
}

func (h *recordingHook) OnOperationOutput(op *model.OperationInfo, _ time.Duration) error {
	h.calls = append(h.calls, hookCall{Method: "OnOperationOutput", Name: op.Name})

	return h.result("OnOperationOutput")
}

func (h *recordingHook) OnOperationFailure(op *model.OperationInfo, err error, _ time.Duration) error {
	h.calls = append(h.calls, hookCall{Method: "OnOperationFailure", Name: op.Name, Err: err != nil})

	return h.result("OnOperationFailure")
}

func (h *recordingHook) Finish() error {
	h.calls = append(h.calls, hookCall{Method: "Finish"})

	return h.result("Finish")
}
