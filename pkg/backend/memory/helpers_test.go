package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-multi/pkg/backend/memory"
	"github.com/askiada/go-multi/pkg/multi/model"
)

var dummySchema = model.Schema{
	Model: "dummies",
	Fields: map[string]string{
		"name":    "required,max=32",
		"user_id": "omitempty,min=1",
	},
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()

	return memory.New(memory.WithSchemas(dummySchema))
}

// seed creates records in their own committed transaction.
func seed(t *testing.T, store *memory.Store, names ...string) []*model.Record {
	t.Helper()

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	recs := make([]*model.Record, 0, len(names))
	for _, name := range names {
		rec, err := tx.Create(ctx, "dummies", model.Attributes{"name": name})
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	require.NoError(t, tx.Commit())

	return recs
}

func names(recs []*model.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i], _ = rec.Get("name").(string)
	}

	return out
}
