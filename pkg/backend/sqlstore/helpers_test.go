package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/askiada/go-multi/pkg/backend/sqlstore"
	"github.com/askiada/go-multi/pkg/multi/model"
)

func testConfig(t *testing.T) sqlstore.Config {
	t.Helper()

	return sqlstore.Config{
		Driver: "ramsql",
		DSN:    t.Name(),
		Schemas: []sqlstore.SchemaConfig{
			{Model: "dummies", Fields: map[string]string{"name": "required,max=32", "user_id": ""}},
			{Model: "people", Fields: map[string]string{"name": "required", "age": "omitempty,gte=18"}},
		},
	}
}

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	ctx := context.Background()

	store, err := sqlstore.Open(ctx, testConfig(t), sqlstore.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))

	return store
}

func seed(t *testing.T, store *sqlstore.Store, names ...string) []*model.Record {
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

func all(t *testing.T, store *sqlstore.Store) []string {
	t.Helper()

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, tx.Rollback()) }()

	recs, err := tx.Find(ctx, model.All("dummies"))
	require.NoError(t, err)

	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i], _ = rec.Get("name").(string)
	}

	return out
}
