package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-multi/pkg/multi/model"
)

func TestRecordPersisted(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rec  *model.Record
		want bool
	}{
		"nil":       {rec: nil, want: false},
		"new":       {rec: &model.Record{Model: "dummies"}, want: false},
		"stored":    {rec: &model.Record{Model: "dummies", ID: "1"}, want: true},
		"destroyed": {rec: &model.Record{Model: "dummies", ID: "1", Destroyed: true}, want: false},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.rec.Persisted())
		})
	}
}

func TestRecordCloneAndRestore(t *testing.T) {
	t.Parallel()

	rec := &model.Record{Model: "dummies", ID: "1", Attributes: model.Attributes{"name": "Original"}}
	snapshot := rec.Clone()

	rec.Attributes["name"] = "Updated"
	rec.Destroyed = true
	assert.Equal(t, "Original", snapshot.Get("name"))

	rec.Restore(snapshot)
	assert.Equal(t, "Original", rec.Get("name"))
	assert.False(t, rec.Destroyed)
	assert.Equal(t, "1", rec.Get("id"))

	// restoring must not share the snapshot map
	rec.Attributes["name"] = "Again"
	assert.Equal(t, "Original", snapshot.Get("name"))
}

func TestAttributesMerge(t *testing.T) {
	t.Parallel()

	base := model.Attributes{"name": "a", "user_id": 1}
	merged := base.Merge(model.Attributes{"name": "b"})

	assert.Equal(t, model.Attributes{"name": "b", "user_id": 1}, merged)
	assert.Equal(t, "a", base["name"])
}

func TestRecordDecode(t *testing.T) {
	t.Parallel()

	type dummy struct {
		ID     string `multi:"id"`
		Name   string `multi:"name"`
		UserID int    `multi:"user_id"`
	}

	rec := &model.Record{Model: "dummies", ID: "abc", Attributes: model.Attributes{"name": "Emi", "user_id": "42"}}

	var got dummy
	err := rec.Decode(&got)
	require.NoError(t, err)
	assert.Equal(t, dummy{ID: "abc", Name: "Emi", UserID: 42}, got)
}

func TestRecordDecodeError(t *testing.T) {
	t.Parallel()

	rec := &model.Record{Model: "dummies", ID: "abc", Attributes: model.Attributes{}}

	var got int
	err := rec.Decode(&got)
	require.Error(t, err)
}
