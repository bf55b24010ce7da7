package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-multi/pkg/multi/model"
)

func TestDatasetMatches(t *testing.T) {
	t.Parallel()

	attrs := model.Attributes{"name": "original 2", "user_id": int64(7)}

	tcs := map[string]struct {
		ds   model.Dataset
		want bool
	}{
		"all":                {ds: model.All("dummies"), want: true},
		"where match":        {ds: model.All("dummies").Where("name", "original 2"), want: true},
		"where no match":     {ds: model.All("dummies").Where("name", "original 3"), want: false},
		"where not match":    {ds: model.All("dummies").WhereNot("name", "original 2"), want: false},
		"where not no match": {ds: model.All("dummies").WhereNot("name", "original 3"), want: true},
		"numbers by value":   {ds: model.All("dummies").Where("user_id", 7), want: true},
		"id":                 {ds: model.All("dummies").Where("id", "r1"), want: true},
		"chained":            {ds: model.All("dummies").Where("id", "r1").WhereNot("user_id", 7), want: false},
		"missing field":      {ds: model.All("dummies").Where("other", nil), want: true},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.ds.Matches("r1", attrs))
		})
	}
}

func TestDatasetWhereDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := model.All("dummies").Where("name", "a")
	left := base.Where("user_id", 1)
	right := base.Where("user_id", 2)

	assert.Len(t, base.Conditions, 1)
	assert.Equal(t, 1, left.Conditions[1].Value)
	assert.Equal(t, 2, right.Conditions[1].Value)
}
