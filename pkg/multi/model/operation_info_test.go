package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-multi/pkg/multi/model"
)

func TestOperationInfoKey(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		info *model.OperationInfo
		want string
	}{
		"start":          {info: model.StartOperation, want: "start"},
		"end":            {info: model.EndOperation, want: "end"},
		"operation":      {info: &model.OperationInfo{Kind: "run", Name: "a", Index: 2}, want: "a#2"},
		"named as start": {info: &model.OperationInfo{Kind: "run", Name: "start", Index: 0}, want: "start#0"},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.info.Key())
		})
	}
}
