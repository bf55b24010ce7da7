package sqlstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-multi/pkg/backend/sqlstore"
)

const configYAML = `
driver: postgres
dsn: postgres://localhost/multi?sslmode=disable
savepoints: true
compensate: true
schemas:
  - model: dummies
    fields:
      name: required,max=32
      user_id: omitempty
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "multi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := sqlstore.LoadConfig(writeConfig(t, configYAML))
	require.NoError(t, err)

	assert.Equal(t, sqlstore.Config{
		Driver:     "postgres",
		DSN:        "postgres://localhost/multi?sslmode=disable",
		Savepoints: true,
		Compensate: true,
		Schemas: []sqlstore.SchemaConfig{
			{Model: "dummies", Fields: map[string]string{"name": "required,max=32", "user_id": "omitempty"}},
		},
	}, cfg)
}

func TestLoadConfigDSNOverride(t *testing.T) {
	t.Setenv(sqlstore.DSNEnv, "postgres://other/multi")

	cfg, err := sqlstore.LoadConfig(writeConfig(t, configYAML))
	require.NoError(t, err)
	assert.Equal(t, "postgres://other/multi", cfg.DSN)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
		want    error
	}{
		"missing driver": {
			content: "dsn: x\n",
			want:    sqlstore.ErrInvalidConfig,
		},
		"bad model name": {
			content: "driver: ramsql\nschemas:\n  - model: \"dummies; DROP TABLE x\"\n",
			want:    sqlstore.ErrInvalidIdentifier,
		},
		"bad field name": {
			content: "driver: ramsql\nschemas:\n  - model: dummies\n    fields:\n      \"Name\": required\n",
			want:    sqlstore.ErrInvalidIdentifier,
		},
		"reserved field": {
			content: "driver: ramsql\nschemas:\n  - model: dummies\n    fields:\n      id: required\n",
			want:    sqlstore.ErrInvalidConfig,
		},
		"duplicated model": {
			content: "driver: ramsql\nschemas:\n  - model: dummies\n  - model: dummies\n",
			want:    sqlstore.ErrInvalidConfig,
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := sqlstore.LoadConfig(writeConfig(t, tc.content))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := sqlstore.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
