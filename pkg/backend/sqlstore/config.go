package sqlstore

import (
	"os"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-multi/pkg/multi/model"
)

// DSNEnv overrides the DSN of a loaded configuration when set.
const DSNEnv = "MULTI_SQL_DSN"

var (
	ErrInvalidConfig     = errors.New("invalid sql store configuration")
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
)

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config describes the database and the models it stores.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Savepoints nests scopes with SAVEPOINT statements. Without it a nested rollback
	// marks the whole transaction rollback-only, unless compensating.
	Savepoints bool `yaml:"savepoints"`
	// Compensate undoes rolled back writes with compensating statements instead of trusting
	// the driver's rollback. It is always on for ramsql, whose rollback keeps updated values.
	Compensate bool           `yaml:"compensate"`
	Schemas    []SchemaConfig `yaml:"schemas"`
}

// compensating reports whether rolled back writes are undone by compensating statements.
func (c Config) compensating() bool {
	return c.Compensate || c.Driver == "ramsql"
}

type SchemaConfig struct {
	Model  string            `yaml:"model"`
	Fields map[string]string `yaml:"fields"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to read %s", path)
	}

	cfg := Config{}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to parse %s", path)
	}

	if dsn := os.Getenv(DSNEnv); dsn != "" {
		cfg.DSN = dsn
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the driver is set and that every model and field is a safe identifier.
func (c Config) Validate() error {
	if c.Driver == "" {
		return errors.Wrap(ErrInvalidConfig, "driver must be set")
	}

	return c.validateSchemas()
}

func (c Config) validateSchemas() error {
	seen := make(map[string]struct{}, len(c.Schemas))
	for _, schema := range c.Schemas {
		err := checkIdentifier(schema.Model)
		if err != nil {
			return err
		}

		if _, ok := seen[schema.Model]; ok {
			return errors.Wrapf(ErrInvalidConfig, "model %q declared twice", schema.Model)
		}
		seen[schema.Model] = struct{}{}

		for field := range schema.Fields {
			if field == "id" {
				return errors.Wrapf(ErrInvalidConfig, "%s: field id is reserved", schema.Model)
			}

			err = checkIdentifier(field)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (c Config) schemas() map[string]model.Schema {
	out := make(map[string]model.Schema, len(c.Schemas))
	for _, schema := range c.Schemas {
		out[schema.Model] = model.Schema{Model: schema.Model, Fields: schema.Fields}
	}

	return out
}

func checkIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return errors.Wrapf(ErrInvalidIdentifier, "%q", name)
	}

	return nil
}
