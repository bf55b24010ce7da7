package model

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// Schema declares the fields of a model. Each field maps to a validator tag, empty for none.
type Schema struct {
	Model  string
	Fields map[string]string
}

// FieldNames returns the declared fields sorted by name.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// CheckFields rejects attributes the schema does not declare.
func (s Schema) CheckFields(attrs Attributes) error {
	unknown := []string{}
	for name := range attrs {
		if _, ok := s.Fields[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return errors.Wrapf(ErrInvalidRecord, "%s: unknown attributes %s", s.Model, strings.Join(unknown, ", "))
	}

	return nil
}

// Validate checks the full set of attributes of a record against the schema.
func (s Schema) Validate(attrs Attributes) error {
	err := s.CheckFields(attrs)
	if err != nil {
		return err
	}

	for _, name := range s.FieldNames() {
		tag := s.Fields[name]
		if tag == "" {
			continue
		}

		err = s.validateField(name, tag, attrs[name])
		if err != nil {
			return err
		}
	}

	return nil
}

// ValidateChanges checks an update of a stored record. Only the changed attributes are run
// against their tags; required fields are checked over the stored attributes merged with changes.
func (s Schema) ValidateChanges(stored, changes Attributes) error {
	err := s.CheckFields(changes)
	if err != nil {
		return err
	}

	for _, name := range s.FieldNames() {
		tag := s.Fields[name]
		if tag == "" {
			continue
		}

		value, changed := changes[name]
		if !changed {
			if stored[name] == nil && hasRule(tag, "required") {
				return errors.Wrapf(ErrInvalidRecord, "%s.%s: is required", s.Model, name)
			}

			continue
		}

		err = s.validateField(name, tag, value)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s Schema) validateField(name, tag string, value any) error {
	if value == nil {
		if hasRule(tag, "required") {
			return errors.Wrapf(ErrInvalidRecord, "%s.%s: is required", s.Model, name)
		}

		return nil
	}

	err := validate.Var(value, tag)
	if err != nil {
		return errors.Wrapf(ErrInvalidRecord, "%s.%s: %s", s.Model, name, err.Error())
	}

	return nil
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}

	return false
}
