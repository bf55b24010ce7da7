package model

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Attributes are the field values of a record.
type Attributes map[string]any

// Clone returns a shallow copy of a.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}

	return out
}

// Merge returns a copy of a overwritten with the values of b.
func (a Attributes) Merge(b Attributes) Attributes {
	out := a.Clone()
	for k, v := range b {
		out[k] = v
	}

	return out
}

// Record is an in-memory handle on a persisted row.
type Record struct {
	Model      string
	ID         string
	Attributes Attributes
	Destroyed  bool
}

// Persisted reports whether r is backed by a stored row.
func (r *Record) Persisted() bool {
	return r != nil && r.ID != "" && !r.Destroyed
}

// Get returns the value of field, nil when unset.
func (r *Record) Get(field string) any {
	if field == "id" {
		return r.ID
	}

	return r.Attributes[field]
}

// Clone returns a copy of r that shares no attributes map with it.
func (r *Record) Clone() *Record {
	return &Record{
		Model:      r.Model,
		ID:         r.ID,
		Attributes: r.Attributes.Clone(),
		Destroyed:  r.Destroyed,
	}
}

// Restore overwrites the state of r with the state of from.
func (r *Record) Restore(from *Record) {
	r.Model = from.Model
	r.ID = from.ID
	r.Attributes = from.Attributes.Clone()
	r.Destroyed = from.Destroyed
}

// Decode copies the record into out, a pointer to a struct, using `multi` tags.
func (r *Record) Decode(out any) error {
	input := r.Attributes.Clone()
	input["id"] = r.ID

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "multi",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "unable to create decoder")
	}

	err = dec.Decode(input)
	if err != nil {
		return errors.Wrapf(err, "unable to decode %s record %s", r.Model, r.ID)
	}

	return nil
}
