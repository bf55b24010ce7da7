package model

import (
	"fmt"
	"reflect"
)

type Operator string

const (
	OpEq    Operator = "="
	OpNotEq Operator = "<>"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// Dataset describes the records of a model matching every condition.
type Dataset struct {
	Model      string
	Conditions []Condition
}

// All returns the dataset of every record of modelName.
func All(modelName string) Dataset {
	return Dataset{Model: modelName}
}

// Where returns a copy of d restricted to records whose field equals value.
func (d Dataset) Where(field string, value any) Dataset {
	return d.with(Condition{Field: field, Operator: OpEq, Value: value})
}

// WhereNot returns a copy of d restricted to records whose field differs from value.
func (d Dataset) WhereNot(field string, value any) Dataset {
	return d.with(Condition{Field: field, Operator: OpNotEq, Value: value})
}

func (d Dataset) with(cond Condition) Dataset {
	conds := make([]Condition, 0, len(d.Conditions)+1)
	conds = append(conds, d.Conditions...)

	return Dataset{Model: d.Model, Conditions: append(conds, cond)}
}

// Matches reports whether a row with the given id and attributes belongs to d.
func (d Dataset) Matches(id string, attrs Attributes) bool {
	for _, cond := range d.Conditions {
		var got any
		if cond.Field == "id" {
			got = id
		} else {
			got = attrs[cond.Field]
		}

		eq := equalValues(got, cond.Value)
		switch cond.Operator {
		case OpEq:
			if !eq {
				return false
			}
		case OpNotEq:
			if eq {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func (d Dataset) String() string {
	return fmt.Sprintf("%s%v", d.Model, d.Conditions)
}

// equalValues compares numbers by value regardless of their concrete type.
func equalValues(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
