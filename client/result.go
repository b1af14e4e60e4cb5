package client

import (
	"fmt"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// shape is the form a procedure result is converted into.
type shape int

const (
	// shapeScalar requires exactly one row.
	shapeScalar shape = iota
	// shapeOptionalScalar allows zero or one row.
	shapeOptionalScalar
)

func (s shape) String() string {
	switch s {
	case shapeScalar:
		return "scalar"
	case shapeOptionalScalar:
		return "optional scalar"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// shapeRow converts t into a single row according to s.
func shapeRow(procedure string, s shape, t *Table) (Row, error) {
	switch s {
	case shapeScalar:
		if t.Len() != 1 {
			return nil, gdserrors.NewInvalidResultShape(procedure,
				fmt.Sprintf("expected exactly one row, got %d", t.Len())).
				WithContext("columns", t.Columns()).
				WithContext("shape", s.String())
		}
		return t.Row(0), nil
	case shapeOptionalScalar:
		switch t.Len() {
		case 0:
			return nil, nil
		case 1:
			return t.Row(0), nil
		default:
			return nil, gdserrors.NewInvalidResultShape(procedure,
				fmt.Sprintf("expected at most one row, got %d", t.Len())).
				WithContext("columns", t.Columns()).
				WithContext("shape", s.String())
		}
	}
	return nil, nil
}

// requireColumn fails with InvalidResultShape when row lacks key.
func requireColumn(procedure string, row Row, key string) (any, error) {
	v, ok := row[key]
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(procedure,
			fmt.Sprintf("result has no %q column", key))
	}
	return v, nil
}
