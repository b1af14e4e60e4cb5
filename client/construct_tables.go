package client

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// Column names understood by graph construction.
const (
	ColumnNodeID           = "nodeId"
	ColumnLabels           = "labels"
	ColumnSourceNodeID     = "sourceNodeId"
	ColumnTargetNodeID     = "targetNodeId"
	ColumnRelationshipType = "relationshipType"
)

const constructOperation = "gds.graph.construct"

// validateConstructTables checks the construction input before anything is
// sent: id columns are non-null int64, node ids are unique and every
// relationship endpoint is a known node.
func validateConstructTables(nodes, relationships []arrow.Record) error {
	if len(nodes) == 0 {
		return gdserrors.NewValidationError(constructOperation, "at least one node table is required")
	}

	known := make(map[int64]struct{})
	for t, rec := range nodes {
		ids, err := int64Column(rec, ColumnNodeID, "node", t)
		if err != nil {
			return err
		}
		for i := 0; i < ids.Len(); i++ {
			id := ids.Value(i)
			if _, dup := known[id]; dup {
				return gdserrors.NewValidationError(constructOperation,
					fmt.Sprintf("node table %d row %d: duplicate node id %d", t, i, id))
			}
			known[id] = struct{}{}
		}
	}

	for t, rec := range relationships {
		for _, name := range []string{ColumnSourceNodeID, ColumnTargetNodeID} {
			ids, err := int64Column(rec, name, "relationship", t)
			if err != nil {
				return err
			}
			for i := 0; i < ids.Len(); i++ {
				if _, ok := known[ids.Value(i)]; !ok {
					return gdserrors.NewValidationError(constructOperation,
						fmt.Sprintf("relationship table %d row %d: %s %d is not a known node id", t, i, name, ids.Value(i))).
						WithContext("node_id", ids.Value(i))
				}
			}
		}
	}
	return nil
}

func int64Column(rec arrow.Record, name, kind string, table int) (*array.Int64, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, gdserrors.NewValidationError(constructOperation,
			fmt.Sprintf("%s table %d has no %q column", kind, table, name))
	}
	col, ok := rec.Column(idx[0]).(*array.Int64)
	if !ok {
		return nil, gdserrors.NewValidationError(constructOperation,
			fmt.Sprintf("%s table %d column %q is %s, expected int64", kind, table, name, rec.Column(idx[0]).DataType()))
	}
	if col.NullN() > 0 {
		return nil, gdserrors.NewValidationError(constructOperation,
			fmt.Sprintf("%s table %d column %q contains nulls", kind, table, name))
	}
	return col, nil
}

// tableRows returns the rows of rec, labelled for error messages.
func tableRows(rec arrow.Record, kind string, table int) ([]Row, error) {
	t, err := TableFromRecord(rec)
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, constructOperation,
			fmt.Sprintf("%s table %d", kind, table))
	}
	return t.Rows(), nil
}
