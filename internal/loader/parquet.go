// Package loader reads the node and relationship tables of a graph
// construction from Parquet and Arrow IPC files.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/metrics"
)

// Entity kinds accepted by Load.
const (
	EntityNode         = "node"
	EntityRelationship = "relationship"
)

// NodeRecord is one row of a node file with no property columns.
type NodeRecord struct {
	NodeID int64    `parquet:"nodeId"`
	Labels []string `parquet:"labels"`
}

// RelationshipRecord is one row of a relationship file. An empty type and a
// nil weight are stored as nulls.
type RelationshipRecord struct {
	SourceNodeID     int64    `parquet:"sourceNodeId"`
	TargetNodeID     int64    `parquet:"targetNodeId"`
	RelationshipType string   `parquet:"relationshipType,optional"`
	Weight           *float64 `parquet:"weight,optional"`
}

// idColumns are the integer columns each entity file must carry.
var idColumns = map[string][]string{
	EntityNode:         {"nodeId"},
	EntityRelationship: {"sourceNodeId", "targetNodeId"},
}

// WriteNodes writes node rows as one zstd compressed Parquet file.
func WriteNodes(w io.Writer, nodes []NodeRecord) error {
	return WriteParquet(w, nodes)
}

// WriteRelationships writes relationship rows as one zstd compressed Parquet file.
func WriteRelationships(w io.Writer, rels []RelationshipRecord) error {
	return WriteParquet(w, rels)
}

// WriteParquet writes rows of any parquet-tagged struct as one zstd
// compressed Parquet file. Fields beyond the id, labels and type columns are
// read back as properties.
func WriteParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return err
	}
	return pw.Close()
}

// ReadNodes reads a node Parquet file. See ReadParquet.
func ReadNodes(path string, mem memory.Allocator) (arrow.Record, error) {
	return ReadParquet(path, EntityNode, mem)
}

// ReadRelationships reads a relationship Parquet file. See ReadParquet.
func ReadRelationships(path string, mem memory.Allocator) (arrow.Record, error) {
	return ReadParquet(path, EntityRelationship, mem)
}

// ReadParquet reads a Parquet file into one record whose columns follow the
// file schema. Integer columns become int64, floating point columns float64,
// byte arrays strings, and repeated columns lists of those. Nested groups
// other than lists are rejected. The caller owns the returned record.
func ReadParquet(path, entity string, mem memory.Allocator) (arrow.Record, error) {
	const operation = "loader.ReadParquet"
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, operation, fmt.Sprintf("failed to open %s", path))
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, operation, fmt.Sprintf("failed to stat %s", path))
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, operation, fmt.Sprintf("%s is not a Parquet file", path))
	}

	table, err := newParquetTable(pf.Schema(), allocator(mem))
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, operation, fmt.Sprintf("unsupported schema in %s", path))
	}
	defer table.release()
	if err := table.requireIDs(idColumns[entity]); err != nil {
		return nil, gdserrors.WrapValidationError(err, operation, fmt.Sprintf("invalid %s file %s", entity, path))
	}

	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		if err := table.readRowGroup(rg, buf); err != nil {
			return nil, gdserrors.WrapValidationError(err, operation, fmt.Sprintf("failed to read %s", path))
		}
	}

	rec := table.record()
	observe("parquet", entity, start, int(rec.NumRows()))
	return rec, nil
}

// parquetColumn maps one Parquet leaf column onto an arrow builder.
type parquetColumn struct {
	field   arrow.Field
	kind    parquet.Kind
	list    bool
	builder array.Builder
	values  []parquet.Value
}

type parquetTable struct {
	columns []*parquetColumn
	byIndex map[int]*parquetColumn
}

func newParquetTable(schema *parquet.Schema, mem memory.Allocator) (*parquetTable, error) {
	t := &parquetTable{byIndex: map[int]*parquetColumn{}}
	seen := map[string]bool{}
	for _, path := range schema.Columns() {
		name := path[0]
		if seen[name] {
			t.release()
			return nil, fmt.Errorf("column %q is a nested group", name)
		}
		seen[name] = true

		leaf, ok := schema.Lookup(path...)
		if !ok {
			t.release()
			return nil, fmt.Errorf("column %q has no leaf", name)
		}
		kind := leaf.Node.Type().Kind()
		elem, err := arrowType(kind)
		if err != nil {
			t.release()
			return nil, fmt.Errorf("column %q: %w", name, err)
		}

		c := &parquetColumn{
			field: arrow.Field{Name: name, Type: elem, Nullable: leaf.MaxDefinitionLevel > 0},
			kind:  kind,
			list:  leaf.MaxRepetitionLevel > 0,
		}
		if c.list {
			c.field.Type = arrow.ListOf(elem)
			c.field.Nullable = true
		}
		c.builder = array.NewBuilder(mem, c.field.Type)
		t.columns = append(t.columns, c)
		t.byIndex[leaf.ColumnIndex] = c
	}
	return t, nil
}

func arrowType(kind parquet.Kind) (arrow.DataType, error) {
	switch kind {
	case parquet.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case parquet.Int32, parquet.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case parquet.Float, parquet.Double:
		return arrow.PrimitiveTypes.Float64, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return arrow.BinaryTypes.String, nil
	}
	return nil, fmt.Errorf("unsupported physical type %s", kind)
}

func (t *parquetTable) requireIDs(names []string) error {
	for _, name := range names {
		var found *parquetColumn
		for _, c := range t.columns {
			if c.field.Name == name {
				found = c
			}
		}
		if found == nil {
			return fmt.Errorf("no %q column", name)
		}
		if found.list || found.field.Type.ID() != arrow.INT64 {
			return fmt.Errorf("column %q must be an integer", name)
		}
	}
	return nil
}

func (t *parquetTable) readRowGroup(rg parquet.RowGroup, buf []parquet.Row) error {
	rows := rg.Rows()
	defer rows.Close()
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			t.appendRow(row)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// appendRow splits row by leaf column and appends one value, or one list,
// to every column.
func (t *parquetTable) appendRow(row parquet.Row) {
	for _, c := range t.columns {
		c.values = c.values[:0]
	}
	for _, v := range row {
		if c, ok := t.byIndex[v.Column()]; ok {
			c.values = append(c.values, v)
		}
	}
	for _, c := range t.columns {
		c.append()
	}
}

// append writes the collected values. A lone null value is a null cell, or
// a null list for repeated columns.
func (c *parquetColumn) append() {
	present := c.values
	if len(present) == 1 && present[0].IsNull() {
		present = nil
	}
	if !c.list {
		if len(present) == 0 {
			c.builder.AppendNull()
			return
		}
		appendValue(c.builder, c.kind, present[0])
		return
	}

	lb := c.builder.(*array.ListBuilder)
	if len(present) == 0 {
		lb.AppendNull()
		return
	}
	lb.Append(true)
	for _, v := range present {
		appendValue(lb.ValueBuilder(), c.kind, v)
	}
}

func appendValue(b array.Builder, kind parquet.Kind, v parquet.Value) {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.Append(v.Boolean())
	case *array.Int64Builder:
		if kind == parquet.Int32 {
			b.Append(int64(v.Int32()))
			return
		}
		b.Append(v.Int64())
	case *array.Float64Builder:
		if kind == parquet.Float {
			b.Append(float64(v.Float()))
			return
		}
		b.Append(v.Double())
	case *array.StringBuilder:
		b.Append(string(v.ByteArray()))
	}
}

func (t *parquetTable) record() arrow.Record {
	fields := make([]arrow.Field, len(t.columns))
	cols := make([]arrow.Array, len(t.columns))
	for i, c := range t.columns {
		fields[i] = c.field
		cols[i] = c.builder.NewArray()
	}
	defer func() {
		for _, a := range cols {
			a.Release()
		}
	}()

	var rows int64
	if len(cols) > 0 {
		rows = int64(cols[0].Len())
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rows)
}

func (t *parquetTable) release() {
	for _, c := range t.columns {
		c.builder.Release()
	}
}

func allocator(mem memory.Allocator) memory.Allocator {
	if mem == nil {
		return memory.DefaultAllocator
	}
	return mem
}

func observe(format, entity string, start time.Time, rows int) {
	metrics.LoaderReadDurationSeconds.WithLabelValues(format).Observe(time.Since(start).Seconds())
	metrics.LoaderRowsTotal.WithLabelValues(format, entity).Add(float64(rows))
}
