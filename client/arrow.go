package client

import (
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

type columnKind int

const (
	kindNull columnKind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindJSON
	kindEmptyList
	kindIntList
	kindFloatList
	kindStringList
)

func (k columnKind) isList() bool {
	return k >= kindEmptyList
}

func (k columnKind) dataType() arrow.DataType {
	switch k {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindIntList:
		return arrow.ListOf(arrow.PrimitiveTypes.Int64)
	case kindFloatList:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64)
	case kindEmptyList, kindStringList:
		return arrow.ListOf(arrow.BinaryTypes.String)
	default:
		return arrow.BinaryTypes.String
	}
}

func kindOf(v any) columnKind {
	if v == nil {
		return kindNull
	}
	if _, ok := toInt64(v); ok {
		return kindInt
	}
	switch x := v.(type) {
	case float64, float32:
		return kindFloat
	case bool:
		return kindBool
	case string:
		return kindString
	case map[string]any:
		return kindJSON
	default:
		items, ok := toSlice(x)
		if !ok {
			return kindString
		}
		k := kindEmptyList
		for _, item := range items {
			var lk columnKind
			switch kindOf(item) {
			case kindNull:
				continue
			case kindInt:
				lk = kindIntList
			case kindFloat:
				lk = kindFloatList
			case kindString:
				lk = kindStringList
			default:
				return kindJSON
			}
			merged, ok := mergeKinds(k, lk)
			if !ok {
				return kindJSON
			}
			k = merged
		}
		return k
	}
}

func mergeKinds(a, b columnKind) (columnKind, bool) {
	switch {
	case a == b:
		return a, true
	case a == kindNull:
		return b, true
	case b == kindNull:
		return a, true
	case (a == kindInt && b == kindFloat) || (a == kindFloat && b == kindInt):
		return kindFloat, true
	case a == kindEmptyList && b.isList():
		return b, true
	case b == kindEmptyList && a.isList():
		return a, true
	case (a == kindIntList && b == kindFloatList) || (a == kindFloatList && b == kindIntList):
		return kindFloatList, true
	}
	return kindNull, false
}

// ToArrow converts the table into an Arrow record. Integer, float, bool and
// string columns map to the matching Arrow types, homogeneous lists to list
// columns and nested maps to JSON-encoded strings. The caller owns the
// returned record.
func (t *Table) ToArrow(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	columns := t.Columns()
	kinds := make([]columnKind, len(columns))
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		k := kindNull
		for _, v := range t.data[col] {
			merged, ok := mergeKinds(k, kindOf(v))
			if !ok {
				return nil, gdserrors.NewValidationError("client.Table.ToArrow",
					fmt.Sprintf("column %q mixes incompatible value types", col))
			}
			k = merged
		}
		kinds[i] = k
		fields[i] = arrow.Field{Name: col, Type: k.dataType(), Nullable: true}
	}

	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	for i, col := range columns {
		for _, v := range t.data[col] {
			if err := appendValue(b.Field(i), kinds[i], v); err != nil {
				return nil, gdserrors.WrapValidationError(err, "client.Table.ToArrow",
					fmt.Sprintf("column %q", col))
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(fb array.Builder, k columnKind, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}
	switch k {
	case kindInt:
		n, _ := toInt64(v)
		fb.(*array.Int64Builder).Append(n)
	case kindFloat:
		f, _ := Row{"v": v}.GetFloat64("v")
		fb.(*array.Float64Builder).Append(f)
	case kindBool:
		fb.(*array.BooleanBuilder).Append(v.(bool))
	case kindJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fb.(*array.StringBuilder).Append(string(raw))
	case kindEmptyList, kindIntList, kindFloatList, kindStringList:
		lb := fb.(*array.ListBuilder)
		items, _ := toSlice(v)
		lb.Append(true)
		elem := kindString
		switch k {
		case kindIntList:
			elem = kindInt
		case kindFloatList:
			elem = kindFloat
		}
		for _, item := range items {
			if err := appendValue(lb.ValueBuilder(), elem, item); err != nil {
				return err
			}
		}
	default:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		fb.(*array.StringBuilder).Append(s)
	}
	return nil
}

// TableFromRecord copies an Arrow record into a Table. Integer columns become
// int64, floating point columns float64 and list columns []any.
func TableFromRecord(rec arrow.Record) (*Table, error) {
	schema := rec.Schema()
	columns := make([]string, schema.NumFields())
	data := make(map[string][]any, len(columns))
	rows := int(rec.NumRows())
	for i, f := range schema.Fields() {
		columns[i] = f.Name
		values := make([]any, rows)
		col := rec.Column(i)
		for r := 0; r < rows; r++ {
			values[r] = arrowValue(col, r)
		}
		data[f.Name] = values
	}
	return NewTableFromColumns(columns, data)
}

func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	default:
		return arr.ValueStr(i)
	}
}

func listValues(values arrow.Array, start, end int64) []any {
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, arrowValue(values, int(j)))
	}
	return out
}
