package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/gdsclient/internal/version"
)

type recordedCall struct {
	Query  string
	Params map[string]any
}

type fakeGraph struct {
	nodeCount         int64
	relationshipCount int64
	values            []int64
}

// fakeServer is an in-memory graph catalog answering the queries this
// package sends. It only understands the procedures the tests use.
type fakeServer struct {
	mu       sync.Mutex
	version  string
	database string
	graphs   map[string]fakeGraph
	calls    []recordedCall
	// canned answers keyed by procedure name, used before the built-in ones
	canned map[string]*Table
	fail   map[string]error
}

func newFakeServer(version string) *fakeServer {
	return &fakeServer{
		version:  version,
		database: "neo4j",
		graphs:   map[string]fakeGraph{},
		canned:   map[string]*Table{},
		fail:     map[string]error{},
	}
}

func mustTable(t testing.TB, columns []string, rows ...[]any) *Table {
	t.Helper()
	tbl, err := NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func procedureOf(query string) string {
	switch {
	case strings.HasPrefix(query, "CALL "):
		rest := strings.TrimPrefix(query, "CALL ")
		if i := strings.IndexByte(rest, '('); i >= 0 {
			return rest[:i]
		}
		return rest
	case strings.HasPrefix(query, "RETURN gds.version()"):
		return "gds.version"
	case strings.HasPrefix(query, "UNWIND $rows"):
		return "aggregation"
	}
	return query
}

func (f *fakeServer) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeServer) Procedures() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, procedureOf(c.Query))
	}
	return out
}

func (f *fakeServer) graphNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *fakeServer) RunQuery(_ context.Context, query string, params map[string]any) (*Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Query: query, Params: params})

	procedure := procedureOf(query)
	if err := f.fail[procedure]; err != nil {
		return nil, err
	}
	if t, ok := f.canned[procedure]; ok {
		return t, nil
	}

	name, _ := params["graph_name"].(string)
	switch procedure {
	case "gds.version":
		return NewTable([]string{"version"}, [][]any{{f.version}})

	case "gds.graph.project", "gds.graph.project.cypher", "gds.graph.generate", "gds.beta.graph.generate":
		g := fakeGraph{nodeCount: 3, relationshipCount: 3, values: []int64{1, 2, 3}}
		f.graphs[name] = g
		return NewTable([]string{"graphName", "nodeCount", "relationshipCount"},
			[][]any{{name, g.nodeCount, g.relationshipCount}})

	case "gds.graph.list":
		cols := []string{"graphName", "database", "nodeCount", "relationshipCount", "memoryUsage", "degreeDistribution", "configuration"}
		var rows [][]any
		for _, n := range f.sortedGraphs() {
			if name != "" && n != name {
				continue
			}
			g := f.graphs[n]
			rows = append(rows, []any{n, f.database, g.nodeCount, g.relationshipCount, "1 KiB",
				map[string]any{"mean": 1.0}, map[string]any{"nodeProjection": "*"}})
		}
		return NewTable(cols, rows)

	case "gds.graph.exists":
		_, ok := f.graphs[name]
		return NewTable([]string{"graphName", "exists"}, [][]any{{name, ok}})

	case "gds.graph.drop":
		g, ok := f.graphs[name]
		if !ok {
			if fail, _ := params["fail_if_missing"].(bool); fail {
				return nil, fmt.Errorf("Failed to invoke procedure `gds.graph.drop`: graph with name `%s` does not exist", name)
			}
			return NewTable([]string{"graphName", "nodeCount"}, nil)
		}
		delete(f.graphs, name)
		return NewTable([]string{"graphName", "nodeCount"}, [][]any{{name, g.nodeCount}})

	case "gds.graph.streamNodeProperty":
		g, ok := f.graphs[name]
		if !ok {
			return nil, fmt.Errorf("graph %s does not exist", name)
		}
		var rows [][]any
		for i, v := range g.values {
			rows = append(rows, []any{int64(i), v})
		}
		return NewTable([]string{"nodeId", "propertyValue"}, rows)

	case "aggregation":
		return f.aggregate(query, params)
	}

	return NewTable([]string{"procedure"}, [][]any{{procedure}})
}

// aggregate mimics the Cypher aggregation projection. It rejects the
// argument layout of the other server generation: five arguments with a
// dataConfig map from 2.3.0, six with nodesConfig and relationshipConfig
// before.
func (f *fakeServer) aggregate(query string, params map[string]any) (*Table, error) {
	v, err := version.Parse(f.version)
	if err != nil {
		return nil, err
	}
	arity, keys := 6, []string{"nodesConfig", "relationshipConfig"}
	if !v.Less(version.New(2, 3, 0)) {
		arity, keys = 5, []string{"dataConfig"}
	}
	args := strings.Split(query[strings.Index(query, "(")+1:strings.LastIndex(query, ")")], ",")
	if len(args) != arity {
		return nil, fmt.Errorf("aggregation on %s takes %d arguments, got %d", f.version, arity, len(args))
	}

	name, _ := params["graph_name"].(string)
	rows, _ := params["rows"].([]any)
	nodes := map[int64]bool{}
	var rels int64
	for _, r := range rows {
		row := r.(map[string]any)
		for _, k := range keys {
			if _, ok := row[k].(map[string]any); !ok {
				return nil, fmt.Errorf("aggregation row has no %s map", k)
			}
		}
		nodes[row["source"].(int64)] = true
		if target, ok := row["target"].(int64); ok {
			nodes[target] = true
			rels++
		}
	}
	f.graphs[name] = fakeGraph{nodeCount: int64(len(nodes)), relationshipCount: rels}
	return NewTable([]string{"graph"}, [][]any{{map[string]any{"graphName": name}}})
}

func (f *fakeServer) sortedGraphs() []string {
	var names []string
	for n := range f.graphs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *fakeServer) Database() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.database
}

func (f *fakeServer) SetDatabase(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.database = name
}

func (f *fakeServer) CreateGraphConstructor(graphName string, concurrency int) (GraphConstructor, error) {
	return &cypherGraphConstructor{runner: f, graphName: graphName, concurrency: concurrency}, nil
}

func (f *fakeServer) Close(context.Context) error { return nil }

func newTestClient(t *testing.T, serverVersion string) (*GraphDataScience, *fakeServer) {
	t.Helper()
	f := newFakeServer(serverVersion)
	gds, err := New(context.Background(), f)
	require.NoError(t, err)
	return gds, f
}

func nodeRecord(t testing.TB, ids []int64, labels []string) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: ColumnNodeID, Type: arrow.PrimitiveTypes.Int64},
		{Name: ColumnLabels, Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	idb := b.Field(0).(*array.Int64Builder)
	lb := b.Field(1).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.StringBuilder)
	sb := b.Field(2).(*array.Float64Builder)
	for i, id := range ids {
		idb.Append(id)
		if i < len(labels) && labels[i] != "" {
			lb.Append(true)
			vb.Append(labels[i])
		} else {
			lb.AppendNull()
		}
		sb.Append(float64(id) / 2)
	}
	return b.NewRecord()
}

func relationshipRecord(t testing.TB, sources, targets []int64, relType string) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: ColumnSourceNodeID, Type: arrow.PrimitiveTypes.Int64},
		{Name: ColumnTargetNodeID, Type: arrow.PrimitiveTypes.Int64},
		{Name: ColumnRelationshipType, Type: arrow.BinaryTypes.String},
	}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	for i := range sources {
		b.Field(0).(*array.Int64Builder).Append(sources[i])
		b.Field(1).(*array.Int64Builder).Append(targets[i])
		b.Field(2).(*array.StringBuilder).Append(relType)
	}
	return b.NewRecord()
}
