package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_ProjectListDrop(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	g, row, err := gds.Graph().Project().Call(ctx, "g", "Person", "KNOWS", nil)
	require.NoError(t, err)
	assert.Equal(t, "g", g.Name())
	assert.Equal(t, "Graph(g)", g.String())
	nodeCount, _ := row.GetInt64("nodeCount")
	assert.Equal(t, int64(3), nodeCount)

	list, err := gds.Graph().List(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())
	name, _ := list.Row(0).GetString("graphName")
	assert.Equal(t, "g", name)

	dropped, err := gds.Graph().Drop(ctx, g, DropOptions{FailIfMissing: true})
	require.NoError(t, err)
	name, _ = dropped.GetString("graphName")
	assert.Equal(t, "g", name)

	_, err = gds.Graph().Drop(ctx, g, DropOptions{FailIfMissing: true})
	require.Error(t, err)
	assert.True(t, IsBackendError(err))

	dropped, err = gds.Graph().Drop(ctx, g, DropOptions{})
	require.NoError(t, err)
	assert.Nil(t, dropped)

	assert.Empty(t, f.graphNames())
}

func TestGraph_ProjectQuery(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")

	_, _, err := gds.Graph().Project().Call(context.Background(), "g", []string{"A", "B"}, "R", map[string]any{"readConcurrency": 4})
	require.NoError(t, err)

	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.project($graph_name, $node_spec, $relationship_spec, $config)", last.Query)
	assert.Equal(t, []string{"A", "B"}, last.Params["node_spec"])
	assert.Equal(t, map[string]any{"readConcurrency": 4}, last.Params["config"])
}

func TestGraph_ProjectCypher(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")

	g, _, err := gds.Graph().Project().Cypher().Call(context.Background(), "c",
		"MATCH (n) RETURN id(n) AS id", "MATCH (a)-->(b) RETURN id(a) AS source, id(b) AS target", nil)
	require.NoError(t, err)
	assert.Equal(t, "c", g.Name())

	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.project.cypher($graph_name, $node_query, $relationship_query, $config)", last.Query)
	assert.Equal(t, map[string]any{}, last.Params["config"])
}

func TestGraph_DropOptions(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	_, err := gds.Graph().Drop(ctx, GraphName("g"), DropOptions{DBName: "db"})
	require.NoError(t, err)
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.drop($graph_name, $fail_if_missing, $db_name)", last.Query)
	assert.Equal(t, "db", last.Params["db_name"])

	_, err = gds.Graph().Drop(ctx, GraphName("g"), DropOptions{Username: "alice"})
	require.NoError(t, err)
	last = f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.drop($graph_name, $fail_if_missing, $db_name, $username)", last.Query)
	assert.Equal(t, "alice", last.Params["username"])
}

func TestGraph_ListSingle(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, _, err := gds.Graph().Project().Call(ctx, name, "*", "*", nil)
		require.NoError(t, err)
	}

	list, err := gds.Graph().List(ctx, GraphName("b"))
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())
	assert.Equal(t, "CALL gds.graph.list($graph_name)", f.Calls()[len(f.Calls())-1].Query)

	list, err = gds.Graph().List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, "CALL gds.graph.list()", f.Calls()[len(f.Calls())-1].Query)
}

func TestGraph_GetAndExistsAgree(t *testing.T) {
	gds, _ := newTestClient(t, "2.5.0")
	ctx := context.Background()

	_, _, err := gds.Graph().Project().Call(ctx, "present", "*", "*", nil)
	require.NoError(t, err)

	for _, name := range []string{"present", "absent"} {
		row, err := gds.Graph().Exists(ctx, name)
		require.NoError(t, err)
		exists, _ := row.GetBool("exists")

		g, err := gds.Graph().Get(ctx, name)
		if exists {
			require.NoError(t, err)
			assert.Equal(t, name, g.Name())
		} else {
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, IsNotFound(err))
			assert.Contains(t, err.Error(), "no projected graph named 'absent' exists in current database 'neo4j'")
		}
	}
}

func TestGraph_StreamNodeProperty(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	g, _, err := gds.Graph().Project().Call(ctx, "g", "*", "*", nil)
	require.NoError(t, err)

	tbl, err := gds.Graph().StreamNodeProperty(ctx, g, "x", nil, nil)
	require.NoError(t, err)

	values, ok := tbl.Column("propertyValue")
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, values)

	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.streamNodeProperty($graph_name, $properties, $entities, $config)", last.Query)
	assert.Equal(t, []string{"*"}, last.Params["entities"])
	assert.Equal(t, "x", last.Params["properties"])
}

func TestGraph_HandleReadsCatalog(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	g, _, err := gds.Graph().Project().Call(ctx, "g", "*", "*", nil)
	require.NoError(t, err)

	n, err := g.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.list($graph_name) YIELD nodeCount", last.Query)
	assert.Equal(t, "g", last.Params["graph_name"])

	_, err = g.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CALL gds.graph.list($graph_name)", f.Calls()[len(f.Calls())-1].Query)

	db, err := g.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, "neo4j", db)

	usage, err := g.MemoryUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 KiB", usage)

	dist, err := g.DegreeDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, dist["mean"])

	exists, err := g.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = g.Drop(ctx, true)
	require.NoError(t, err)

	_, err = g.NodeCount(ctx)
	assert.True(t, IsNotFound(err))

	exists, err = g.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = g.SizeInBytes(ctx)
	assert.True(t, IsNotFound(err))
}

func TestGraph_MissingColumn(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	f.canned["gds.graph.list"] = mustTable(t, []string{"graphName"}, []any{"g"})

	g := newGraph("g", gds.s)
	_, err := g.Density(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResultShape)
}

func TestGraph_ScalarShape(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	f.canned["gds.graph.exists"] = mustTable(t, []string{"graphName", "exists"},
		[]any{"g", true}, []any{"g", true})

	_, err := gds.Graph().Exists(context.Background(), "g")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResultShape)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"graphName", "exists"}, e.Context["columns"])

	f.canned["gds.graph.exists"] = mustTable(t, []string{"graphName", "exists"})
	_, err = gds.Graph().Exists(context.Background(), "g")
	assert.ErrorIs(t, err, ErrInvalidResultShape)
}

func TestGraph_RemoveNodeProperties(t *testing.T) {
	tests := []struct {
		version string
		query   string
	}{
		{"2.0.3", "CALL gds.graph.removeNodeProperties($graph_name, $properties, $entities, $config)"},
		{"2.1.0", "CALL gds.graph.removeNodeProperties($graph_name, $properties, $config)"},
		{"2.5.0", "CALL gds.graph.removeNodeProperties($graph_name, $properties, $config)"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			gds, f := newTestClient(t, tt.version)
			f.canned["gds.graph.removeNodeProperties"] = mustTable(t, []string{"propertiesRemoved"}, []any{int64(3)})

			row, err := gds.Graph().RemoveNodeProperties(context.Background(), GraphName("g"), []string{"x"}, nil)
			require.NoError(t, err)
			removed, _ := row.GetInt64("propertiesRemoved")
			assert.Equal(t, int64(3), removed)
			assert.Equal(t, tt.query, f.Calls()[len(f.Calls())-1].Query)
		})
	}
}

func TestGraph_RemoveNodePropertiesWithLabels_Gated(t *testing.T) {
	gds, f := newTestClient(t, "2.1.0")
	before := len(f.Calls())

	_, err := gds.Graph().RemoveNodePropertiesWithLabels(context.Background(), GraphName("g"), []string{"x"}, []string{"A"}, nil)
	assert.True(t, IsIncompatibleServerVersion(err))
	assert.Len(t, f.Calls(), before)

	gds, f = newTestClient(t, "2.0.0")
	f.canned["gds.graph.removeNodeProperties"] = mustTable(t, []string{"propertiesRemoved"}, []any{int64(1)})
	_, err = gds.Graph().RemoveNodePropertiesWithLabels(context.Background(), GraphName("g"), []string{"x"}, []string{"A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, f.Calls()[len(f.Calls())-1].Params["entities"])
}

func TestGraph_WriteAndDelete(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()
	f.canned["gds.graph.writeNodeProperties"] = mustTable(t, []string{"propertiesWritten"}, []any{int64(6)})
	f.canned["gds.graph.writeRelationship"] = mustTable(t, []string{"relationshipsWritten"}, []any{int64(2)})
	f.canned["gds.graph.deleteRelationships"] = mustTable(t, []string{"deletedRelationships"}, []any{int64(2)})

	row, err := gds.Graph().WriteNodeProperties(ctx, GraphName("g"), []string{"a", "b"}, []string{"A"}, nil)
	require.NoError(t, err)
	written, _ := row.GetInt64("propertiesWritten")
	assert.Equal(t, int64(6), written)

	_, err = gds.Graph().WriteRelationship(ctx, GraphName("g"), "R", "w", nil)
	require.NoError(t, err)
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.writeRelationship($graph_name, $relationship_type, $relationship_property, $config)", last.Query)

	_, err = gds.Graph().DeleteRelationships(ctx, GraphName("g"), "R")
	require.NoError(t, err)
	assert.Equal(t, "CALL gds.graph.deleteRelationships($graph_name, $relationship_type)", f.Calls()[len(f.Calls())-1].Query)
}

func TestGraph_StreamProperties(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	_, err := gds.Graph().StreamNodeProperties(ctx, GraphName("g"), []string{"a", "b"}, []string{"A"}, map[string]any{"separateProperties": true})
	require.NoError(t, err)
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, []string{"a", "b"}, last.Params["properties"])
	assert.Equal(t, []string{"A"}, last.Params["entities"])

	_, err = gds.Graph().StreamRelationshipProperty(ctx, GraphName("g"), "w", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "gds.graph.streamRelationshipProperty", procedureOf(f.Calls()[len(f.Calls())-1].Query))

	_, err = gds.Graph().StreamRelationshipProperties(ctx, GraphName("g"), []string{"w"}, []string{"R"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gds.graph.streamRelationshipProperties", procedureOf(f.Calls()[len(f.Calls())-1].Query))
}

func TestGraph_Generate(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	g, _, err := gds.Graph().Generate(ctx, "rand", 100, 3, map[string]any{"randomSeed": 42})
	require.NoError(t, err)
	assert.Equal(t, "rand", g.Name())
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.graph.generate($graph_name, $node_count, $average_degree, $config)", last.Query)
	assert.Equal(t, int64(100), last.Params["node_count"])

	g, _, err = gds.Beta().Graph().Generate(ctx, "rand2", 10, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "gds.beta.graph.generate", procedureOf(f.Calls()[len(f.Calls())-1].Query))
	assert.Contains(t, f.graphNames(), g.Name())
}

func TestGraph_Export(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()

	_, err := gds.Graph().Export().Call(ctx, GraphName("g"), map[string]any{"dbName": "exported"})
	require.NoError(t, err)
	assert.Equal(t, "CALL gds.graph.export($graph_name, $config)", f.Calls()[len(f.Calls())-1].Query)

	_, err = gds.Graph().Export().CSV(ctx, GraphName("g"), map[string]any{"exportName": "dump"})
	require.NoError(t, err)
	assert.Equal(t, "CALL gds.graph.export.csv($graph_name, $config)", f.Calls()[len(f.Calls())-1].Query)
}

func TestGraph_Subgraph(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")

	g, _, err := gds.Beta().Graph().Project().Subgraph(context.Background(), "sub", GraphName("g"), "n.x > 1", "*", nil)
	require.NoError(t, err)
	assert.Equal(t, "sub", g.Name())

	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.beta.graph.project.subgraph($graph_name, $from_graph_name, $node_filter, $relationship_filter, $config)", last.Query)
	assert.Equal(t, "n.x > 1", last.Params["node_filter"])
}

func TestGraph_Estimate(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	f.canned["gds.graph.project.estimate"] = mustTable(t, []string{"requiredMemory"}, []any{"1 MiB"})

	row, err := gds.Graph().Project().Estimate(context.Background(), "*", "*", nil)
	require.NoError(t, err)
	mem, _ := row.GetString("requiredMemory")
	assert.Equal(t, "1 MiB", mem)
	assert.Equal(t, "CALL gds.graph.project.estimate($node_spec, $relationship_spec, $config)", f.Calls()[len(f.Calls())-1].Query)
}

func TestGraph_NilHandle(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()
	before := len(f.Calls())
	var missing *Graph

	assert.Empty(t, missing.Name())

	_, err := gds.Graph().List(ctx, missing)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Graph().Drop(ctx, missing, DropOptions{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Graph().StreamNodeProperty(ctx, missing, "p", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Graph().WriteRelationship(ctx, missing, "R", "", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Graph().DeleteRelationships(ctx, GraphName(""), "R")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Graph().Export().CSV(ctx, missing, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = gds.Beta().Graph().Project().Subgraph(ctx, "sub", missing, "*", "*", nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Len(t, f.Calls(), before)
}
