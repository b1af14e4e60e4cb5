package client

import (
	"context"
	"fmt"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/query"
)

// GraphRef identifies a projected graph. Procedures receive only its name.
type GraphRef interface {
	Name() string
}

// GraphName refers to a graph by name without checking that it exists.
type GraphName string

// Name returns the graph name.
func (n GraphName) Name() string {
	return string(n)
}

// Graph is a handle to a graph in the server's graph catalog. It holds no
// graph data; every accessor re-reads the catalog, so a handle to a dropped
// graph fails on its next use.
type Graph struct {
	name string
	s    *session
}

func newGraph(name string, s *session) *Graph {
	return &Graph{name: name, s: s}
}

// Name returns the graph name. A nil handle has no name.
func (g *Graph) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// graphName returns the name of g, failing for a nil or unnamed reference.
func graphName(operation string, g GraphRef) (string, error) {
	if g == nil || g.Name() == "" {
		return "", gdserrors.NewValidationError(operation, "graph name cannot be empty")
	}
	return g.Name(), nil
}

func (g *Graph) String() string {
	return fmt.Sprintf("Graph(%s)", g.name)
}

func (g *Graph) catalog() GraphProcRunner {
	return GraphProcRunner{node: node{path: "gds.graph", s: g.s}}
}

// Info returns the catalog row of this graph.
func (g *Graph) Info(ctx context.Context) (Row, error) {
	return g.lookup(ctx)
}

// lookup reads the catalog row of this graph, narrowed to columns when any
// are given.
func (g *Graph) lookup(ctx context.Context, columns ...string) (Row, error) {
	procedure := "gds.graph.list"
	row, err := g.s.callYield(ctx, shapeOptionalScalar, procedure,
		[]query.Arg{query.Param("graph_name", g.name)}, columns...)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, gdserrors.NewNotFoundError(procedure,
			fmt.Sprintf("no projected graph named '%s' exists in current database '%s'", g.name, g.s.runner.Database()))
	}
	return row, nil
}

func (g *Graph) field(ctx context.Context, key string) (any, error) {
	row, err := g.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	return requireColumn("gds.graph.list", row, key)
}

func (g *Graph) int64Field(ctx context.Context, key string) (int64, error) {
	v, err := g.field(ctx, key)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, gdserrors.NewInvalidResultShape("gds.graph.list",
			fmt.Sprintf("column %q is %T, expected an integer", key, v))
	}
	return n, nil
}

func (g *Graph) mapField(ctx context.Context, key string) (map[string]any, error) {
	v, err := g.field(ctx, key)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, gdserrors.NewInvalidResultShape("gds.graph.list",
			fmt.Sprintf("column %q is %T, expected a map", key, v))
	}
	return m, nil
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount(ctx context.Context) (int64, error) {
	return g.int64Field(ctx, "nodeCount")
}

// RelationshipCount returns the number of relationships in the graph.
func (g *Graph) RelationshipCount(ctx context.Context) (int64, error) {
	return g.int64Field(ctx, "relationshipCount")
}

// SizeInBytes returns the estimated heap size of the graph.
func (g *Graph) SizeInBytes(ctx context.Context) (int64, error) {
	return g.int64Field(ctx, "sizeInBytes")
}

// Database returns the database the graph was projected from.
func (g *Graph) Database(ctx context.Context) (string, error) {
	v, err := g.field(ctx, "database")
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// MemoryUsage returns the human readable heap size of the graph.
func (g *Graph) MemoryUsage(ctx context.Context) (string, error) {
	v, err := g.field(ctx, "memoryUsage")
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// Density returns relationshipCount / (nodeCount * (nodeCount - 1)).
func (g *Graph) Density(ctx context.Context) (float64, error) {
	row, err := g.lookup(ctx, "density")
	if err != nil {
		return 0, err
	}
	d, ok := row.GetFloat64("density")
	if !ok {
		return 0, gdserrors.NewInvalidResultShape("gds.graph.list", "result has no numeric \"density\" column")
	}
	return d, nil
}

// DegreeDistribution returns the degree statistics of the graph.
func (g *Graph) DegreeDistribution(ctx context.Context) (map[string]any, error) {
	return g.mapField(ctx, "degreeDistribution")
}

// Configuration returns the configuration the graph was projected with.
func (g *Graph) Configuration(ctx context.Context) (map[string]any, error) {
	return g.mapField(ctx, "configuration")
}

// Schema returns the node labels, relationship types and their properties.
func (g *Graph) Schema(ctx context.Context) (map[string]any, error) {
	return g.mapField(ctx, "schema")
}

// CreationTime returns the creation timestamp as reported by the driver.
func (g *Graph) CreationTime(ctx context.Context) (any, error) {
	return g.field(ctx, "creationTime")
}

// Exists reports whether the graph is still in the catalog.
func (g *Graph) Exists(ctx context.Context) (bool, error) {
	row, err := g.catalog().Exists(ctx, g.name)
	if err != nil {
		return false, err
	}
	exists, _ := row.GetBool("exists")
	return exists, nil
}

// Drop removes the graph from the catalog. Without failIfMissing a missing
// graph yields a nil row.
func (g *Graph) Drop(ctx context.Context, failIfMissing bool) (Row, error) {
	return g.catalog().Drop(ctx, g, DropOptions{FailIfMissing: failIfMissing})
}
