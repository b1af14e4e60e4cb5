package client

import (
	"context"

	"github.com/23skdu/gdsclient/internal/query"
)

// GraphProjectRunner is gds.graph.project. It is a procedure and the parent
// of the cypher and estimate variants.
type GraphProjectRunner struct {
	node
}

// Call projects a graph from node and relationship projections. The specs
// are passed through unchanged: a label or type string, a list, or a map.
func (r GraphProjectRunner) Call(ctx context.Context, name string, nodeSpec, relationshipSpec any, config map[string]any) (*Graph, Row, error) {
	row, err := r.s.callRow(ctx, shapeScalar, r.path, []query.Arg{
		query.Param("graph_name", name),
		query.Param("node_spec", nodeSpec),
		query.Param("relationship_spec", relationshipSpec),
	}, orEmpty(config))
	if err != nil {
		return nil, nil, err
	}
	return newGraph(name, r.s), row, nil
}

// Estimate returns the memory estimate of a native projection.
func (r GraphProjectRunner) Estimate(ctx context.Context, nodeSpec, relationshipSpec any, config map[string]any) (Row, error) {
	return r.s.callRow(ctx, shapeScalar, r.procedure("estimate"), []query.Arg{
		query.Param("node_spec", nodeSpec),
		query.Param("relationship_spec", relationshipSpec),
	}, orEmpty(config))
}

// Cypher returns gds.graph.project.cypher.
func (r GraphProjectRunner) Cypher() GraphProjectCypherRunner {
	return GraphProjectCypherRunner{node: r.extend("cypher")}
}

// Child resolves cypher and estimate.
func (r GraphProjectRunner) Child(segment string) (Namespace, error) {
	switch segment {
	case "cypher":
		return r.Cypher(), nil
	case "estimate":
		return r.terminal(segment), nil
	}
	return nil, r.unknown(segment)
}

// Invoke runs gds.graph.project with positional arguments.
func (r GraphProjectRunner) Invoke(ctx context.Context, args []any, config map[string]any) (*Table, error) {
	return r.invoke(ctx, args, config)
}

// GraphProjectCypherRunner is gds.graph.project.cypher.
type GraphProjectCypherRunner struct {
	node
}

// Call projects a graph from a node query and a relationship query.
func (r GraphProjectCypherRunner) Call(ctx context.Context, name, nodeQuery, relationshipQuery string, config map[string]any) (*Graph, Row, error) {
	row, err := r.s.callRow(ctx, shapeScalar, r.path, []query.Arg{
		query.Param("graph_name", name),
		query.Param("node_query", nodeQuery),
		query.Param("relationship_query", relationshipQuery),
	}, orEmpty(config))
	if err != nil {
		return nil, nil, err
	}
	return newGraph(name, r.s), row, nil
}

// Estimate returns the memory estimate of a Cypher projection.
func (r GraphProjectCypherRunner) Estimate(ctx context.Context, nodeQuery, relationshipQuery string, config map[string]any) (Row, error) {
	return r.s.callRow(ctx, shapeScalar, r.procedure("estimate"), []query.Arg{
		query.Param("node_query", nodeQuery),
		query.Param("relationship_query", relationshipQuery),
	}, orEmpty(config))
}

// Child resolves estimate.
func (r GraphProjectCypherRunner) Child(segment string) (Namespace, error) {
	if segment == "estimate" {
		return r.terminal(segment), nil
	}
	return nil, r.unknown(segment)
}

// Invoke runs gds.graph.project.cypher with positional arguments.
func (r GraphProjectCypherRunner) Invoke(ctx context.Context, args []any, config map[string]any) (*Table, error) {
	return r.invoke(ctx, args, config)
}
