package client

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/23skdu/gdsclient/internal/query"
)

// BetaEndpoints is the gds.beta tier.
type BetaEndpoints struct {
	node
}

// Graph returns gds.beta.graph.
func (b BetaEndpoints) Graph() BetaGraphProcRunner {
	return BetaGraphProcRunner{node: b.extend("graph")}
}

// Model returns the gds.beta.model catalog used by servers before 2.5.0.
func (b BetaEndpoints) Model() BetaModelProcRunner {
	return BetaModelProcRunner{modelCatalog{node: b.extend("model")}}
}

// System returns the system endpoints of the beta tier.
func (b BetaEndpoints) System() SystemEndpoints {
	return SystemEndpoints{node: b.node}
}

// Child resolves graph, model and the system endpoints of gds.beta.
func (b BetaEndpoints) Child(segment string) (Namespace, error) {
	switch segment {
	case "graph":
		return b.Graph(), nil
	case "model":
		return b.Model(), nil
	case "system":
		return b.System(), nil
	}
	return b.System().Child(segment)
}

// Invoke fails: gds.beta is a namespace.
func (b BetaEndpoints) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, b.uncallable()
}

// BetaGraphProcRunner is gds.beta.graph.
type BetaGraphProcRunner struct {
	node
}

// Project returns gds.beta.graph.project.
func (r BetaGraphProcRunner) Project() BetaGraphProjectRunner {
	return BetaGraphProjectRunner{node: r.extend("project")}
}

// Generate creates a random graph through gds.beta.graph.generate.
func (r BetaGraphProcRunner) Generate(ctx context.Context, name string, nodeCount, averageDegree int64, config map[string]any) (*Graph, Row, error) {
	return r.generate(ctx, name, nodeCount, averageDegree, config)
}

// Child resolves project and generate.
func (r BetaGraphProcRunner) Child(segment string) (Namespace, error) {
	switch segment {
	case "project":
		return r.Project(), nil
	case "generate":
		return r.terminal(segment), nil
	}
	return nil, r.unknown(segment)
}

// Invoke fails: gds.beta.graph is a namespace.
func (r BetaGraphProcRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}

// BetaGraphProjectRunner is gds.beta.graph.project. Only its subgraph
// variant is a procedure.
type BetaGraphProjectRunner struct {
	node
}

// Subgraph projects a filtered copy of an existing graph.
func (r BetaGraphProjectRunner) Subgraph(ctx context.Context, name string, from GraphRef, nodeFilter, relationshipFilter string, config map[string]any) (*Graph, Row, error) {
	procedure := r.procedure("subgraph")
	fromName, err := graphName(procedure, from)
	if err != nil {
		return nil, nil, err
	}
	row, err := r.s.callRow(ctx, shapeScalar, procedure, []query.Arg{
		query.Param("graph_name", name),
		query.Param("from_graph_name", fromName),
		query.Param("node_filter", nodeFilter),
		query.Param("relationship_filter", relationshipFilter),
	}, orEmpty(config))
	if err != nil {
		return nil, nil, err
	}
	return newGraph(name, r.s), row, nil
}

// Child resolves subgraph.
func (r BetaGraphProjectRunner) Child(segment string) (Namespace, error) {
	if segment == "subgraph" {
		return r.terminal(segment), nil
	}
	return nil, r.unknown(segment)
}

// Invoke fails: gds.beta.graph.project is a namespace.
func (r BetaGraphProjectRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}

// AlphaEndpoints is the gds.alpha tier.
type AlphaEndpoints struct {
	node
}

// Graph returns gds.alpha.graph.
func (a AlphaEndpoints) Graph() AlphaGraphProcRunner {
	return AlphaGraphProcRunner{node: a.extend("graph")}
}

// System returns the system endpoints of the alpha tier.
func (a AlphaEndpoints) System() SystemEndpoints {
	return SystemEndpoints{node: a.node}
}

// Child resolves graph and the system endpoints of gds.alpha.
func (a AlphaEndpoints) Child(segment string) (Namespace, error) {
	switch segment {
	case "graph":
		return a.Graph(), nil
	case "system":
		return a.System(), nil
	}
	return a.System().Child(segment)
}

// Invoke fails: gds.alpha is a namespace.
func (a AlphaEndpoints) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, a.uncallable()
}

// AlphaGraphProcRunner is gds.alpha.graph.
type AlphaGraphProcRunner struct {
	node
}

// Construct is GraphProcRunner.Construct reached through the alpha tier. Both
// share one compatibility declaration.
func (r AlphaGraphProcRunner) Construct(ctx context.Context, name string, nodes, relationships []arrow.Record, concurrency int) (*Graph, error) {
	return r.construct(ctx, name, nodes, relationships, concurrency)
}

// Child resolves construct, which has no server procedure.
func (r AlphaGraphProcRunner) Child(segment string) (Namespace, error) {
	if segment == "construct" {
		return clientOnly{node: r.extend(segment), method: "AlphaGraphProcRunner.Construct"}, nil
	}
	return nil, r.unknown(segment)
}

// Invoke fails: gds.alpha.graph is a namespace.
func (r AlphaGraphProcRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}
