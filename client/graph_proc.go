package client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/query"
	"github.com/23skdu/gdsclient/internal/telemetry"
	"github.com/23skdu/gdsclient/internal/version"
)

// GraphProcRunner is the gds.graph catalog namespace.
type GraphProcRunner struct {
	node
}

// DropOptions are the optional arguments of Drop.
type DropOptions struct {
	// FailIfMissing makes dropping an absent graph an error.
	FailIfMissing bool
	// DBName drops the graph from another database.
	DBName string
	// Username drops a graph owned by another user (admin only).
	Username string
}

// Project returns gds.graph.project.
func (r GraphProcRunner) Project() GraphProjectRunner {
	return GraphProjectRunner{node: r.extend("project")}
}

// Export returns gds.graph.export.
func (r GraphProcRunner) Export() GraphExportRunner {
	return GraphExportRunner{node: r.extend("export")}
}

// List returns the catalog entry of g, or of every graph when g is nil.
func (r GraphProcRunner) List(ctx context.Context, g GraphRef) (*Table, error) {
	procedure := r.procedure("list")
	var args []query.Arg
	if g != nil {
		name, err := graphName(procedure, g)
		if err != nil {
			return nil, err
		}
		args = append(args, query.Param("graph_name", name))
	}
	return r.s.call(ctx, procedure, args, nil)
}

// Exists returns the single row {graphName, database, exists} for name.
func (r GraphProcRunner) Exists(ctx context.Context, name string) (Row, error) {
	return r.s.callRow(ctx, shapeScalar, r.procedure("exists"),
		[]query.Arg{query.Param("graph_name", name)}, nil)
}

// Get returns a handle to an existing graph. It fails with a NotFound error,
// and builds no handle, when the graph is absent from the current database.
func (r GraphProcRunner) Get(ctx context.Context, name string) (*Graph, error) {
	row, err := r.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists, _ := row.GetBool("exists"); !exists {
		return nil, gdserrors.NewNotFoundError(r.procedure("get"),
			fmt.Sprintf("no projected graph named '%s' exists in current database '%s'", name, r.s.runner.Database())).
			WithContext("graph", name)
	}
	return newGraph(name, r.s), nil
}

// Drop removes g from the catalog. When the server returns no row, which
// happens for an absent graph without FailIfMissing, the row is nil.
func (r GraphProcRunner) Drop(ctx context.Context, g GraphRef, opts DropOptions) (Row, error) {
	procedure := r.procedure("drop")
	name, err := graphName(procedure, g)
	if err != nil {
		return nil, err
	}
	args := []query.Arg{
		query.Param("graph_name", name),
		query.Param("fail_if_missing", opts.FailIfMissing),
		query.Param("db_name", opts.DBName),
	}
	if opts.Username != "" {
		args = append(args, query.Param("username", opts.Username))
	}
	return r.s.callRow(ctx, shapeOptionalScalar, procedure, args, nil)
}

func (r GraphProcRunner) handleProperties(ctx context.Context, procedure string, g GraphRef, properties any, entities []string, config map[string]any) (*Table, error) {
	name, err := graphName(procedure, g)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		entities = []string{"*"}
	}
	return r.s.call(ctx, procedure, []query.Arg{
		query.Param("graph_name", name),
		query.Param("properties", properties),
		query.Param("entities", entities),
	}, orEmpty(config))
}

// StreamNodeProperty streams one node property. Empty labels mean all labels.
func (r GraphProcRunner) StreamNodeProperty(ctx context.Context, g GraphRef, property string, labels []string, config map[string]any) (*Table, error) {
	return r.handleProperties(ctx, r.procedure("streamNodeProperty"), g, property, labels, config)
}

// StreamNodeProperties streams several node properties.
func (r GraphProcRunner) StreamNodeProperties(ctx context.Context, g GraphRef, properties, labels []string, config map[string]any) (*Table, error) {
	return r.handleProperties(ctx, r.procedure("streamNodeProperties"), g, properties, labels, config)
}

// StreamRelationshipProperty streams one relationship property. Empty types
// mean all relationship types.
func (r GraphProcRunner) StreamRelationshipProperty(ctx context.Context, g GraphRef, property string, types []string, config map[string]any) (*Table, error) {
	return r.handleProperties(ctx, r.procedure("streamRelationshipProperty"), g, property, types, config)
}

// StreamRelationshipProperties streams several relationship properties.
func (r GraphProcRunner) StreamRelationshipProperties(ctx context.Context, g GraphRef, properties, types []string, config map[string]any) (*Table, error) {
	return r.handleProperties(ctx, r.procedure("streamRelationshipProperties"), g, properties, types, config)
}

// WriteNodeProperties writes in-memory node properties back to the database.
func (r GraphProcRunner) WriteNodeProperties(ctx context.Context, g GraphRef, properties, labels []string, config map[string]any) (Row, error) {
	procedure := r.procedure("writeNodeProperties")
	t, err := r.handleProperties(ctx, procedure, g, properties, labels, config)
	if err != nil {
		return nil, err
	}
	return shapeRow(procedure, shapeScalar, t)
}

// WriteRelationship writes a relationship type, optionally with one property,
// back to the database.
func (r GraphProcRunner) WriteRelationship(ctx context.Context, g GraphRef, relationshipType, relationshipProperty string, config map[string]any) (Row, error) {
	procedure := r.procedure("writeRelationship")
	name, err := graphName(procedure, g)
	if err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, procedure, []query.Arg{
		query.Param("graph_name", name),
		query.Param("relationship_type", relationshipType),
		query.Param("relationship_property", relationshipProperty),
	}, orEmpty(config))
}

// RemoveNodeProperties removes node properties from the in-memory graph.
// Servers before 2.1.0 only know the labelled signature, so for them the call
// is sent with every label selected.
func (r GraphProcRunner) RemoveNodeProperties(ctx context.Context, g GraphRef, properties []string, config map[string]any) (Row, error) {
	if r.s.version.Less(version.New(2, 1, 0)) {
		return r.removeNodeProperties(ctx, g, properties, []string{"*"}, config)
	}
	procedure := r.procedure("removeNodeProperties")
	name, err := graphName(procedure, g)
	if err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, procedure, []query.Arg{
		query.Param("graph_name", name),
		query.Param("properties", properties),
	}, orEmpty(config))
}

// RemoveNodePropertiesWithLabels removes node properties from the given
// labels only. Servers from 2.1.0 on dropped this signature.
func (r GraphProcRunner) RemoveNodePropertiesWithLabels(ctx context.Context, g GraphRef, properties, labels []string, config map[string]any) (Row, error) {
	if err := r.s.require(MethodRemoveNodePropertiesLabels); err != nil {
		return nil, err
	}
	return r.removeNodeProperties(ctx, g, properties, labels, config)
}

func (r GraphProcRunner) removeNodeProperties(ctx context.Context, g GraphRef, properties, labels []string, config map[string]any) (Row, error) {
	procedure := r.procedure("removeNodeProperties")
	t, err := r.handleProperties(ctx, procedure, g, properties, labels, config)
	if err != nil {
		return nil, err
	}
	return shapeRow(procedure, shapeScalar, t)
}

// DeleteRelationships removes every relationship of one type from the graph.
func (r GraphProcRunner) DeleteRelationships(ctx context.Context, g GraphRef, relationshipType string) (Row, error) {
	procedure := r.procedure("deleteRelationships")
	name, err := graphName(procedure, g)
	if err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, procedure, []query.Arg{
		query.Param("graph_name", name),
		query.Param("relationship_type", relationshipType),
	}, nil)
}

// Generate creates a random graph named name.
func (r GraphProcRunner) Generate(ctx context.Context, name string, nodeCount, averageDegree int64, config map[string]any) (*Graph, Row, error) {
	return r.generate(ctx, name, nodeCount, averageDegree, config)
}

// Construct builds a graph from client-side node and relationship tables.
// Node tables need an int64 nodeId column, relationship tables int64
// sourceNodeId and targetNodeId columns. A concurrency of zero or less uses
// the number of CPUs.
func (r GraphProcRunner) Construct(ctx context.Context, name string, nodes, relationships []arrow.Record, concurrency int) (*Graph, error) {
	return r.construct(ctx, name, nodes, relationships, concurrency)
}

// Child resolves the sub-namespaces and procedures of gds.graph.
func (r GraphProcRunner) Child(segment string) (Namespace, error) {
	switch segment {
	case "project":
		return r.Project(), nil
	case "export":
		return r.Export(), nil
	case "list", "drop", "exists",
		"streamNodeProperty", "streamNodeProperties",
		"streamRelationshipProperty", "streamRelationshipProperties",
		"writeNodeProperties", "writeRelationship",
		"removeNodeProperties", "deleteRelationships", "generate":
		return r.terminal(segment), nil
	case "get":
		return clientOnly{node: r.extend(segment), method: "GraphProcRunner.Get"}, nil
	case "construct":
		return clientOnly{node: r.extend(segment), method: "GraphProcRunner.Construct"}, nil
	}
	return nil, r.unknown(segment)
}

// Invoke fails: gds.graph is a namespace.
func (r GraphProcRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}

func (n node) generate(ctx context.Context, name string, nodeCount, averageDegree int64, config map[string]any) (*Graph, Row, error) {
	row, err := n.s.callRow(ctx, shapeScalar, n.procedure("generate"), []query.Arg{
		query.Param("graph_name", name),
		query.Param("node_count", nodeCount),
		query.Param("average_degree", averageDegree),
	}, orEmpty(config))
	if err != nil {
		return nil, nil, err
	}
	return newGraph(name, n.s), row, nil
}

func (n node) construct(ctx context.Context, name string, nodes, relationships []arrow.Record, concurrency int) (*Graph, error) {
	operation := n.procedure("construct")
	if err := n.s.require(MethodConstruct); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, gdserrors.NewValidationError(operation, "graph name cannot be empty")
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	ctx, span := n.s.tracer.Start(ctx, operation, trace.WithAttributes(
		telemetry.AttrGraph.String(name),
		telemetry.AttrDatabase.String(n.s.runner.Database()),
	))
	defer span.End()

	constructor, err := n.s.runner.CreateGraphConstructor(name, concurrency)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, asBackendError(err, operation)
	}

	start := time.Now()
	if err := constructor.Run(ctx, nodes, relationships); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.s.logger.Warn("Graph construction failed",
			zap.String("graph", name),
			zap.Int("node_tables", len(nodes)),
			zap.Int("relationship_tables", len(relationships)),
			zap.Error(err))
		return nil, asBackendError(err, operation)
	}

	n.s.logger.Debug("Graph constructed",
		zap.String("graph", name),
		zap.Int("concurrency", concurrency),
		zap.Duration("duration", time.Since(start)))
	return newGraph(name, n.s), nil
}

// asBackendError keeps structured errors as they are and wraps anything
// else as a backend failure of operation.
func asBackendError(err error, operation string) error {
	if _, ok := gdserrors.TypeOf(err); ok {
		return err
	}
	return gdserrors.WrapBackendError(err, operation, "graph construction failed")
}

func orEmpty(config map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}
	return config
}
