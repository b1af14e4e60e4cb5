// Package client is a fluent Go client for a graph data science procedure
// catalog running inside a graph database. Each method maps onto one server
// procedure: the client builds a parameterised CALL, runs it through a
// QueryRunner and shapes the returned table into rows, tables or handles.
//
//	gds, err := client.New(ctx, runner)
//	g, row, err := gds.Graph().Project().Call(ctx, "g", "Person", "KNOWS", nil)
//	props, err := gds.Graph().StreamNodeProperty(ctx, g, "score", nil, nil)
package client

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/23skdu/gdsclient/internal/query"
	"github.com/23skdu/gdsclient/internal/telemetry"
	"github.com/23skdu/gdsclient/internal/version"
)

// ServerVersion is the semantic version of the connected server.
type ServerVersion = version.ServerVersion

// ParseServerVersion parses versions such as "2.3.1" or "2.4.0-alpha01".
func ParseServerVersion(s string) (ServerVersion, error) {
	return version.Parse(s)
}

// Option configures a GraphDataScience client.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	version  *ServerVersion
	database string
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer that records one span per procedure call.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithServerVersion skips the initial gds.version() round trip.
func WithServerVersion(v ServerVersion) Option {
	return func(o *options) {
		o.version = &v
	}
}

// WithDatabase selects the database before the server version is fetched.
func WithDatabase(name string) Option {
	return func(o *options) {
		o.database = name
	}
}

// GraphDataScience is the root "gds" namespace.
type GraphDataScience struct {
	node
}

// New creates a client over runner. The server version is fetched once here
// and used for every compatibility check of the session.
func New(ctx context.Context, runner QueryRunner, opts ...Option) (*GraphDataScience, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = telemetry.Tracer()
	}
	if o.database != "" {
		runner.SetDatabase(o.database)
	}

	s := &session{
		runner: runner,
		gate:   defaultGate(),
		logger: o.logger,
		tracer: o.tracer,
	}
	if o.version != nil {
		s.version = *o.version
	} else {
		v, err := serverVersion(ctx, s)
		if err != nil {
			return nil, err
		}
		s.version = v
	}

	s.logger.Debug("Client ready",
		zap.String("server_version", s.version.String()),
		zap.String("database", runner.Database()))
	return &GraphDataScience{node: node{path: "gds", s: s}}, nil
}

// ServerVersion returns the version fetched when the client was created.
func (g *GraphDataScience) ServerVersion() ServerVersion {
	return g.s.version
}

// Version asks the server for its current version string.
func (g *GraphDataScience) Version(ctx context.Context) (string, error) {
	c, err := query.Function("gds.version", "version", nil)
	if err != nil {
		return "", err
	}
	row, err := g.s.runShaped(ctx, c, shapeScalar)
	if err != nil {
		return "", err
	}
	raw, err := requireColumn(c.Procedure, row, "version")
	if err != nil {
		return "", err
	}
	v, _ := raw.(string)
	return v, nil
}

// RunCypher runs an arbitrary Cypher query through the session runner.
func (g *GraphDataScience) RunCypher(ctx context.Context, cypher string, params map[string]any) (*Table, error) {
	if params == nil {
		params = map[string]any{}
	}
	return g.s.run(ctx, query.Call{Procedure: "cypher", Query: cypher, Params: params})
}

// Database returns the database procedures run against.
func (g *GraphDataScience) Database() string {
	return g.s.runner.Database()
}

// SetDatabase switches the database for every node and handle of this client.
func (g *GraphDataScience) SetDatabase(name string) {
	g.s.runner.SetDatabase(name)
}

// Runner returns the underlying query runner.
func (g *GraphDataScience) Runner() QueryRunner {
	return g.s.runner
}

// Close closes the runner.
func (g *GraphDataScience) Close(ctx context.Context) error {
	return g.s.runner.Close(ctx)
}

// Graph returns the gds.graph catalog.
func (g *GraphDataScience) Graph() GraphProcRunner {
	return GraphProcRunner{node: g.extend("graph")}
}

// Model returns the gds.model catalog.
func (g *GraphDataScience) Model() ModelProcRunner {
	return ModelProcRunner{modelCatalog{node: g.extend("model"), method: MethodModelCatalog}}
}

// Beta returns the gds.beta tier.
func (g *GraphDataScience) Beta() BetaEndpoints {
	return BetaEndpoints{node: g.extend("beta")}
}

// Alpha returns the gds.alpha tier.
func (g *GraphDataScience) Alpha() AlphaEndpoints {
	return AlphaEndpoints{node: g.extend("alpha")}
}

// System returns the system endpoints of the stable tier.
func (g *GraphDataScience) System() SystemEndpoints {
	return SystemEndpoints{node: g.node}
}

// Debug returns gds.debug.
func (g *GraphDataScience) Debug() DebugProcRunner {
	return DebugProcRunner{node: g.extend("debug")}
}

// Resolve walks a dot-separated path starting with "gds".
func (g *GraphDataScience) Resolve(path string) (Namespace, error) {
	return Resolve(g, path)
}

// Child resolves a sub-namespace of gds.
func (g *GraphDataScience) Child(segment string) (Namespace, error) {
	switch segment {
	case "graph":
		return g.Graph(), nil
	case "model":
		return g.Model(), nil
	case "beta":
		return g.Beta(), nil
	case "alpha":
		return g.Alpha(), nil
	case "system":
		return g.System(), nil
	case "gnn":
		return g.GNN(), nil
	}
	return g.System().Child(segment)
}

// Invoke fails: gds itself is not a procedure.
func (g *GraphDataScience) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, g.uncallable()
}
