package client

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// QueryRunner executes Cypher against a database. It is the only component
// that talks to the server; everything in this package builds queries and
// shapes the tables it returns.
type QueryRunner interface {
	// RunQuery executes query with params bound and collects the full result.
	RunQuery(ctx context.Context, query string, params map[string]any) (*Table, error)
	// Database returns the database queries run against. Empty means the
	// server default.
	Database() string
	SetDatabase(name string)
	// CreateGraphConstructor opens a bulk loading session that makes a graph
	// named graphName visible once Run succeeds.
	CreateGraphConstructor(graphName string, concurrency int) (GraphConstructor, error)
	Close(ctx context.Context) error
}

// GraphConstructor uploads node and relationship tables for one graph. Run
// either makes the graph visible under its name or leaves no graph behind.
type GraphConstructor interface {
	Run(ctx context.Context, nodes, relationships []arrow.Record) error
}
