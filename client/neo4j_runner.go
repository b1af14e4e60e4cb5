package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// Neo4jQueryRunner runs queries over Bolt with the official Neo4j driver.
// Each query uses its own auto-commit session on the selected database.
type Neo4jQueryRunner struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger

	mu       sync.RWMutex
	database string
}

// NewNeo4jQueryRunner wraps an existing driver. The runner owns the driver
// and closes it on Close.
func NewNeo4jQueryRunner(driver neo4j.DriverWithContext, database string, logger *zap.Logger) *Neo4jQueryRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Neo4jQueryRunner{driver: driver, database: database, logger: logger}
}

// DialNeo4j connects to uri with basic authentication and verifies the
// connection before returning.
func DialNeo4j(ctx context.Context, uri, username, password, database string, logger *zap.Logger) (*Neo4jQueryRunner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, gdserrors.WrapConfigurationError(err, "client.DialNeo4j",
			fmt.Sprintf("failed to create driver for %s", uri))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, gdserrors.WrapBackendError(err, "client.DialNeo4j",
			fmt.Sprintf("failed to connect to %s", uri))
	}
	return NewNeo4jQueryRunner(driver, database, logger), nil
}

// RunQuery runs query in an auto-commit session and collects every record.
func (r *Neo4jQueryRunner) RunQuery(ctx context.Context, query string, params map[string]any) (*Table, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.Database(),
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			r.logger.Warn("Failed to close session", zap.Error(err))
		}
	}()

	res, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	keys, err := res.Keys()
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = rec.Values
	}
	return NewTable(keys, rows)
}

// Database returns the selected database; empty means the server default.
func (r *Neo4jQueryRunner) Database() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.database
}

// SetDatabase selects the database for subsequent queries.
func (r *Neo4jQueryRunner) SetDatabase(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.database = name
}

// CreateGraphConstructor returns a constructor that projects the graph with a
// single Cypher aggregation query.
func (r *Neo4jQueryRunner) CreateGraphConstructor(graphName string, concurrency int) (GraphConstructor, error) {
	return &cypherGraphConstructor{runner: r, graphName: graphName, concurrency: concurrency}, nil
}

// Close closes the driver.
func (r *Neo4jQueryRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
