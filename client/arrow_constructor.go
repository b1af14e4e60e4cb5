package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/gdsclient/internal/metrics"
)

// Flight actions of the graph import protocol.
const (
	ActionCreateGraph          = "CREATE_GRAPH"
	ActionNodeLoadDone         = "NODE_LOAD_DONE"
	ActionRelationshipLoadDone = "RELATIONSHIP_LOAD_DONE"
	ActionAbort                = "ABORT"
)

const abortTimeout = 30 * time.Second

// arrowGraphConstructor drives one import session: CREATE_GRAPH, node
// tables, NODE_LOAD_DONE, relationship tables, RELATIONSHIP_LOAD_DONE. The
// graph becomes visible with the last action. Any failure after
// CREATE_GRAPH sends ABORT exactly once.
type arrowGraphConstructor struct {
	runner      *ArrowQueryRunner
	graphName   string
	concurrency int
	abortOnce   sync.Once
}

func (c *arrowGraphConstructor) Run(ctx context.Context, nodes, relationships []arrow.Record) error {
	if err := validateConstructTables(nodes, relationships); err != nil {
		return err
	}

	if err := c.runner.doAction(ctx, ActionCreateGraph, map[string]any{
		"name":          c.graphName,
		"database_name": c.runner.Database(),
		"concurrency":   c.concurrency,
	}); err != nil {
		return err
	}

	if err := c.load(ctx, nodes, relationships); err != nil {
		c.abort(ctx, err)
		return err
	}
	return nil
}

func (c *arrowGraphConstructor) load(ctx context.Context, nodes, relationships []arrow.Record) error {
	name := map[string]any{"name": c.graphName}

	if err := c.upload(ctx, "node", nodes); err != nil {
		return err
	}
	if err := c.runner.doAction(ctx, ActionNodeLoadDone, name); err != nil {
		return err
	}
	if err := c.upload(ctx, "relationship", relationships); err != nil {
		return err
	}
	return c.runner.doAction(ctx, ActionRelationshipLoadDone, name)
}

// upload streams tables with at most c.concurrency streams in flight. The
// batches of one table stay in order within their stream.
func (c *arrowGraphConstructor) upload(ctx context.Context, entity string, tables []arrow.Record) error {
	cmd, err := json.Marshal(map[string]any{"name": c.graphName, "entity_type": entity})
	if err != nil {
		return err
	}
	descriptor := &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: cmd}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, rec := range tables {
		g.Go(func() error {
			return c.runner.putTable(gctx, descriptor, entity, rec)
		})
	}
	return g.Wait()
}

// abort runs even when ctx is already cancelled.
func (c *arrowGraphConstructor) abort(ctx context.Context, cause error) {
	c.abortOnce.Do(func() {
		metrics.ConstructAbortsTotal.Inc()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
		defer cancel()
		if err := c.runner.doAction(actx, ActionAbort, map[string]any{"name": c.graphName}); err != nil {
			c.runner.logger.Warn("Failed to abort graph import",
				zap.String("graph", c.graphName),
				zap.NamedError("cause", cause),
				zap.Error(err))
		}
	})
}
