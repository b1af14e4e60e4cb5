package client

import (
	"context"

	"github.com/23skdu/gdsclient/internal/query"
)

// GraphExportRunner is gds.graph.export, which writes a graph into a new
// database, and the parent of the csv variant.
type GraphExportRunner struct {
	node
}

// Call exports g into the database named by the dbName config key.
func (r GraphExportRunner) Call(ctx context.Context, g GraphRef, config map[string]any) (Row, error) {
	return r.export(ctx, r.path, g, config)
}

// CSV exports g into CSV files below the server's export directory.
func (r GraphExportRunner) CSV(ctx context.Context, g GraphRef, config map[string]any) (Row, error) {
	return r.export(ctx, r.procedure("csv"), g, config)
}

func (r GraphExportRunner) export(ctx context.Context, procedure string, g GraphRef, config map[string]any) (Row, error) {
	name, err := graphName(procedure, g)
	if err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, procedure,
		[]query.Arg{query.Param("graph_name", name)}, orEmpty(config))
}

// Child resolves csv.
func (r GraphExportRunner) Child(segment string) (Namespace, error) {
	if segment == "csv" {
		return r.terminal(segment), nil
	}
	return nil, r.unknown(segment)
}

// Invoke runs gds.graph.export with positional arguments.
func (r GraphExportRunner) Invoke(ctx context.Context, args []any, config map[string]any) (*Table, error) {
	return r.invoke(ctx, args, config)
}
