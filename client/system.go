package client

import (
	"context"

	"github.com/23skdu/gdsclient/internal/query"
)

// SystemEndpoints groups the progress, monitoring and debug procedures of a
// tier. The server catalog has no "system" segment, so the group shares the
// path of its tier: gds.listProgress, gds.alpha.systemMonitor and so on.
type SystemEndpoints struct {
	node
}

// ListProgress lists the progress of running jobs, or of one job when jobID
// is non-empty.
func (e SystemEndpoints) ListProgress(ctx context.Context, jobID string) (*Table, error) {
	var args []query.Arg
	if jobID != "" {
		args = append(args, query.Param("job_id", jobID))
	}
	return e.s.call(ctx, e.procedure("listProgress"), args, nil)
}

// SystemMonitor returns the single row of resource usage the server reports.
func (e SystemEndpoints) SystemMonitor(ctx context.Context) (Row, error) {
	return e.s.callRow(ctx, shapeScalar, e.procedure("systemMonitor"), nil, nil)
}

// Debug returns the debug procedures of this tier.
func (e SystemEndpoints) Debug() DebugProcRunner {
	return DebugProcRunner{node: e.extend("debug")}
}

// Child resolves debug, listProgress and systemMonitor.
func (e SystemEndpoints) Child(segment string) (Namespace, error) {
	switch segment {
	case "debug":
		return e.Debug(), nil
	case "listProgress", "systemMonitor":
		return e.terminal(segment), nil
	}
	return nil, e.unknown(segment)
}

// Invoke fails: the system group is not a procedure.
func (e SystemEndpoints) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, e.uncallable()
}

// DebugProcRunner is the <tier>.debug namespace.
type DebugProcRunner struct {
	node
}

// SysInfo returns the key/value rows describing the server environment.
func (d DebugProcRunner) SysInfo(ctx context.Context) (*Table, error) {
	return d.s.call(ctx, d.procedure("sysInfo"), nil, nil)
}

// Child resolves sysInfo.
func (d DebugProcRunner) Child(segment string) (Namespace, error) {
	if segment == "sysInfo" {
		return d.terminal(segment), nil
	}
	return nil, d.unknown(segment)
}

// Invoke fails: debug is a namespace.
func (d DebugProcRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, d.uncallable()
}

// SysInfoMap folds the key/value rows returned by SysInfo into a map.
func SysInfoMap(t *Table) map[string]any {
	out := make(map[string]any, t.Len())
	for _, row := range t.Rows() {
		key, ok := row.GetString("key")
		if !ok {
			continue
		}
		out[key] = row["value"]
	}
	return out
}
