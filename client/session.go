package client

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/logging"
	"github.com/23skdu/gdsclient/internal/metrics"
	"github.com/23skdu/gdsclient/internal/query"
	"github.com/23skdu/gdsclient/internal/telemetry"
	"github.com/23skdu/gdsclient/internal/version"
)

// Method ids of version gated operations. They name the operation, so every
// namespace chain reaching it shares the declaration.
const (
	MethodConstruct                  = "graph.construct"
	MethodRemoveNodePropertiesLabels = "graph.removeNodeProperties.labels"
	MethodModelCatalog               = "model.catalog"
)

func defaultGate() *version.Gate {
	return version.NewGate(map[string]version.Range{
		MethodConstruct:                  version.AtLeast(version.New(2, 1, 0)),
		MethodRemoveNodePropertiesLabels: version.Below(version.New(2, 1, 0)),
		MethodModelCatalog:               version.AtLeast(version.New(2, 5, 0)),
	})
}

// session is shared by every node and handle derived from one client. It is
// read-only after construction.
type session struct {
	runner  QueryRunner
	version version.ServerVersion
	gate    *version.Gate
	logger  *zap.Logger
	tracer  trace.Tracer
}

// require is the pre-call guard of gated operations.
func (s *session) require(method string) error {
	if err := s.gate.Check(method, s.version); err != nil {
		metrics.CompatibilityRejectionsTotal.WithLabelValues(method).Inc()
		return err
	}
	return nil
}

// run executes a built call. Backend failures are wrapped with the
// procedure and the parameter names; values are never logged.
func (s *session) run(ctx context.Context, c query.Call) (*Table, error) {
	ctx, span := s.tracer.Start(ctx, c.Procedure, trace.WithAttributes(
		telemetry.AttrProcedure.String(c.Procedure),
		telemetry.AttrDatabase.String(s.runner.Database()),
	))
	defer span.End()

	logger := logging.WithTrace(ctx, s.logger)
	start := time.Now()
	t, err := s.runner.RunQuery(ctx, c.Query, c.Params)
	elapsed := time.Since(start)
	metrics.ProcedureDurationSeconds.WithLabelValues(c.Procedure).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ProcedureCallsTotal.WithLabelValues(c.Procedure, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("Procedure call failed",
			zap.String("procedure", c.Procedure),
			zap.Strings("params", c.ParamNames()),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, gdserrors.WrapBackendError(err, c.Procedure, "query runner failed").
			WithContext("params", c.ParamNames()).
			WithContext("database", s.runner.Database())
	}

	metrics.ProcedureCallsTotal.WithLabelValues(c.Procedure, "success").Inc()
	metrics.ProcedureRowsTotal.WithLabelValues(c.Procedure).Add(float64(t.Len()))
	span.SetAttributes(telemetry.AttrRows.Int(t.Len()))
	logger.Debug("Procedure call",
		zap.String("procedure", c.Procedure),
		zap.Strings("params", c.ParamNames()),
		zap.Int("rows", t.Len()),
		zap.Duration("duration", elapsed))
	return t, nil
}

// call builds and runs procedure with named arguments.
func (s *session) call(ctx context.Context, procedure string, args []query.Arg, config map[string]any) (*Table, error) {
	c, err := query.Build(procedure, args, config)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, c)
}

// callRow builds and runs procedure and shapes the result into one row.
func (s *session) callRow(ctx context.Context, sh shape, procedure string, args []query.Arg, config map[string]any) (Row, error) {
	t, err := s.call(ctx, procedure, args, config)
	if err != nil {
		return nil, err
	}
	return shapeRow(procedure, sh, t)
}

// callYield runs procedure yielding only columns and shapes the result.
func (s *session) callYield(ctx context.Context, sh shape, procedure string, args []query.Arg, columns ...string) (Row, error) {
	c, err := query.Build(procedure, args, nil)
	if err != nil {
		return nil, err
	}
	c, err = c.Yield(columns...)
	if err != nil {
		return nil, err
	}
	return s.runShaped(ctx, c, sh)
}

// serverVersion asks the server for its version.
func serverVersion(ctx context.Context, s *session) (version.ServerVersion, error) {
	c, err := query.Function("gds.version", "version", nil)
	if err != nil {
		return version.ServerVersion{}, err
	}
	row, err := s.runShaped(ctx, c, shapeScalar)
	if err != nil {
		return version.ServerVersion{}, err
	}
	raw, err := requireColumn(c.Procedure, row, "version")
	if err != nil {
		return version.ServerVersion{}, err
	}
	str, _ := raw.(string)
	return version.Parse(str)
}

func (s *session) runShaped(ctx context.Context, c query.Call, sh shape) (Row, error) {
	t, err := s.run(ctx, c)
	if err != nil {
		return nil, err
	}
	return shapeRow(c.Procedure, sh, t)
}
