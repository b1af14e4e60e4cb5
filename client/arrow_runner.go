package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/23skdu/gdsclient/internal/chunk"
	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/metrics"
	"github.com/23skdu/gdsclient/internal/middleware"
)

// DefaultMaxMessageSize bounds gRPC messages in both directions.
const DefaultMaxMessageSize = 1024 * 1024 * 100 // 100MB

// ArrowConfig configures the Arrow Flight endpoint of the server.
type ArrowConfig struct {
	Addr           string
	TLS            bool
	Username       string
	Password       string
	MaxMessageSize int
	// ChunkStrategy sizes upload batches. Defaults to chunk.NewDefaultStrategy.
	ChunkStrategy func() chunk.Strategy
	Logger        *zap.Logger
	DialOptions   []grpc.DialOption
}

// ArrowQueryRunner sends Cypher to a fallback runner and constructs graphs
// over Arrow Flight, streaming node and relationship tables directly into
// the server.
type ArrowQueryRunner struct {
	fallback QueryRunner
	client   flight.Client
	token    string
	chunks   func() chunk.Strategy
	logger   *zap.Logger
}

// NewArrowQueryRunner dials cfg.Addr. When a username is set the client
// authenticates once; the stream interceptor attaches the returned token to
// every later call.
func NewArrowQueryRunner(ctx context.Context, fallback QueryRunner, cfg ArrowConfig) (*ArrowQueryRunner, error) {
	if cfg.Addr == "" {
		return nil, gdserrors.NewConfigurationError("client.NewArrowQueryRunner", "arrow address cannot be empty")
	}
	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	r := &ArrowQueryRunner{
		fallback: fallback,
		chunks:   cfg.ChunkStrategy,
		logger:   cfg.Logger,
	}
	if r.chunks == nil {
		r.chunks = func() chunk.Strategy { return chunk.NewDefaultStrategy() }
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxSize),
			grpc.MaxCallSendMsgSize(maxSize),
		),
		grpc.WithChainStreamInterceptor(
			middleware.StreamClientInterceptor(func() string { return r.token }, r.logger)),
	}, cfg.DialOptions...)

	fc, err := flight.NewClientWithMiddleware(cfg.Addr, nil, nil, dialOpts...)
	if err != nil {
		return nil, gdserrors.WrapConfigurationError(err, "client.NewArrowQueryRunner",
			fmt.Sprintf("failed to dial %s", cfg.Addr))
	}
	r.client = fc

	if cfg.Username != "" {
		authCtx, err := fc.AuthenticateBasicToken(ctx, cfg.Username, cfg.Password)
		if err != nil {
			_ = fc.Close()
			return nil, gdserrors.WrapBackendError(err, "client.NewArrowQueryRunner", "arrow authentication failed")
		}
		if md, ok := metadata.FromOutgoingContext(authCtx); ok {
			if values := md.Get(middleware.AuthorizationHeader); len(values) > 0 {
				r.token = values[0]
			}
		}
	}
	return r, nil
}

// RunQuery delegates to the fallback runner.
func (r *ArrowQueryRunner) RunQuery(ctx context.Context, query string, params map[string]any) (*Table, error) {
	return r.fallback.RunQuery(ctx, query, params)
}

// Database delegates to the fallback runner.
func (r *ArrowQueryRunner) Database() string {
	return r.fallback.Database()
}

// SetDatabase delegates to the fallback runner.
func (r *ArrowQueryRunner) SetDatabase(name string) {
	r.fallback.SetDatabase(name)
}

// CreateGraphConstructor returns a constructor that uploads over Flight with
// up to concurrency parallel table streams.
func (r *ArrowQueryRunner) CreateGraphConstructor(graphName string, concurrency int) (GraphConstructor, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &arrowGraphConstructor{runner: r, graphName: graphName, concurrency: concurrency}, nil
}

// Close closes the Flight client and the fallback runner.
func (r *ArrowQueryRunner) Close(ctx context.Context) error {
	return errors.Join(r.client.Close(), r.fallback.Close(ctx))
}

// doAction sends a JSON encoded action and drains its results.
func (r *ArrowQueryRunner) doAction(ctx context.Context, actionType string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return gdserrors.WrapValidationError(err, actionType, "failed to encode action body")
	}

	start := time.Now()
	err = r.drainAction(ctx, &flight.Action{Type: actionType, Body: payload})
	observeFlight("DoAction", start, err)
	if err != nil {
		return gdserrors.WrapBackendError(err, actionType, "flight action failed")
	}
	return nil
}

func (r *ArrowQueryRunner) drainAction(ctx context.Context, action *flight.Action) error {
	stream, err := r.client.DoAction(ctx, action)
	if err != nil {
		return err
	}
	for {
		if _, err := stream.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// putTable streams one table through a single DoPut call. Batches keep the
// row order of rec.
func (r *ArrowQueryRunner) putTable(ctx context.Context, descriptor *flight.FlightDescriptor, entity string, rec arrow.Record) error {
	batches := chunk.Split(rec, r.chunks())
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	if len(batches) == 0 {
		return nil
	}

	start := time.Now()
	err := r.put(ctx, descriptor, rec.Schema(), batches)
	observeFlight("DoPut", start, err)
	if err != nil {
		return gdserrors.WrapBackendError(err, "DoPut", fmt.Sprintf("failed to upload %s table", entity))
	}

	metrics.ConstructBatchesTotal.WithLabelValues(entity).Add(float64(len(batches)))
	metrics.ConstructRowsTotal.WithLabelValues(entity).Add(float64(rec.NumRows()))
	return nil
}

func (r *ArrowQueryRunner) put(ctx context.Context, descriptor *flight.FlightDescriptor, schema *arrow.Schema, batches []arrow.Record) error {
	stream, err := r.client.DoPut(ctx)
	if err != nil {
		return err
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema))
	writer.SetFlightDescriptor(descriptor)
	for _, b := range batches {
		if err := writer.Write(b); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		if _, err := stream.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func observeFlight(method string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.FlightOperationsTotal.WithLabelValues(method, status).Inc()
	metrics.FlightDurationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
