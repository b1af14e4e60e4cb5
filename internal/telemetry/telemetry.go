// Package telemetry configures OpenTelemetry tracing for the client and
// exposes the tracer used around every procedure call.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer shared by the client packages.
const InstrumentationName = "github.com/23skdu/gdsclient"

// Span attribute keys recorded on procedure spans.
const (
	AttrProcedure = attribute.Key("gds.procedure")
	AttrDatabase  = attribute.Key("gds.database")
	AttrRows      = attribute.Key("gds.rows")
	AttrGraph     = attribute.Key("gds.graph")
)

var (
	tp   *sdktrace.TracerProvider
	once sync.Once
)

// Config holds configuration for telemetry.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string // OTLP gRPC endpoint, e.g. "localhost:4317"
	Insecure       bool   // plaintext OTLP connection
	UseStdout      bool   // export spans as JSON to Output
	Output         io.Writer
	SampleRatio    float64
}

// Enabled reports whether cfg selects an exporter.
func (c Config) Enabled() bool {
	return c.UseStdout || c.Endpoint != ""
}

// InitTracerProvider installs the global trace provider once per process.
// Without an exporter it leaves the no-op provider in place. The returned
// shutdown function flushes pending spans.
func InitTracerProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var err error
	once.Do(func() {
		if !cfg.Enabled() {
			return
		}

		var exporter sdktrace.SpanExporter
		exporter, err = newExporter(ctx, cfg)
		if err != nil {
			err = fmt.Errorf("failed to create exporter: %w", err)
			return
		}

		res, rErr := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(cfg.ServiceName),
				semconv.ServiceVersion(cfg.ServiceVersion),
			),
		)
		if rErr != nil {
			err = fmt.Errorf("failed to create resource: %w", rErr)
			return
		}

		ratio := cfg.SampleRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 1
		}

		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		)

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})

	if err != nil {
		return nil, err
	}

	if tp == nil {
		return func(_ context.Context) error { return nil }, nil
	}

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.UseStdout {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(out))
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

// Tracer returns the client tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
