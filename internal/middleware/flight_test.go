package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// capture returns a streamer that records the outgoing metadata of its call.
func capture(md *metadata.MD, err error) grpc.Streamer {
	return func(ctx context.Context, _ *grpc.StreamDesc, _ *grpc.ClientConn, _ string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
		*md, _ = metadata.FromOutgoingContext(ctx)
		return nil, err
	}
}

func TestStreamClientInterceptor_Token(t *testing.T) {
	token := ""
	interceptor := StreamClientInterceptor(func() string { return token }, nil)

	var md metadata.MD
	_, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/arrow.flight.protocol.FlightService/Handshake", capture(&md, nil))
	require.NoError(t, err)
	assert.Empty(t, md.Get(AuthorizationHeader))

	token = "Bearer abc"
	_, err = interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/arrow.flight.protocol.FlightService/DoPut", capture(&md, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer abc"}, md.Get(AuthorizationHeader))
}

func TestStreamClientInterceptor_KeepsExistingMetadata(t *testing.T) {
	interceptor := StreamClientInterceptor(func() string { return "Bearer new" }, nil)
	ctx := metadata.AppendToOutgoingContext(context.Background(),
		AuthorizationHeader, "Bearer explicit", "x-request", "1")

	var md metadata.MD
	_, err := interceptor(ctx, &grpc.StreamDesc{}, nil, "/arrow.flight.protocol.FlightService/DoAction", capture(&md, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer explicit"}, md.Get(AuthorizationHeader))
	assert.Equal(t, []string{"1"}, md.Get("x-request"))

	original, _ := metadata.FromOutgoingContext(ctx)
	assert.Len(t, original.Get(AuthorizationHeader), 1, "the caller's metadata must not be modified")
}

func TestStreamClientInterceptor_TraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var md metadata.MD
	interceptor := StreamClientInterceptor(nil, nil)
	_, err := interceptor(ctx, &grpc.StreamDesc{}, nil, "/arrow.flight.protocol.FlightService/DoPut", capture(&md, nil))
	require.NoError(t, err)

	traceparent := md.Get("traceparent")
	require.Len(t, traceparent, 1)
	assert.Equal(t, "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01", traceparent[0])
}

func TestStreamClientInterceptor_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	interceptor := StreamClientInterceptor(nil, zap.New(core))

	var md metadata.MD
	unavailable := status.Error(codes.Unavailable, "connection refused")
	_, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/arrow.flight.protocol.FlightService/DoAction", capture(&md, unavailable))
	assert.True(t, errors.Is(err, unavailable))

	entries := logs.FilterMessage("Flight stream failed to open").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/arrow.flight.protocol.FlightService/DoAction", fields["method"])
	assert.Equal(t, "Unavailable", fields["code"])
}
