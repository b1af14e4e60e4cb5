// Package middleware holds the gRPC client interceptors of the Arrow Flight
// connection.
package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthorizationHeader carries the bearer token returned by the Flight handshake.
const AuthorizationHeader = "authorization"

// TokenSource returns the current authorization value, or "" before the
// handshake has completed.
type TokenSource func() string

// StreamClientInterceptor attaches the authorization token and the trace
// context of ctx to every Flight stream. Streams that fail to open are
// logged with their gRPC status code.
func StreamClientInterceptor(token TokenSource, logger *zap.Logger) grpc.StreamClientInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx = outgoing(ctx, token)
		cs, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			logger.Warn("Flight stream failed to open",
				zap.String("method", method),
				zap.String("code", status.Code(err).String()),
				zap.Error(err))
		}
		return cs, err
	}
}

func outgoing(ctx context.Context, token TokenSource) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if token != nil {
		if t := token(); t != "" && len(md.Get(AuthorizationHeader)) == 0 {
			md.Set(AuthorizationHeader, t)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, metadataCarrier(md))
	return metadata.NewOutgoingContext(ctx, md)
}

// metadataCarrier adapts gRPC metadata to the otel propagation API.
type metadataCarrier metadata.MD

var _ propagation.TextMapCarrier = metadataCarrier{}

func (c metadataCarrier) Get(key string) string {
	values := metadata.MD(c).Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
