package slogx

import (
	"context"
	"log/slog"
)

// HeaderRequestID carries the request id across process boundaries.
const HeaderRequestID = "X-Request-ID"

type (
	loggerKey    struct{}
	requestIDKey struct{}
)

// WithContext returns ctx carrying logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// Ensure attaches logger to ctx unless ctx already carries one.
func Ensure(ctx context.Context, logger *slog.Logger) context.Context {
	if _, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok || logger == nil {
		return ctx
	}
	return WithContext(ctx, logger)
}

// WithRequestID records reqID in ctx and tags the context logger with it.
// Outbound requests made with the returned context reuse the id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, reqID)
	return WithContext(ctx, FromContext(ctx).With("req_id", reqID))
}

// RequestID returns the id recorded by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
