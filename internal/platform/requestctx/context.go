// Package requestctx carries per-request values that cross package boundaries, such as
// the request-scoped logger and the signed-in admin's access token.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey      struct{}
	accessTokenKey struct{}
	traceKey       struct{}
)

// TraceInfo identifies the span serving the request.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

var nop = zap.NewNop()

// WithLogger returns ctx carrying logger; nil stores the shared no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return context.WithValue(orBackground(ctx), loggerKey{}, logger)
}

// Logger returns the logger on ctx, or the no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return nop
}

// NoopLogger is the logger Logger falls back to.
func NoopLogger() *zap.Logger { return nop }

// WithAccessToken makes remote writes run as the signed-in admin rather than the anonymous key.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(orBackground(ctx), accessTokenKey{}, token)
}

// AccessToken returns the admin bearer token, or "".
func AccessToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// WithTrace stores the serving span's identifiers on ctx.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(orBackground(ctx), traceKey{}, info)
}

// Trace returns the identifiers stored by WithTrace.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	if !ok || info.TraceID == "" {
		return TraceInfo{}, false
	}
	return info, true
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
