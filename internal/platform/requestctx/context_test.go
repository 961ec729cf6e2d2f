package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if got := Logger(context.Background()); got != NoopLogger() {
		t.Fatalf("expected noop logger")
	}
	//nolint:staticcheck // nil context is tolerated on purpose
	if got := Logger(nil); got != NoopLogger() {
		t.Fatalf("expected noop logger for nil context")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatalf("expected stored logger")
	}
}

func TestAccessToken(t *testing.T) {
	if token := AccessToken(context.Background()); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	ctx := WithAccessToken(context.Background(), "jwt-token")
	if token := AccessToken(ctx); token != "jwt-token" {
		t.Fatalf("expected token, got %q", token)
	}
}
