package observability

import (
	"context"
	"log/slog"
	"testing"
)

// SetTestDebugLogging lowers the slog Default level to DEBUG until t completes.
func SetTestDebugLogging(t testing.TB) {
	prev := slog.SetLogLoggerLevel(slog.LevelDebug)
	if slog.LevelDebug == prev {
		return
	}
	t.Cleanup(func() { slog.SetLogLoggerLevel(prev) })
}

// TestContext returns the Context of t with a Logger writing DEBUG records to the test output.
func TestContext(t testing.TB) context.Context {
	hdlr := slog.NewTextHandler(t.Output(), &slog.HandlerOptions{Level: slog.LevelDebug})
	return SetObservability(t.Context(), &Observability{Logger: slog.New(hdlr)})
}
