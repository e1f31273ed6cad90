// Package observability carries the signer loggers in a context.Context.
//
// Packages never hold a logger of their own, they log through the Context of the call:
//
//	observability.GetObservability(ctx).Log().Info("round opened")
package observability

import (
	"context"
	"log/slog"
)

// observabilityKey locates the *Observability of a Context.
type observabilityKey struct{}

var noopLogger = slog.New(slog.DiscardHandler)

// Observability holds the Logger of a call tree.
// nil *Observability are safe to use.
type Observability struct {
	Logger *slog.Logger
}

// Log returns inner Logger or slog.Default().
func (self *Observability) Log() *slog.Logger {
	if nil == self || nil == self.Logger {
		return slog.Default()
	}
	return self.Logger
}

// GetObservability returns the Observability set on ctx, nil if there is none.
func GetObservability(ctx context.Context) *Observability {
	obs, _ := ctx.Value(observabilityKey{}).(*Observability)
	return obs
}

// SetObservability returns a child of ctx carrying obs.
func SetObservability(ctx context.Context, obs *Observability) context.Context {
	return context.WithValue(ctx, observabilityKey{}, obs)
}

// With returns a child of ctx whose Logger adds args to every record.
func With(ctx context.Context, args ...any) context.Context {
	return SetObservability(ctx, &Observability{Logger: GetObservability(ctx).Log().With(args...)})
}

// NoopLogger returns a Logger that discards every record.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// Quiet returns a child of ctx whose Logger discards every record.
func Quiet(ctx context.Context) context.Context {
	return SetObservability(ctx, &Observability{Logger: noopLogger})
}
