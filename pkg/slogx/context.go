package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRunID attaches a run identifier to the context logger. Load-test and
// workflow runs use it so every line can be tied back to a stored run.
func WithRunID(ctx context.Context, runID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("run_id", runID))
}
