// Package logging builds the logr.Logger used by every component and carries it
// through contexts.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imamik/rsjoin/internal/cluster"
)

// Options configures the zap backend.
type Options struct {
	// Development switches to console encoding with stack traces on warnings.
	Development bool
	// Verbosity enables V(n) logs up to n. Poll ticks are logged at V(1).
	Verbosity int
}

// New returns a logr.Logger backed by zap. Output is JSON on stderr unless
// Development is set.
func New(opts Options) (logr.Logger, error) {
	zl, err := zapConfig(opts).Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// FromContext returns the logger stored in ctx, or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}

// IntoContext stores logger in ctx.
func IntoContext(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// WithCluster adds the cluster identity keys to the logger in ctx.
func WithCluster(ctx context.Context, id cluster.Identity) (context.Context, logr.Logger) {
	logger := FromContext(ctx).WithValues(
		"project", id.Project,
		"environment", id.Environment,
		"role", id.Role,
	)
	return IntoContext(ctx, logger), logger
}

// zapConfig keeps every entry. Poll ticks repeat the same message and would
// otherwise be sampled away.
func zapConfig(opts Options) zap.Config {
	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Verbosity))
	cfg.Sampling = nil
	return cfg
}
