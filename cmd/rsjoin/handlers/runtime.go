// Package handlers contains the business logic behind each rsjoin command.
//
// Every lambda command loads the configuration, builds the backends it was
// configured for and hands a handler to the Lambda runtime. Backend
// constructors are package variables so tests can replace them.
package handlers

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-logr/logr"

	"github.com/imamik/rsjoin/internal/config"
	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/gate"
	"github.com/imamik/rsjoin/internal/journal"
	"github.com/imamik/rsjoin/internal/logging"
	"github.com/imamik/rsjoin/internal/metrics"
	awsInternal "github.com/imamik/rsjoin/internal/platform/aws"
	"github.com/imamik/rsjoin/internal/platform/consul"
	redisInternal "github.com/imamik/rsjoin/internal/platform/redis"
	"github.com/imamik/rsjoin/internal/platform/s3"
	"github.com/imamik/rsjoin/internal/registry"
	"github.com/imamik/rsjoin/internal/util/retry"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadDotEnv loads .env files for local runs.
	loadDotEnv = config.LoadDotEnv

	// loadConfig loads the configuration file and environment.
	loadConfig = config.Load

	// newLogger builds the process logger.
	newLogger = logging.New

	// loadClients resolves AWS credentials and builds service clients.
	loadClients = func(ctx context.Context, region string) (*awsInternal.Clients, error) {
		return awsInternal.LoadClients(ctx, region)
	}

	// startLambda hands a handler to the Lambda runtime. It does not return.
	startLambda = func(handler any) {
		lambda.Start(handler)
	}

	// serveMetrics runs the metrics listener.
	serveMetrics = metrics.Serve
)

// Runtime is the configuration and clients shared by every handler.
type Runtime struct {
	Config  *config.Config
	Logger  logr.Logger
	Clients *awsInternal.Clients
}

// setup loads configuration for component, validates it and builds the
// logger and AWS clients. The returned context carries the logger.
func setup(ctx context.Context, configPath string, component config.Component) (context.Context, *Runtime, error) {
	if err := loadDotEnv(".env"); err != nil {
		return ctx, nil, err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return ctx, nil, err
	}
	if err := cfg.ValidateFor(component); err != nil {
		return ctx, nil, err
	}

	verbosity := 0
	if cfg.Debug {
		verbosity = 1
	}
	logger, err := newLogger(logging.Options{Verbosity: verbosity})
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger = logger.WithValues("component", string(component))
	ctx = logging.IntoContext(ctx, logger)

	clients, err := loadClients(ctx, cfg.Region)
	if err != nil {
		return ctx, nil, err
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := serveMetrics(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error(err, "metrics listener stopped")
			}
		}()
	}

	return ctx, &Runtime{Config: cfg, Logger: logger, Clients: clients}, nil
}

// newRegistry builds the configured registry backend.
func newRegistry(rt *Runtime) (registry.Store, error) {
	cfg := rt.Config
	switch cfg.Registry.Backend {
	case config.RegistrySSM, "":
		return awsInternal.NewParameterStore(rt.Clients.SSM,
			awsInternal.WithPutRetries(cfg.Timeouts.RetryMaxAttempts, cfg.Timeouts.RetryInitialDelay),
		), nil
	case config.RegistryConsul:
		return consul.NewClient(cfg.Registry.ConsulAddr)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// newOracle builds the configured run oracle.
func newOracle(rt *Runtime) (gate.Oracle, error) {
	cfg := rt.Config
	switch cfg.Oracle.Backend {
	case config.OracleStepFunctions, "":
		return awsInternal.NewOracle(rt.Clients.SFN, cfg.Oracle.StateMachineARN), nil
	case config.OracleRedis:
		client := redisInternal.NewClient(cfg.Oracle.RedisAddr, cfg.Oracle.RedisDB)
		return redisInternal.NewLeaseOracle(client, redisInternal.WithTTL(cfg.Timeouts.LeaseTTL)), nil
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Oracle.Backend)
	}
}

// newJournal returns the run journal, or journal.Discard when none is set.
func newJournal(ctx context.Context, rt *Runtime) (journal.Sink, error) {
	store, err := newObjectJournal(ctx, rt)
	if err != nil || store == nil {
		return journal.Discard, err
	}
	return store, nil
}

func newObjectJournal(ctx context.Context, rt *Runtime) (*journal.ObjectJournal, error) {
	cfg := rt.Config.Journal
	if !cfg.Enabled() {
		return nil, nil
	}
	client := s3.NewClient(rt.Clients.Config, cfg.Endpoint)
	if err := client.EnsureBucket(ctx, cfg.Bucket); err != nil {
		return nil, err
	}
	return journal.NewObjectJournal(client, cfg.Bucket, cfg.Prefix), nil
}

// newPolicy is the command poll policy from the configured timeouts.
func newPolicy(rt *Runtime, settle bool) executor.Policy {
	p := executor.Policy{
		Interval: rt.Config.Timeouts.PollInterval,
		Clock:    retry.RealClock(),
	}
	if settle {
		p.Settle = rt.Config.Timeouts.PollSettle
	}
	return p
}

// newController builds the convergence controller over SSM Run Command.
func newController(rt *Runtime) *convergence.Controller {
	cfg := rt.Config
	dispatcher := awsInternal.NewCommandDispatcher(rt.Clients.SSM, cfg.Convergence.CommandDocument)
	runner := executor.New(dispatcher, newPolicy(rt, true)).Named("convergence")
	return convergence.New(runner, convergence.Options{
		MemberPort:        cfg.Convergence.MemberPort,
		NewMemberPriority: cfg.Convergence.NewMemberPriority,
		NewMemberVotes:    cfg.Convergence.NewMemberVotes,
		VerifyProcesses:   cfg.Convergence.ShouldVerifyProcesses(),
		CommandTimeout:    cfg.Timeouts.Command,
		Clock:             retry.RealClock(),
	})
}

// withLogger puts the runtime logger into every invocation context. The
// Lambda runtime builds a fresh context per invocation.
func withLogger[E any](rt *Runtime, fn func(context.Context, E) error) func(context.Context, E) error {
	return func(ctx context.Context, event E) error {
		return fn(logging.IntoContext(ctx, rt.Logger), event)
	}
}

// withLoggerResponse is withLogger for handlers that return a response.
func withLoggerResponse[E, R any](rt *Runtime, fn func(context.Context, E) (R, error)) func(context.Context, E) (R, error) {
	return func(ctx context.Context, event E) (R, error) {
		return fn(logging.IntoContext(ctx, rt.Logger), event)
	}
}
