// Package redis implements the run oracle as a Redis lease.
//
// A workflow is claimed with SET NX under a TTL, so a crashed run releases
// its claim once the lease expires. The last finished report per workflow is
// kept alongside the lease.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"

	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/gate"
)

// DefaultTTL bounds a run that never calls Finish.
const DefaultTTL = 15 * time.Minute

// ErrLeaseLost is returned by Finish when the lease expired or was taken over.
var ErrLeaseLost = errors.New("run lease lost")

// releaseScript deletes the lease only while it still belongs to the run and
// stores the final report either way.
var releaseScript = rdb.NewScript(`
local held = redis.call("GET", KEYS[1]) == ARGV[1]
if held then
	redis.call("DEL", KEYS[1])
end
redis.call("SET", KEYS[2], ARGV[2])
if held then
	return 1
end
return 0
`)

// Option configures a LeaseOracle.
type Option func(*LeaseOracle)

// WithTTL sets the lease TTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *LeaseOracle) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *LeaseOracle) {
		o.prefix = prefix
	}
}

// LeaseOracle implements gate.Oracle with one lease key per workflow.
type LeaseOracle struct {
	client *rdb.Client
	prefix string
	ttl    time.Duration
}

var _ gate.Oracle = (*LeaseOracle)(nil)

// NewClient connects to the Redis server at addr.
func NewClient(addr string, db int) *rdb.Client {
	return rdb.NewClient(&rdb.Options{Addr: addr, DB: db})
}

// NewLeaseOracle returns a LeaseOracle over client.
func NewLeaseOracle(client *rdb.Client, opts ...Option) *LeaseOracle {
	o := &LeaseOracle{client: client, prefix: "rsjoin:", ttl: DefaultTTL}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *LeaseOracle) leaseKey(workflowID string) string {
	return o.prefix + "run:" + workflowID
}

func (o *LeaseOracle) lastKey(workflowID string) string {
	return o.prefix + "last:" + workflowID
}

// ActiveRuns is 1 while the workflow lease is held.
func (o *LeaseOracle) ActiveRuns(ctx context.Context, workflowID string) (int, error) {
	n, err := o.client.Exists(ctx, o.leaseKey(workflowID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis exists: %w", err)
	}
	return int(n), nil
}

// StartRun takes the workflow lease.
func (o *LeaseOracle) StartRun(ctx context.Context, workflowID string, _ convergence.RunInput) (gate.RunHandle, error) {
	id := uuid.NewString()
	ok, err := o.client.SetNX(ctx, o.leaseKey(workflowID), id, o.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, gate.ErrRunActive
	}
	return &lease{oracle: o, workflowID: workflowID, id: id}, nil
}

// LastReport returns the most recent finished report for workflowID.
func (o *LeaseOracle) LastReport(ctx context.Context, workflowID string) (*convergence.Report, error) {
	data, err := o.client.Get(ctx, o.lastKey(workflowID)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var r convergence.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

type lease struct {
	oracle     *LeaseOracle
	workflowID string
	id         string
	finished   bool
}

func (l *lease) ID() string {
	return l.id
}

// Finish releases the lease and stores report as the workflow's last run.
func (l *lease) Finish(ctx context.Context, report convergence.Report) error {
	if l.finished {
		return fmt.Errorf("run %s already finished", l.id)
	}
	l.finished = true

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	o := l.oracle
	held, err := releaseScript.Run(ctx, o.client,
		[]string{o.leaseKey(l.workflowID), o.lastKey(l.workflowID)},
		l.id, data,
	).Int()
	if err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	if held == 0 {
		return fmt.Errorf("%w: %s", ErrLeaseLost, l.id)
	}
	return nil
}
