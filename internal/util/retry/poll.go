package retry

import (
	"context"
	"time"
)

// Default poll timing. External command trackers lag behind submission, so the
// first check waits DefaultSettle.
const (
	DefaultSettle   = 5 * time.Second
	DefaultInterval = 5 * time.Second
)

// Poller checks an asynchronous operation at a fixed interval until it is
// terminal. It imposes no deadline of its own: it stops on a terminal state,
// on a check error, or when ctx is done.
type Poller struct {
	SettleDelay time.Duration
	Interval    time.Duration
	Clock       Clock
}

// NewPoller returns a Poller with the given timings on the real clock.
func NewPoller(settle, interval time.Duration) Poller {
	return Poller{SettleDelay: settle, Interval: interval, Clock: RealClock()}
}

// WaitSettle blocks for the settle delay.
func (p Poller) WaitSettle(ctx context.Context) error {
	return Sleep(ctx, p.clock(), p.SettleDelay)
}

// Until calls check until it reports done or fails, sleeping Interval between
// calls. The first call happens immediately.
func (p Poller) Until(ctx context.Context, check func(ctx context.Context) (done bool, err error)) error {
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := Sleep(ctx, p.clock(), p.interval()); err != nil {
			return err
		}
	}
}

func (p Poller) clock() Clock {
	if p.Clock == nil {
		return RealClock()
	}
	return p.Clock
}

func (p Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}
