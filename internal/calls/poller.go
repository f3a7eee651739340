package calls

import (
	"context"
	"sync"
	"time"

	"github.com/redsteadz/agentic-interviewer/pkg/logger"
)

// Fetcher fetches the provider's current view of one call.
type Fetcher interface {
	GetCall(ctx context.Context, providerCallID string) (Call, error)
}

// Poller keeps a single tracked call fresh by refetching it on a fixed
// interval until the call leaves the live statuses. Tracking a new call
// replaces the previous loop; teardown completes before the new loop
// starts, so at most one loop exists at any moment.
type Poller struct {
	fetch    Fetcher
	interval time.Duration

	// newTicker is swappable for deterministic tests.
	newTicker func(time.Duration) (<-chan time.Time, func())

	updates chan Call

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	curMu   sync.Mutex
	current *Call
}

func NewPoller(fetch Fetcher, interval time.Duration) *Poller {
	return &Poller{
		fetch:    fetch,
		interval: interval,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		updates: make(chan Call, 16),
	}
}

// Updates delivers each replacement record as it is fetched. Slow consumers
// lose the oldest buffered records rather than stall the loop; the newest
// record, terminal ones included, is always delivered. Current always has
// the latest.
func (p *Poller) Updates() <-chan Call {
	return p.updates
}

// Current returns the latest snapshot of the tracked call.
func (p *Poller) Current() (Call, bool) {
	p.curMu.Lock()
	defer p.curMu.Unlock()
	if p.current == nil {
		return Call{}, false
	}
	return *p.current, true
}

// Track makes c the tracked call. Any prior loop is stopped and waited for
// first. Terminal calls are recorded but never polled.
func (p *Poller) Track(ctx context.Context, c Call) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.setCurrent(c)

	if !c.Status.Live() {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go p.loop(loopCtx, c, done)
}

// Stop cancels the active loop, if any, and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Poller) loop(ctx context.Context, c Call, done chan struct{}) {
	defer close(done)

	// Immediate refresh on track, then the fixed-interval cadence.
	if live := p.refresh(ctx, &c); !live {
		return
	}

	tick, stop := p.newTicker(p.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if live := p.refresh(ctx, &c); !live {
				return
			}
		}
	}
}

// refresh fetches the call once and publishes the replacement. A failed
// fetch keeps the previous record and the next tick proceeds on schedule.
// The returned bool reports whether the loop should keep ticking.
func (p *Poller) refresh(ctx context.Context, c *Call) bool {
	if ctx.Err() != nil {
		return false
	}
	fresh, err := p.fetch.GetCall(ctx, c.ProviderCallID)
	if err != nil {
		logger.From(ctx).Warn("call refresh failed",
			"provider_call_id", c.ProviderCallID, "err", err)
		return true
	}

	*c = fresh
	p.setCurrent(fresh)
	p.publish(fresh)

	return fresh.Status.Live()
}

// publish enqueues the replacement record without ever blocking the loop.
// When a slow consumer has filled the buffer the oldest record is dropped,
// never the newest; the terminal update in particular must not be lost, or a
// consumer waiting on Updates would hang after the loop exits. The loop is
// the only sender, so the retry after draining one slot always lands.
func (p *Poller) publish(c Call) {
	select {
	case p.updates <- c:
		return
	default:
	}
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- c:
	default:
	}
}

func (p *Poller) setCurrent(c Call) {
	p.curMu.Lock()
	p.current = &c
	p.curMu.Unlock()
}
