package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

// FetchFunc fetches the metrics report.
type FetchFunc func(ctx context.Context) (*models.MetricsReport, error)

// Poller re-fetches the metrics report on a cadence that is shorter
// while the dashboard is the active view and longer otherwise. One retry
// is attempted per cycle before the error state is surfaced. The cached
// result is last-write-wins; a stale report is kept through errors.
type Poller struct {
	fetch            FetchFunc
	activeInterval   time.Duration
	inactiveInterval time.Duration

	mu      sync.RWMutex
	latest  *models.MetricsReport
	lastErr error
	active  bool

	kick   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller; Start must be called to begin polling.
func NewPoller(fetch FetchFunc, activeInterval, inactiveInterval time.Duration) *Poller {
	return &Poller{
		fetch:            fetch,
		activeInterval:   activeInterval,
		inactiveInterval: inactiveInterval,
		kick:             make(chan struct{}, 1),
	}
}

// Start launches the poll loop. Stopping is deterministic: cancel the
// context or call Stop and the loop exits before done closes.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.loop(ctx)
	}()
}

// Stop cancels the poll loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// SetActive switches between the fast and slow cadence.
func (p *Poller) SetActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

// Refresh forces an immediate re-fetch; used by the ingestion flow to
// invalidate the cached report after a successful submission.
func (p *Poller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Latest returns the cached report and the error state of the most
// recent cycle.
func (p *Poller) Latest() (*models.MetricsReport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.latest, p.lastErr
}

func (p *Poller) interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.active {
		return p.activeInterval
	}

	return p.inactiveInterval
}

func (p *Poller) loop(ctx context.Context) {
	p.fetchOnce(ctx)

	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-p.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		p.fetchOnce(ctx)
		timer.Reset(p.interval())
	}
}

func (p *Poller) fetchOnce(ctx context.Context) {
	report, err := p.fetch(ctx)
	if err != nil {
		// One retry before surfacing the error state.
		report, err = p.fetch(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Metrics report fetch failed: %v", err)
		}

		p.lastErr = err

		return
	}

	p.latest = report
	p.lastErr = nil
}
