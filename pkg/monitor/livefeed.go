package monitor

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

const maxFeedEntries = 25

// SubmitFunc sends one simulated reading to the legacy alerts endpoint.
type SubmitFunc func(ctx context.Context, payload map[string]any) (*models.LegacyResponse, error)

// FeedEntry is one simulated reading and its evaluation.
type FeedEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Reading   map[string]any         `json:"reading"`
	Response  *models.LegacyResponse `json:"response,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// LiveFeed is the manually toggled telemetry simulation. Each tick
// generates a randomized reading and submits it; responses land in a
// bounded last-write-wins feed. The feed must be stopped explicitly or
// by canceling the context passed to Start.
type LiveFeed struct {
	submit   SubmitFunc
	interval time.Duration
	rng      *rand.Rand

	mu      sync.Mutex
	entries []FeedEntry
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLiveFeed creates a stopped feed.
func NewLiveFeed(submit SubmitFunc, interval time.Duration) *LiveFeed {
	return &LiveFeed{
		submit:   submit,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Running reports whether the simulation timer is active.
func (f *LiveFeed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cancel != nil
}

// Start begins the simulation. Starting a running feed is a no-op.
func (f *LiveFeed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	go func() {
		defer close(done)
		f.loop(ctx)
	}()
}

// Stop cancels the simulation timer and waits for the loop to exit.
func (f *LiveFeed) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	done := f.done
	f.cancel = nil
	f.done = nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Entries returns the feed, most recent first.
func (f *LiveFeed) Entries() []FeedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]FeedEntry, len(f.entries))
	copy(out, f.entries)

	return out
}

func (f *LiveFeed) loop(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *LiveFeed) tick(ctx context.Context) {
	reading := f.nextReading()

	entry := FeedEntry{
		Timestamp: time.Now().UTC(),
		Reading:   reading,
	}

	resp, err := f.submit(ctx, reading)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		entry.Error = err.Error()
		log.Printf("Live feed submission failed: %v", err)
	} else {
		entry.Response = resp
	}

	f.mu.Lock()
	f.entries = append([]FeedEntry{entry}, f.entries...)
	if len(f.entries) > maxFeedEntries {
		f.entries = f.entries[:maxFeedEntries]
	}
	f.mu.Unlock()
}

func (f *LiveFeed) nextReading() map[string]any {
	f.mu.Lock()
	co2 := 360.0 + f.rng.Float64()*140.0
	temp := 20.0 + f.rng.Float64()*18.0
	f.mu.Unlock()

	return map[string]any{
		"CO2_ppm":       float64(int(co2*10)) / 10,
		"Temperature_C": float64(int(temp*10)) / 10,
	}
}
