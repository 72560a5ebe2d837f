package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantops/esgportal/pkg/client"
	"github.com/verdantops/esgportal/pkg/models"
)

func TestLiveFeedProducesBoundedEntries(t *testing.T) {
	feed := NewLiveFeed(func(_ context.Context, reading map[string]any) (*models.LegacyResponse, error) {
		co2, ok := reading["CO2_ppm"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, co2, 360.0)
		assert.Less(t, co2, 500.0)

		return &models.LegacyResponse{Status: "NORMAL"}, nil
	}, time.Millisecond)

	feed.Start(context.Background())

	deadline := time.After(2 * time.Second)

	for len(feed.Entries()) < maxFeedEntries {
		select {
		case <-deadline:
			t.Fatal("feed never filled")
		case <-time.After(5 * time.Millisecond):
		}
	}

	feed.Stop()

	entries := feed.Entries()
	assert.Len(t, entries, maxFeedEntries, "feed is bounded")
	assert.Equal(t, "NORMAL", entries[0].Response.Status)
	assert.True(t, entries[0].Timestamp.After(entries[len(entries)-1].Timestamp) ||
		entries[0].Timestamp.Equal(entries[len(entries)-1].Timestamp), "newest first")
}

func TestLiveFeedRecordsSubmitErrors(t *testing.T) {
	feed := NewLiveFeed(func(context.Context, map[string]any) (*models.LegacyResponse, error) {
		return nil, errors.New("backend down")
	}, time.Millisecond)

	feed.Start(context.Background())

	deadline := time.After(2 * time.Second)

	for len(feed.Entries()) == 0 {
		select {
		case <-deadline:
			t.Fatal("feed never recorded the failure")
		case <-time.After(5 * time.Millisecond):
		}
	}

	feed.Stop()

	entry := feed.Entries()[0]
	assert.Nil(t, entry.Response)
	assert.Equal(t, "backend down", entry.Error)
}

func TestLiveFeedStartStopLifecycle(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)

	feed := NewLiveFeed(func(context.Context, map[string]any) (*models.LegacyResponse, error) {
		mu.Lock()
		calls++
		mu.Unlock()

		return &models.LegacyResponse{Status: "NORMAL"}, nil
	}, time.Millisecond)

	assert.False(t, feed.Running())

	feed.Start(context.Background())
	assert.True(t, feed.Running())

	// Starting a running feed is a no-op.
	feed.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	feed.Stop()
	assert.False(t, feed.Running())

	mu.Lock()
	after := calls
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, after, calls, "no submissions after Stop returns")
	mu.Unlock()

	// Stopping a stopped feed is a no-op.
	feed.Stop()
}

func TestHealthCheckerReportsPerService(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"OK"`))
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	checker := NewHealthChecker(map[string]*client.Client{
		"alerts":    client.New(healthy.URL),
		"telemetry": client.New(broken.URL),
	})

	results := checker.CheckAll(context.Background())
	require.Len(t, results, 2)

	// Sorted by name.
	assert.Equal(t, "alerts", results[0].Name)
	assert.True(t, results[0].Healthy)
	assert.Empty(t, results[0].Message)

	assert.Equal(t, "telemetry", results[1].Name)
	assert.False(t, results[1].Healthy)
	assert.NotEmpty(t, results[1].Message)
}
