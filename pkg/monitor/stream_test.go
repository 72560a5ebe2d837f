package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantops/esgportal/pkg/config"
	"github.com/verdantops/esgportal/pkg/stubserver"
)

func TestSubscribeReceivesBroadcastAlerts(t *testing.T) {
	cfg := &config.StubConfig{IngestBurst: 100, IngestPerSec: 100}
	require.NoError(t, cfg.Validate())

	backend, err := stubserver.NewServer(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(backend.Router())

	t.Cleanup(func() {
		srv.Close()
		assert.NoError(t, backend.Stop(context.Background()))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan StreamMessage, 4)
	subscribed := make(chan error, 1)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/alerts/stream"

	go func() {
		subscribed <- Subscribe(ctx, wsURL, func(msg StreamMessage) {
			received <- msg
		})
	}()

	// Give the subscription a moment to register before triggering.
	time.Sleep(100 * time.Millisecond)

	payload, err := json.Marshal(map[string]any{"CO2_ppm": 480.0, "Temperature_C": 36.2})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/alerts/process-telemetry", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	select {
	case msg := <-received:
		assert.Equal(t, "alert", msg.Type)

		var alert struct {
			Metric   string `json:"metric"`
			Severity string `json:"severity"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &alert))
		assert.Equal(t, "CRITICAL", alert.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("no alert arrived on the stream")
	}

	cancel()

	select {
	case err := <-subscribed:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not exit on cancel")
	}
}

func TestSubscribeConnectFailure(t *testing.T) {
	err := Subscribe(context.Background(), "ws://127.0.0.1:1/api/alerts/stream", func(StreamMessage) {})
	assert.Error(t, err)
}
