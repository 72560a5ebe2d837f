package ingest

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantops/esgportal/pkg/client"
	"github.com/verdantops/esgportal/pkg/models"
)

type fakeSubmitter struct {
	mu            sync.Mutex
	calls         int
	lastPayload   map[string]any
	ingestResp    *models.IngestResponse
	legacyResp    *models.LegacyResponse
	err           error
	block         chan struct{}
	blockEntered  chan struct{}
}

func (f *fakeSubmitter) IngestSustainability(_ context.Context, payload map[string]any, _ client.IngestOptions) (*models.IngestResponse, error) {
	f.record(payload)

	if f.err != nil {
		return nil, f.err
	}

	return f.ingestResp, nil
}

func (f *fakeSubmitter) ProcessLegacyTelemetry(_ context.Context, payload map[string]any) (*models.LegacyResponse, error) {
	f.record(payload)

	if f.err != nil {
		return nil, f.err
	}

	return f.legacyResp, nil
}

func (f *fakeSubmitter) record(payload map[string]any) {
	f.mu.Lock()
	f.calls++
	f.lastPayload = payload
	f.mu.Unlock()

	if f.block != nil {
		f.blockEntered <- struct{}{}
		<-f.block
	}
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

type fakeRefresher struct {
	mu    sync.Mutex
	count int
}

func (r *fakeRefresher) Refresh() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func TestSubmitRejectsLocallyWithoutNetworkCall(t *testing.T) {
	tests := []struct {
		name    string
		buffer  string
		wantErr error
	}{
		{"Empty buffer", "", ErrEmptyPayload},
		{"Whitespace buffer", "   \n\t", ErrEmptyPayload},
		{"Malformed JSON", `{"a":`, ErrInvalidJSON},
		{"Non-object JSON", `[1,2,3]`, ErrInvalidJSON},
		{"JSON null", `null`, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSubmitter{}
			history := NewHistory()
			flow := NewFlow(api, client.IngestOptions{}, history, nil, nil)

			_, err := flow.Submit(context.Background(), models.IngestSustainability, tt.buffer)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Zero(t, api.callCount(), "local rejection must not reach the network")
			assert.Empty(t, history.Entries(), "local rejection must not record history")
		})
	}
}

func TestSubmitInjectsTimestampOnlyWhenAbsent(t *testing.T) {
	api := &fakeSubmitter{ingestResp: &models.IngestResponse{Status: "accepted", RawID: 1}}
	flow := NewFlow(api, client.IngestOptions{}, NewHistory(), nil, nil)

	_, err := flow.Submit(context.Background(), models.IngestSustainability, `{"asset_id":"a1"}`)
	require.NoError(t, err)
	assert.NotEmpty(t, api.lastPayload["timestamp"], "missing timestamp is injected")

	_, err = flow.Submit(context.Background(), models.IngestSustainability,
		`{"asset_id":"a1","timestamp":"2024-01-01T00:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", api.lastPayload["timestamp"], "existing timestamp is preserved")
}

func TestSubmitLegacyPayloadTravelsVerbatim(t *testing.T) {
	api := &fakeSubmitter{legacyResp: &models.LegacyResponse{Status: "NORMAL"}}
	flow := NewFlow(api, client.IngestOptions{}, NewHistory(), nil, nil)

	_, err := flow.Submit(context.Background(), models.IngestLegacy, `{"CO2_ppm":370.0}`)
	require.NoError(t, err)

	_, hasTimestamp := api.lastPayload["timestamp"]
	assert.False(t, hasTimestamp, "legacy payloads are never modified")
}

func TestSubmitSuccessRefreshesAndRecordsHistory(t *testing.T) {
	api := &fakeSubmitter{ingestResp: &models.IngestResponse{Status: "accepted", RawID: 42}}
	refresher := &fakeRefresher{}
	history := NewHistory()

	var succeeded models.IngestType

	flow := NewFlow(api, client.IngestOptions{}, history, refresher, func(mode models.IngestType) {
		succeeded = mode
	})

	entry, err := flow.Submit(context.Background(), models.IngestSustainability, `{"asset_id":"a1"}`)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, models.IngestSustainability, entry.Type)
	assert.Equal(t, 1, refresher.count)
	assert.Equal(t, models.IngestSustainability, succeeded)

	entries := history.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestSubmitFailureRecordsHistoryWithoutRefresh(t *testing.T) {
	api := &fakeSubmitter{err: &client.APIError{Status: http.StatusBadRequest, Message: "bad field"}}
	refresher := &fakeRefresher{}
	history := NewHistory()

	flow := NewFlow(api, client.IngestOptions{}, history, refresher, nil)

	entry, err := flow.Submit(context.Background(), models.IngestSustainability, `{"asset_id":"a1"}`)
	require.Error(t, err)

	assert.Equal(t, StatusFailed, entry.Status)
	assert.Zero(t, refresher.count, "failed submissions must not refresh the dashboard")

	data, ok := entry.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bad field", data["error"], "server validation message surfaces verbatim")
}

func TestSubmitPendingGuard(t *testing.T) {
	api := &fakeSubmitter{
		ingestResp:   &models.IngestResponse{Status: "accepted"},
		block:        make(chan struct{}),
		blockEntered: make(chan struct{}),
	}

	flow := NewFlow(api, client.IngestOptions{}, NewHistory(), nil, nil)

	done := make(chan error, 1)

	go func() {
		_, err := flow.Submit(context.Background(), models.IngestSustainability, `{"asset_id":"a1"}`)
		done <- err
	}()

	<-api.blockEntered
	assert.True(t, flow.Pending(models.IngestSustainability))

	_, err := flow.Submit(context.Background(), models.IngestSustainability, `{"asset_id":"a1"}`)
	assert.ErrorIs(t, err, ErrSubmitPending)

	close(api.block)
	require.NoError(t, <-done)
	assert.False(t, flow.Pending(models.IngestSustainability))
}

func TestNoticeDuplicateGuidance(t *testing.T) {
	err := &client.APIError{
		Status:  http.StatusConflict,
		Message: "Duplicate payload: same source_id and external_event_id already ingested",
	}

	notice := Notice(err)
	assert.Contains(t, notice, "Duplicate payload")
	assert.Contains(t, notice, "fresh external_event_id")
}

func TestNoticePlainErrors(t *testing.T) {
	notice := Notice(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), notice)

	notice = Notice(&client.APIError{Status: http.StatusBadRequest, Message: "bad field"})
	assert.Equal(t, "bad field", notice)
}
