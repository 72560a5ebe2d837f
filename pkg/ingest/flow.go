// Package ingest implements the portal's ingestion mutation flow: local
// validation, per-mode dispatch, history recording, and cache refresh on
// success.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/verdantops/esgportal/pkg/client"
	"github.com/verdantops/esgportal/pkg/models"
)

var (
	// ErrEmptyPayload rejects an empty or whitespace-only buffer before
	// any network call.
	ErrEmptyPayload = errors.New("payload is empty")
	// ErrInvalidJSON rejects a buffer that does not parse as a JSON object.
	ErrInvalidJSON = errors.New("payload is not valid JSON")
	// ErrSubmitPending rejects a submission while one is already in flight
	// for the same mode.
	ErrSubmitPending = errors.New("a submission is already in flight")

	errUnknownMode = errors.New("unknown ingestion mode")
)

// StatusSuccess and StatusFailed tag history entries.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Submitter is the slice of the API the flow depends on. *client.API
// satisfies it.
type Submitter interface {
	IngestSustainability(ctx context.Context, payload map[string]any, opts client.IngestOptions) (*models.IngestResponse, error)
	ProcessLegacyTelemetry(ctx context.Context, payload map[string]any) (*models.LegacyResponse, error)
}

// Refresher is the data source invalidated after a successful ingestion.
type Refresher interface {
	Refresh()
}

// route binds one ingestion mode to its transform and submit behavior.
type route struct {
	transform func(map[string]any) map[string]any
	submit    func(ctx context.Context, f *Flow, payload map[string]any) (any, error)
}

var routes = map[models.IngestType]route{
	models.IngestSustainability: {
		transform: injectTimestamp,
		submit: func(ctx context.Context, f *Flow, payload map[string]any) (any, error) {
			return f.api.IngestSustainability(ctx, payload, f.opts)
		},
	},
	models.IngestLegacy: {
		transform: func(p map[string]any) map[string]any { return p },
		submit: func(ctx context.Context, f *Flow, payload map[string]any) (any, error) {
			return f.api.ProcessLegacyTelemetry(ctx, payload)
		},
	},
}

// injectTimestamp adds the current UTC time when the payload lacks a
// timestamp field. This is the only client-side field synthesis.
func injectTimestamp(payload map[string]any) map[string]any {
	if _, ok := payload["timestamp"]; !ok {
		payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	return payload
}

// Flow drives submissions for both modes over a shared edit buffer.
type Flow struct {
	api       Submitter
	opts      client.IngestOptions
	refresher Refresher
	history   *History
	onSuccess func(models.IngestType)

	mu      sync.Mutex
	pending map[models.IngestType]bool
}

// NewFlow wires the flow. refresher and onSuccess may be nil.
func NewFlow(api Submitter, opts client.IngestOptions, history *History, refresher Refresher, onSuccess func(models.IngestType)) *Flow {
	return &Flow{
		api:       api,
		opts:      opts,
		refresher: refresher,
		history:   history,
		onSuccess: onSuccess,
		pending:   make(map[models.IngestType]bool),
	}
}

// Pending reports whether a submission for mode is in flight; the UI
// disables the trigger rather than queueing.
func (f *Flow) Pending(mode models.IngestType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pending[mode]
}

// Submit validates the buffer, dispatches it to the mode's endpoint, and
// on success records history, refreshes the metrics data source, and
// fires the success hook. Validation failures never reach the network.
func (f *Flow) Submit(ctx context.Context, mode models.IngestType, buffer string) (models.HistoryEntry, error) {
	r, ok := routes[mode]
	if !ok {
		return models.HistoryEntry{}, errUnknownMode
	}

	payload, err := parseBuffer(buffer)
	if err != nil {
		return models.HistoryEntry{}, err
	}

	f.mu.Lock()
	if f.pending[mode] {
		f.mu.Unlock()
		return models.HistoryEntry{}, ErrSubmitPending
	}
	f.pending[mode] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.pending[mode] = false
		f.mu.Unlock()
	}()

	resp, err := r.submit(ctx, f, r.transform(payload))
	if err != nil {
		entry := f.history.Add(StatusFailed, mode, map[string]any{"error": Notice(err)})
		return entry, err
	}

	entry := f.history.Add(StatusSuccess, mode, resp)

	if f.refresher != nil {
		f.refresher.Refresh()
	}

	if f.onSuccess != nil {
		f.onSuccess(mode)
	}

	return entry, nil
}

func parseBuffer(buffer string) (map[string]any, error) {
	if strings.TrimSpace(buffer) == "" {
		return nil, ErrEmptyPayload
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(buffer), &payload); err != nil || payload == nil {
		return nil, ErrInvalidJSON
	}

	return payload, nil
}

// Notice renders the user-facing message for a failed submission. A
// structured server error message takes precedence over the transport
// text, and 409 conflicts carry duplicate-key guidance.
func Notice(err error) string {
	apiErr, ok := client.AsAPIError(err)
	if !ok {
		return err.Error()
	}

	if apiErr.Status == http.StatusConflict {
		return fmt.Sprintf("%s (likely duplicate: the server deduplicates on (source_id, external_event_id); resubmit with a fresh external_event_id)", apiErr.Message)
	}

	return apiErr.Message
}
