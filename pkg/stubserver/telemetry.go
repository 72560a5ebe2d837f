package stubserver

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

func scorecardRequested(r *http.Request) bool {
	switch r.URL.Query().Get("scorecard") {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func dedupKey(sourceID string, payload map[string]any) string {
	eventID, _ := payload["external_event_id"].(string)
	if sourceID == "" && eventID == "" {
		raw, _ := json.Marshal(payload)

		return fmt.Sprintf("hash:%x", sha256.Sum256(raw))
	}

	return sourceID + "|" + eventID
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.limits.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Ingestion rate limit exceeded")

		return
	}

	payload, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	if _, ok := payload["asset_id"].(string); !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "Missing required field: asset_id")

		return
	}

	sourceID := r.Header.Get("X-Source-ID")
	key := dedupKey(sourceID, payload)

	s.mu.Lock()

	if _, dup := s.seen[key]; dup {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "DUPLICATE",
			"Duplicate payload: same source_id and external_event_id already ingested")

		return
	}

	s.nextRawID++
	rawID := s.nextRawID
	s.seen[key] = rawID
	s.mu.Unlock()

	observation, _ := payload["observation_time_utc"].(string)
	if observation == "" {
		observation = time.Now().UTC().Format(time.RFC3339)
	}

	result := computeIngest(payload, observation)

	for _, m := range result.metrics {
		if err := s.store.Insert(m.category, m.metric); err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_FAILED", "Failed to persist derived metrics")

			return
		}
	}

	resp := models.IngestResponse{
		Status:             "accepted",
		RawID:              rawID,
		ObservationTimeUTC: observation,
		Summary:            &result.summary,
	}

	if scorecardRequested(r) {
		resp.Scorecard = buildScorecard(result.summary)
	}

	status := http.StatusOK

	if len(result.alerts) > 0 {
		status = http.StatusCreated
		resp.Alerts = result.alerts
		resp.Severity = highestSeverity(result.alerts)

		for _, a := range result.alerts {
			s.hub.BroadcastAlert(a)
		}
	}

	writeJSON(w, status, resp)
}

func highestSeverity(alerts []models.AlertDetail) string {
	for _, a := range alerts {
		if a.Severity == "CRITICAL" {
			return "CRITICAL"
		}
	}

	return "WARNING"
}

// handleReplay acknowledges a replay request. Reprocessing happens out of
// band, so the endpoint only validates the window and acks.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	from, _ := payload["from"].(string)
	to, _ := payload["to"].(string)

	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "Replay window requires from and to timestamps")

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "replay_scheduled",
		"from":   from,
		"to":     to,
	})
}

func (s *Server) handleMetricsReport(w http.ResponseWriter, _ *http.Request) {
	report, err := s.store.Report()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_FAILED", "Failed to load metrics report")

		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMetricsReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_FAILED", "Failed to reset metrics")

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
