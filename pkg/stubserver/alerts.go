package stubserver

import (
	"net/http"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

// Legacy environmental thresholds. A reading at or above 85% of its
// threshold raises a warning, above the threshold a critical alert.
const warningFactor = 0.85

var legacyThresholds = []struct {
	name      string
	threshold float64
}{
	{"CO2_ppm", 450.0},
	{"Temperature_C", 35.0},
}

// handleProcessTelemetry evaluates a flat sensor reading against the
// legacy thresholds. Critical readings answer 201 ALERT_TRIGGERED,
// warnings 200 WARNING, clean readings 200 NORMAL.
func (s *Server) handleProcessTelemetry(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION",
			"JSON body with CO2_ppm and/or Temperature_C required")

		return
	}

	// Readings may arrive flat or wrapped in a metrics block.
	metrics := payload
	if nested, ok := payload["metrics"].(map[string]any); ok {
		metrics = nested
	}

	var details []models.AlertDetail

	critical := false

	for _, lt := range legacyThresholds {
		name, threshold := lt.name, lt.threshold

		value, ok := metrics[name].(float64)
		if !ok || value < 0 {
			continue
		}

		severity := ""

		switch {
		case value > threshold:
			severity = "CRITICAL"
			critical = true
		case value >= threshold*warningFactor:
			severity = "WARNING"
		default:
			continue
		}

		t := threshold
		details = append(details, models.AlertDetail{
			Metric:    name,
			Value:     value,
			Threshold: &t,
			Severity:  severity,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	switch {
	case critical:
		for _, d := range details {
			s.hub.BroadcastAlert(d)
		}

		writeJSON(w, http.StatusCreated, models.LegacyResponse{
			Status:   "ALERT_TRIGGERED",
			Details:  details,
			Severity: "CRITICAL",
		})
	case len(details) > 0:
		writeJSON(w, http.StatusOK, models.LegacyResponse{
			Status:   "WARNING",
			Details:  details,
			Severity: "WARNING",
		})
	default:
		writeJSON(w, http.StatusOK, models.LegacyResponse{Status: "NORMAL"})
	}
}
