package stubserver

import (
	"net/http"

	"github.com/verdantops/esgportal/pkg/models"
)

// handleValidate checks the caller's API key and confirms the submitted
// report payload. Only the admin and auditor keys may validate.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	role := ""

	switch r.Header.Get("X-API-KEY") {
	case s.cfg.AdminKey:
		role = "admin"
	case s.cfg.AuditorKey:
		role = "auditor"
	default:
		writeError(w, http.StatusForbidden, "UNAUTHORIZED", "Invalid or missing API key")

		return
	}

	payload, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	result := models.ComplianceResult{
		Status:      "compliant",
		ValidatedBy: role,
	}

	if findings, ok := payload["mediation_findings"].(string); ok {
		result.MediationFindings = findings
	}

	writeJSON(w, http.StatusOK, result)
}
