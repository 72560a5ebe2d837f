package stubserver

import (
	"math"
	"net/http"
	"strings"

	"github.com/verdantops/esgportal/pkg/models"
)

var simulatorParams = []string{"current_footprint", "energy_mix_shift", "efficiency_gain"}

// handleSimulate projects a carbon footprint after the requested
// efficiency gain and energy mix shift, both expressed as percentages.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	var missing []string

	values := make(map[string]float64, len(simulatorParams))

	for _, name := range simulatorParams {
		v, ok := payload[name].(float64)
		if !ok {
			missing = append(missing, name)

			continue
		}

		values[name] = v
	}

	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION",
			"Missing parameter(s): "+strings.Join(missing, ", "))

		return
	}

	footprint := math.Max(0, math.Min(values["current_footprint"], 1e9))
	efficiency := math.Max(0, math.Min(values["efficiency_gain"], 100))
	mix := math.Max(0, math.Min(values["energy_mix_shift"], 100))

	projected := footprint * (1.0 - efficiency/100.0) * (1.0 - mix/100.0)

	writeJSON(w, http.StatusOK, models.SimulationResult{
		ProjectedFootprint: roundTo(projected, 2),
		Unit:               "metric_tons_CO2e",
	})
}
