// Package catalog holds the preset telemetry payloads offered by the
// ingestion portal. Presets are realized through generator functions so
// every load carries a fresh timestamp and event identifier and is never
// mistaken for a duplicate by the server-side idempotency check.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verdantops/esgportal/pkg/models"
)

// Descriptor describes one preset payload.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	Type        models.IngestType
	generate    func() map[string]any
}

// Realize invokes the descriptor's generator and returns a fresh payload.
func (d Descriptor) Realize() map[string]any {
	return d.generate()
}

// PrettyJSON renders a realized payload as indented JSON suitable for
// the edit buffer.
func PrettyJSON(payload map[string]any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render payload: %w", err)
	}

	return string(data), nil
}

// NewEventID returns a unique external event identifier: wall-clock
// component plus a random suffix.
func NewEventID() string {
	return fmt.Sprintf("evt-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Sustainability returns the preset list for the sustainability ingest
// endpoint. The returned slice is a copy; descriptors are immutable.
func Sustainability() []Descriptor {
	out := make([]Descriptor, len(sustainabilityPresets))
	copy(out, sustainabilityPresets)

	return out
}

// Legacy returns the preset list for the legacy alerts endpoint.
func Legacy() []Descriptor {
	out := make([]Descriptor, len(legacyPresets))
	copy(out, legacyPresets)

	return out
}

// Find looks a descriptor up by ID in either list.
func Find(id string) (Descriptor, bool) {
	for _, d := range sustainabilityPresets {
		if d.ID == id {
			return d, true
		}
	}

	for _, d := range legacyPresets {
		if d.ID == id {
			return d, true
		}
	}

	return Descriptor{}, false
}

var sustainabilityPresets = []Descriptor{
	{
		ID:          "ai-training-dc",
		Name:        "AI Training Data Center",
		Description: "GPU training facility with cooling water loop",
		Type:        models.IngestSustainability,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"asset_id":          "dc-train-01",
				"region":            "us-east",
				"industry_vertical": "ai_training",
				"source_id":         "portal-preset",
				"external_event_id": NewEventID(),
				"energy": map[string]any{
					"facility_kwh": 1500.0,
					"it_kwh":       1000.0,
					"cooling_kwh":  350.0,
				},
				"water": map[string]any{
					"withdrawal_liters":  5200.0,
					"evaporation_liters": 1800.0,
					"blowdown_liters":    400.0,
					"reclaimed_liters":   1200.0,
				},
				"compute": map[string]any{
					"gpu_hours":     800.0,
					"training_runs": 4,
				},
				"hardware": map[string]any{
					"utilization_pct": 72.5,
					"idle_rate_pct":   10.0,
				},
				"data_quality": map[string]any{
					"completeness_pct": 98.0,
					"latency_seconds":  30.0,
				},
			}
		},
	},
	{
		ID:          "cloud-region-renewables",
		Name:        "Cloud Region Renewables Mix",
		Description: "Regional grid intensity snapshot with market-based factors",
		Type:        models.IngestSustainability,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"asset_id":          "region-eu-north",
				"region":            "eu-north",
				"industry_vertical": "cloud",
				"source_id":         "portal-preset",
				"external_event_id": NewEventID(),
				"energy": map[string]any{
					"facility_kwh": 900.0,
					"it_kwh":       760.0,
				},
				"carbon": map[string]any{
					"grid_carbon_intensity_kg_per_kwh": 0.12,
				},
				"hardware": map[string]any{
					"utilization_pct": 61.0,
				},
			}
		},
	},
	{
		ID:          "edge-site-cooling",
		Name:        "Edge Site Cooling",
		Description: "Small edge site with a stressed cooling loop",
		Type:        models.IngestSustainability,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"asset_id":          "edge-sfo-07",
				"region":            "us-west",
				"industry_vertical": "edge",
				"source_id":         "portal-preset",
				"external_event_id": NewEventID(),
				"energy": map[string]any{
					"facility_kwh": 120.0,
					"it_kwh":       52.0,
					"cooling_kwh":  48.0,
				},
				"water": map[string]any{
					"withdrawal_liters": 300.0,
					"consumed_liters":   180.0,
				},
				"hardware": map[string]any{
					"utilization_pct": 24.0,
					"idle_rate_pct":   55.0,
				},
			}
		},
	},
	{
		ID:          "inference-fleet",
		Name:        "Inference Fleet",
		Description: "Production inference serving with request counts",
		Type:        models.IngestSustainability,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"asset_id":          "inf-fleet-02",
				"region":            "ap-south",
				"industry_vertical": "ai_inference",
				"source_id":         "portal-preset",
				"external_event_id": NewEventID(),
				"energy": map[string]any{
					"facility_kwh": 400.0,
					"it_kwh":       310.0,
				},
				"compute": map[string]any{
					"gpu_hours":          120.0,
					"inference_requests": 250000,
				},
				"hardware": map[string]any{
					"utilization_pct": 83.0,
				},
				"data_quality": map[string]any{
					"completeness_pct": 92.0,
					"latency_seconds":  120.0,
				},
			}
		},
	},
}

var legacyPresets = []Descriptor{
	{
		ID:          "office-iaq-normal",
		Name:        "Office IAQ Normal",
		Description: "Workspace air quality within thresholds",
		Type:        models.IngestLegacy,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"external_event_id": NewEventID(),
				"CO2_ppm":           370.0,
				"Temperature_C":     21.5,
			}
		},
	},
	{
		ID:          "office-iaq-elevated",
		Name:        "Office IAQ Elevated",
		Description: "CO2 approaching the actionable limit",
		Type:        models.IngestLegacy,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"external_event_id": NewEventID(),
				"CO2_ppm":           430.0,
				"Temperature_C":     24.0,
			}
		},
	},
	{
		ID:          "server-room-overheat",
		Name:        "Server Room Overheat",
		Description: "Temperature and CO2 past critical thresholds",
		Type:        models.IngestLegacy,
		generate: func() map[string]any {
			return map[string]any{
				"timestamp":         nowUTC(),
				"external_event_id": NewEventID(),
				"CO2_ppm":           480.0,
				"Temperature_C":     36.2,
			}
		},
	},
}
