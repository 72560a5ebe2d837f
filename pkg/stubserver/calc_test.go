package stubserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantops/esgportal/pkg/models"
)

func metricsByType(c computation) map[string]models.Metric {
	out := make(map[string]models.Metric, len(c.metrics))
	for _, m := range c.metrics {
		out[m.metric.MetricType] = m.metric
	}

	return out
}

func TestComputeCarbonScopes(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"energy": map[string]any{
			"facility_kwh":          1500.0,
			"it_kwh":                1000.0,
			"generator_fuel_liters": 100.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	// Diesel default: 100 L at 2.68 kg/L.
	assert.InDelta(t, 268.0, m["scope1_kg_co2e"].Value, 0.0001)
	// Location-based scope 2 from IT energy.
	assert.InDelta(t, 500.0, m["scope2_kg_co2e"].Value, 0.0001)
	assert.InDelta(t, 768.0, m["total_kg_co2e"].Value, 0.0001)
	assert.InDelta(t, 768.0, c.summary.CarbonKgCO2e, 0.0001)
}

func TestComputeCarbonFuelTypes(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"energy": map[string]any{
			"generator_fuel_liters": 1000.0,
			"generator_fuel_type":   "natural_gas",
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	assert.InDelta(t, 2.0, m["scope1_kg_co2e"].Value, 0.0001)
}

func TestComputeScope2FallsBackToFacilityEnergy(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"energy": map[string]any{
			"facility_kwh": 800.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	assert.InDelta(t, 400.0, m["scope2_kg_co2e"].Value, 0.0001)
}

func TestComputeWorkloadNormalization(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"energy": map[string]any{
			"it_kwh": 1000.0,
		},
		"compute": map[string]any{
			"run_duration_seconds": 7200.0,
			"gpu_count":            50.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	// 7200 s at 50 GPUs is 100 workload hours against 500 kg.
	require.Contains(t, m, "carbon_per_workload_hour")
	assert.InDelta(t, 5.0, m["carbon_per_workload_hour"].Value, 0.0001)

	// Exactly at the threshold: no alert.
	for _, a := range c.alerts {
		assert.NotEqual(t, "carbon_per_workload_hour", a.Metric)
	}
}

func TestComputeHardwareClamping(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"hardware": map[string]any{
			"utilization_pct": 120.0,
			"idle_rate_pct":   -5.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	assert.Equal(t, 100.0, m["utilization_pct"].Value)
	assert.Equal(t, 0.0, m["idle_rate_pct"].Value)
}

func TestComputeDataQualityConfidence(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"data_quality": map[string]any{
			"completeness_pct": 100.0,
			"latency_seconds":  0.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	assert.Equal(t, 1.0, m["confidence_score"].Value, "perfect data scores 1.0")
	assert.Empty(t, c.alerts)
}

func TestComputeDriftFlagRaisesAlert(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"data_quality": map[string]any{
			"completeness_pct": 100.0,
			"drift_flag":       true,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")

	require.Len(t, c.alerts, 1)
	assert.Equal(t, "sensor_drift", c.alerts[0].Metric)
	assert.Equal(t, "WARNING", c.alerts[0].Severity)

	m := metricsByType(c)
	assert.InDelta(t, 0.85, m["confidence_score"].Value, 0.0001)
}

func TestComputeWUEPrefersCoolingWaterBalance(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"energy": map[string]any{
			"facility_kwh": 1500.0,
			"it_kwh":       1000.0,
		},
		"water": map[string]any{
			"withdrawal_liters":  5000.0,
			"returned_liters":    4000.0,
			"evaporation_liters": 600.0,
			"blowdown_liters":    200.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	// consumed 1000 + evap 600 + blowdown 200 over 1000 kWh.
	assert.InDelta(t, 1.8, m["wue"].Value, 0.0001)
}

func TestComputeReclaimedWaterAlert(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"water": map[string]any{
			"withdrawal_liters": 1000.0,
			"reclaimed_liters":  100.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")

	require.Len(t, c.alerts, 1)
	assert.Equal(t, "reclaimed_water_pct", c.alerts[0].Metric)
	require.NotNil(t, c.alerts[0].ThresholdMin)
	assert.Equal(t, 20.0, *c.alerts[0].ThresholdMin)
}

func TestComputeZeroITEnergyProducesNoRatios(t *testing.T) {
	payload := map[string]any{
		"asset_id": "dc-1",
		"energy": map[string]any{
			"facility_kwh": 1500.0,
			"it_kwh":       0.0,
		},
	}

	c := computeIngest(payload, "2025-06-01T00:00:00Z")
	m := metricsByType(c)

	assert.NotContains(t, m, "pue", "PUE is undefined without IT energy")
	assert.NotContains(t, m, "dcie")
}

func TestBuildScorecardBounds(t *testing.T) {
	perHour := 10.0
	pue := 3.0

	worst := buildScorecard(models.IngestSummary{
		CarbonPerWorkloadHour: &perHour,
		PUE:                   &pue,
	})
	assert.InDelta(t, 0.25, worst.Score, 0.0001, "only the water weight survives a worst case with no utilization data")

	best := buildScorecard(models.IngestSummary{})
	assert.InDelta(t, 0.6, best.Score, 0.0001, "missing efficiency data is treated as worst")
}

func TestBuildScorecardComponents(t *testing.T) {
	perHour := 1.5
	pue := 1.5
	util := 40.0

	sc := buildScorecard(models.IngestSummary{
		CarbonPerWorkloadHour: &perHour,
		PUE:                   &pue,
		UtilizationPct:        &util,
	})

	assert.Equal(t, 0.5, sc.Components["carbon_normalized"])
	assert.Equal(t, 0.5, sc.Components["efficiency_normalized"])
	assert.Equal(t, 0.5, sc.Components["utilization_normalized"])
	// 0.35*0.5 + 0.25*1 + 0.25*0.5 + 0.15*0.5
	assert.InDelta(t, 0.625, sc.Score, 0.0001)
}
