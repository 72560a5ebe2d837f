package stubserver

import (
	"math"
	"strings"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

// Versioned emission factors, v1 defaults.
const (
	locationFactorKgPerKWh = 0.5
	dieselKgPerLiter       = 2.68
	naturalGasKgPerLiter   = 0.002 // ~2 kg/m3, 1000 L per m3
)

// Alert thresholds.
const (
	carbonIntensityMax       = 0.6
	carbonPerWorkloadHourMax = 5.0
	wueMax                   = 2.0
	waterPerWorkloadHourMax  = 50.0
	reclaimedWaterMinPct     = 20.0
	pueMax                   = 2.0
	coolingEnergyPctMax      = 50.0
)

// Scorecard normalization baselines and weights.
const (
	carbonIntensityBaseline  = 3.0
	waterIntensityBaseline   = 40.0
	energyEfficiencyTarget   = 1.2
	energyEfficiencyBaseline = 1.8
	utilizationTarget        = 80.0

	weightCarbon     = 0.35
	weightWater      = 0.25
	weightEfficiency = 0.25
	weightHardware   = 0.15
)

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

func block(p map[string]any, name string) map[string]any {
	if b, ok := p[name].(map[string]any); ok {
		return b
	}

	return nil
}

func fval(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}

	v, ok := m[key].(float64)

	return v, ok
}

func sval(m map[string]any, key string) string {
	if m == nil {
		return ""
	}

	s, _ := m[key].(string)

	return s
}

func bval(m map[string]any, key string) bool {
	if m == nil {
		return false
	}

	b, _ := m[key].(bool)

	return b
}

type computation struct {
	metrics []storedMetric
	alerts  []models.AlertDetail
	summary models.IngestSummary
}

type storedMetric struct {
	category string
	metric   models.Metric
}

func (c *computation) add(category, metricType string, value float64, unit, assetID, region, observation string) {
	c.metrics = append(c.metrics, storedMetric{
		category: category,
		metric: models.Metric{
			MetricType:   metricType,
			Value:        value,
			Unit:         unit,
			AssetID:      assetID,
			Region:       region,
			TimestampUTC: observation,
		},
	})
}

func (c *computation) alert(metric string, value, threshold float64, severity string) {
	t := threshold
	c.alerts = append(c.alerts, models.AlertDetail{
		Metric:    metric,
		Value:     value,
		Threshold: &t,
		Severity:  severity,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *computation) alertMin(metric string, value, thresholdMin float64, severity string) {
	t := thresholdMin
	c.alerts = append(c.alerts, models.AlertDetail{
		Metric:       metric,
		Value:        value,
		ThresholdMin: &t,
		Severity:     severity,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// computeIngest runs the calculation engine over one validated payload:
// carbon scopes from versioned factors, water balance and WUE, PUE and
// cooling efficiency, hardware utilization, data quality confidence, and
// the alert thresholds over the derived intensities.
func computeIngest(p map[string]any, observation string) computation {
	var c computation

	assetID := sval(p, "asset_id")
	region := sval(p, "region")

	energy := block(p, "energy")
	facilityKWh, hasFacility := fval(energy, "facility_kwh")
	itKWh, hasIT := fval(energy, "it_kwh")
	coolingKWh, hasCooling := fval(energy, "cooling_kwh")
	genLiters, hasGen := fval(energy, "generator_fuel_liters")
	genType := sval(energy, "generator_fuel_type")

	// Carbon: scope 1 from generator fuel, scope 2 location-based from IT
	// energy (facility as fallback).
	var scope1, scope2 float64

	if hasGen && genLiters > 0 {
		factor := dieselKgPerLiter
		if strings.EqualFold(genType, "natural_gas") {
			factor = naturalGasKgPerLiter
		}

		scope1 = roundTo(genLiters*factor, 6)
	}

	scopeBasis, hasBasis := itKWh, hasIT
	if !hasBasis {
		scopeBasis, hasBasis = facilityKWh, hasFacility
	}

	if hasBasis && scopeBasis > 0 {
		scope2 = roundTo(scopeBasis*locationFactorKgPerKWh, 6)
	}

	totalKg := roundTo(scope1+scope2, 6)
	c.summary.CarbonKgCO2e = totalKg

	if totalKg > 0 {
		c.add("carbon", "total_kg_co2e", totalKg, "kg_co2e", assetID, region, observation)
	}

	if scope1 > 0 {
		c.add("carbon", "scope1_kg_co2e", scope1, "kg_co2e", assetID, region, observation)
	}

	if scope2 > 0 {
		c.add("carbon", "scope2_kg_co2e", scope2, "kg_co2e", assetID, region, observation)
	}

	// Workload normalization: explicit workload value, or GPU hours, or
	// run duration times GPU count.
	compute := block(p, "compute")
	workloadHours, hasWorkload := fval(compute, "gpu_hours")

	if !hasWorkload {
		if secs, ok := fval(compute, "run_duration_seconds"); ok {
			gpus, ok2 := fval(compute, "gpu_count")
			if ok2 && gpus > 0 {
				workloadHours = secs / 3600.0 * gpus
				hasWorkload = true
			}
		}
	}

	workloadValue, hasWorkloadValue := fval(p, "workload_value")
	workloadUnit := sval(p, "workload_unit")

	if (!hasWorkloadValue || workloadUnit == "") && hasWorkload {
		workloadValue = workloadHours
		workloadUnit = "workload_hour"
		hasWorkloadValue = true
	}

	if hasWorkloadValue && workloadValue > 0 && totalKg > 0 && workloadUnit != "" {
		intensity := roundTo(totalKg/workloadValue, 6)
		c.add("carbon", "carbon_intensity", intensity, "kg_co2e_per_"+workloadUnit, assetID, region, observation)
		c.summary.CarbonIntensity = &intensity
		c.summary.CarbonIntensityUnit = "kg_co2e_per_" + workloadUnit
	}

	if hasWorkload && workloadHours > 0 && totalKg > 0 {
		perHour := roundTo(totalKg/workloadHours, 6)
		c.add("carbon", "carbon_per_workload_hour", perHour, "kg_co2e_per_workload_hour", assetID, region, observation)
		c.summary.CarbonPerWorkloadHour = &perHour

		if perHour > carbonPerWorkloadHourMax {
			c.alert("carbon_per_workload_hour", perHour, carbonPerWorkloadHourMax, "CRITICAL")
		}
	}

	if runs, ok := fval(compute, "training_runs"); ok && runs > 0 && totalKg > 0 {
		c.add("carbon", "carbon_per_training_run", roundTo(totalKg/runs, 6), "kg_co2e_per_run", assetID, region, observation)
	}

	if reqs, ok := fval(compute, "inference_requests"); ok && reqs > 0 && totalKg > 0 {
		c.add("carbon", "carbon_per_inference_request", roundTo(totalKg/reqs, 6), "kg_co2e_per_request", assetID, region, observation)
	}

	carbon := block(p, "carbon")
	if grid, ok := fval(carbon, "grid_carbon_intensity_kg_per_kwh"); ok {
		c.add("carbon", "grid_carbon_intensity", grid, "kg_co2e_per_kwh", assetID, region, observation)

		if grid > carbonIntensityMax {
			c.alert("grid_carbon_intensity", grid, carbonIntensityMax, "CRITICAL")
		}
	}

	// Water.
	water := block(p, "water")
	if water != nil {
		withdrawal, _ := fval(water, "withdrawal_liters")
		returned, _ := fval(water, "returned_liters")
		consumed, hasConsumed := fval(water, "consumed_liters")
		reclaimed, hasReclaimed := fval(water, "reclaimed_liters")
		evap, _ := fval(water, "evaporation_liters")
		blowdown, _ := fval(water, "blowdown_liters")

		if !hasConsumed {
			consumed = math.Max(0, withdrawal-returned)
		}

		if withdrawal > 0 {
			c.add("water", "total_withdrawal_liters", roundTo(withdrawal, 4), "liters", assetID, region, observation)
		}

		if hasReclaimed && withdrawal > 0 {
			reclaimedPct := roundTo(100.0*reclaimed/withdrawal, 2)
			c.add("water", "reclaimed_water_pct", reclaimedPct, "pct", assetID, region, observation)

			if reclaimedPct < reclaimedWaterMinPct {
				c.alertMin("reclaimed_water_pct", reclaimedPct, reclaimedWaterMinPct, "WARNING")
			}
		}

		if withdrawal > 0 && hasIT && itKWh > 0 {
			totalCooling := evap + blowdown + consumed
			if totalCooling <= 0 {
				totalCooling = withdrawal
			}

			wue := roundTo(totalCooling/itKWh, 6)
			c.add("water", "wue", wue, "L_per_kWh", assetID, region, observation)
			c.summary.WUE = &wue

			if wue > wueMax {
				c.alert("wue", wue, wueMax, "WARNING")
			}
		}

		if hasWorkload && workloadHours > 0 && withdrawal > 0 {
			perHour := roundTo(withdrawal/workloadHours, 6)
			c.add("water", "water_per_workload_hour", perHour, "liters_per_workload_hour", assetID, region, observation)

			if perHour > waterPerWorkloadHourMax {
				c.alert("water_per_workload_hour", perHour, waterPerWorkloadHourMax, "WARNING")
			}
		}
	}

	// Efficiency.
	if hasFacility && hasIT && itKWh > 0 {
		pue := roundTo(facilityKWh/itKWh, 4)
		c.add("efficiency", "pue", pue, "ratio", assetID, region, observation)
		c.summary.PUE = &pue

		if pue > pueMax {
			c.alert("pue", pue, pueMax, "WARNING")
		}

		if facilityKWh > 0 {
			c.add("efficiency", "dcie", roundTo(itKWh/facilityKWh, 4), "ratio", assetID, region, observation)
		}

		if hasCooling && facilityKWh > 0 {
			coolPct := roundTo(100.0*coolingKWh/facilityKWh, 2)
			c.add("efficiency", "cooling_energy_pct", coolPct, "pct", assetID, region, observation)

			if coolPct > coolingEnergyPctMax {
				c.alert("cooling_energy_pct", coolPct, coolingEnergyPctMax, "WARNING")
			}
		}

		if hasWorkload && workloadHours > 0 {
			c.add("efficiency", "energy_per_workload_hour", roundTo(itKWh/workloadHours, 6), "kWh_per_workload_hour", assetID, region, observation)
		}
	}

	// Hardware.
	hardware := block(p, "hardware")
	if hardware != nil {
		if util, ok := fval(hardware, "utilization_pct"); ok {
			clamped := roundTo(math.Max(0, math.Min(100, util)), 2)
			c.add("hardware", "utilization_pct", clamped, "pct", assetID, region, observation)
			c.summary.UtilizationPct = &clamped
		}

		if idle, ok := fval(hardware, "idle_rate_pct"); ok {
			c.add("hardware", "idle_rate_pct", roundTo(math.Max(0, math.Min(100, idle)), 2), "pct", assetID, region, observation)
		}
	}

	// Data quality confidence: completeness and latency raise it,
	// outlier/drift flags lower it.
	dq := block(p, "data_quality")
	if dq != nil {
		completeness, hasCompleteness := fval(dq, "completeness_pct")
		if !hasCompleteness {
			completeness = 100.0
		}

		latency, _ := fval(dq, "latency_seconds")

		outlier := 1.0
		if bval(dq, "outlier_flag") {
			outlier = 0.0
		}

		drift := 1.0
		if bval(dq, "drift_flag") {
			drift = 0.0

			c.alerts = append(c.alerts, models.AlertDetail{
				Metric:    "sensor_drift",
				Value:     true,
				Severity:  "WARNING",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}

		latScore := math.Max(0, 1.0-latency/600.0)
		score := completeness/100.0*0.4 + latScore*0.3 + outlier*0.15 + drift*0.15
		c.add("data_quality", "confidence_score", roundTo(math.Min(1, math.Max(0, score)), 4), "0-1", assetID, region, observation)
	}

	return c
}

// buildScorecard computes the weighted composite sustainability score.
// Each component is normalized 0-1 and inverted where lower is better,
// so a higher score is always more sustainable.
func buildScorecard(summary models.IngestSummary) *models.Scorecard {
	cNorm := normalizeAgainstBaseline(summary.CarbonPerWorkloadHour, carbonIntensityBaseline)
	wNorm := 0.0 // water per workload hour not carried in the summary
	eNorm := normalizeEfficiency(summary.PUE)
	uNorm := normalizeUtilization(summary.UtilizationPct)

	score := weightCarbon*(1.0-cNorm) + weightWater*(1.0-wNorm) + weightEfficiency*(1.0-eNorm) + weightHardware*uNorm
	score = roundTo(math.Min(1, math.Max(0, score)), 4)

	return &models.Scorecard{
		Score:    score,
		Score100: roundTo(score*100.0, 2),
		Components: map[string]float64{
			"carbon_normalized":      cNorm,
			"water_normalized":       wNorm,
			"efficiency_normalized":  eNorm,
			"utilization_normalized": uNorm,
		},
		Weights: map[string]float64{
			"carbon":     weightCarbon,
			"water":      weightWater,
			"efficiency": weightEfficiency,
			"hardware":   weightHardware,
		},
	}
}

func normalizeAgainstBaseline(value *float64, baseline float64) float64 {
	if value == nil || *value <= 0 {
		return 0.0
	}

	if *value >= baseline {
		return 1.0
	}

	return roundTo(*value/baseline, 4)
}

func normalizeEfficiency(ratio *float64) float64 {
	if ratio == nil || *ratio <= 0 {
		return 1.0 // missing data treated as worst
	}

	if *ratio <= energyEfficiencyTarget {
		return 0.0
	}

	if *ratio >= energyEfficiencyBaseline {
		return 1.0
	}

	return roundTo((*ratio-energyEfficiencyTarget)/(energyEfficiencyBaseline-energyEfficiencyTarget), 4)
}

func normalizeUtilization(pct *float64) float64 {
	if pct == nil || *pct <= 0 {
		return 0.0
	}

	if *pct >= utilizationTarget {
		return 1.0
	}

	return roundTo(*pct/utilizationTarget, 4)
}
