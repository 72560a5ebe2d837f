// Package models pkg/models/telemetry.go
package models

// Metric is a single datapoint from the metrics report endpoint.
type Metric struct {
	MetricType   string         `json:"metric_type"`
	Value        float64        `json:"value"`
	Unit         string         `json:"unit"`
	AssetID      string         `json:"asset_id,omitempty"`
	Region       string         `json:"region,omitempty"`
	TimestampUTC string         `json:"timestamp_utc,omitempty"`
	Lineage      map[string]any `json:"lineage,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// MetricsReport groups metrics by category, as returned by
// GET /api/telemetry/metrics/report.
type MetricsReport struct {
	Carbon              []Metric `json:"carbon"`
	Water               []Metric `json:"water"`
	Efficiency          []Metric `json:"efficiency"`
	Hardware            []Metric `json:"hardware"`
	DataQuality         []Metric `json:"data_quality"`
	Mediation           []Metric `json:"mediation,omitempty"`
	SustainabilityScore *float64 `json:"sustainability_score,omitempty"`
}

// AlertDetail describes a single threshold breach.
type AlertDetail struct {
	Metric       string   `json:"metric"`
	Value        any      `json:"value"`
	Threshold    *float64 `json:"threshold,omitempty"`
	ThresholdMin *float64 `json:"threshold_min,omitempty"`
	Severity     string   `json:"severity"`
	Timestamp    string   `json:"timestamp"`
}

// IngestSummary carries the derived headline numbers of one ingestion.
type IngestSummary struct {
	CarbonKgCO2e          float64  `json:"carbon_kg_co2e"`
	CarbonPerWorkloadHour *float64 `json:"carbon_per_workload_hour,omitempty"`
	CarbonIntensity       *float64 `json:"carbon_intensity,omitempty"`
	CarbonIntensityUnit   string   `json:"carbon_intensity_unit,omitempty"`
	PUE                   *float64 `json:"pue,omitempty"`
	WUE                   *float64 `json:"wue,omitempty"`
	UtilizationPct        *float64 `json:"utilization_pct,omitempty"`
}

// Scorecard is the optional composite sustainability score returned
// alongside an ingestion acceptance.
type Scorecard struct {
	Score      float64            `json:"sustainability_score"`
	Score100   float64            `json:"sustainability_score_100"`
	Components map[string]float64 `json:"components"`
	Weights    map[string]float64 `json:"weights"`
}

// IngestResponse is the acceptance response of POST /api/telemetry/ingest.
type IngestResponse struct {
	Status             string         `json:"status"`
	RawID              int64          `json:"raw_id"`
	ObservationTimeUTC string         `json:"observation_time_utc"`
	Summary            *IngestSummary `json:"summary,omitempty"`
	Scorecard          *Scorecard     `json:"scorecard,omitempty"`
	Alerts             []AlertDetail  `json:"alerts,omitempty"`
	Severity           string         `json:"severity,omitempty"`
}

// LegacyResponse is the response of POST /api/alerts/process-telemetry.
type LegacyResponse struct {
	Status   string        `json:"status"`
	Details  []AlertDetail `json:"details,omitempty"`
	Severity string        `json:"severity,omitempty"`
}

// ComplianceResult is the response of POST /api/compliance/validate.
type ComplianceResult struct {
	Status            string `json:"status"`
	ValidatedBy       string `json:"validated_by"`
	MediationFindings string `json:"mediation_findings,omitempty"`
}

// SimulationResult is the response of POST /api/simulator/simulate.
type SimulationResult struct {
	ProjectedFootprint float64 `json:"projected_footprint"`
	Unit               string  `json:"unit"`
}
