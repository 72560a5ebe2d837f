package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/verdantops/esgportal/pkg/config"
	"github.com/verdantops/esgportal/pkg/models"
)

var errUnhealthy = fmt.Errorf("service reported unhealthy")

// API groups the typed clients for every backend service.
type API struct {
	Telemetry  *Client
	Alerts     *Client
	Compliance *Client
	Simulator  *Client
}

// NewAPI builds service clients from the configured endpoints.
func NewAPI(eps config.ServiceEndpoints) *API {
	return &API{
		Telemetry:  New(eps.Telemetry),
		Alerts:     New(eps.Alerts),
		Compliance: New(eps.Compliance),
		Simulator:  New(eps.Simulator),
	}
}

// IngestOptions selects the correlation metadata and scorecard toggle for
// a sustainability ingestion.
type IngestOptions struct {
	SourceID        string
	IngestionSource string
	Scorecard       bool
}

// IngestSustainability submits a payload to POST /ingest. The scorecard
// toggle travels as a query parameter, everything else as headers.
func (a *API) IngestSustainability(ctx context.Context, payload map[string]any, opts IngestOptions) (*models.IngestResponse, error) {
	ro := &RequestOptions{
		RequestID:       uuid.NewString(),
		SourceID:        opts.SourceID,
		IngestionSource: opts.IngestionSource,
	}

	if opts.Scorecard {
		ro.Query = url.Values{"scorecard": {"1"}}
	}

	var out models.IngestResponse
	if err := a.Telemetry.FetchInto(ctx, http.MethodPost, "/ingest", payload, &out, ro); err != nil {
		return nil, err
	}

	return &out, nil
}

// ProcessLegacyTelemetry submits a payload verbatim to the legacy alerts
// endpoint.
func (a *API) ProcessLegacyTelemetry(ctx context.Context, payload map[string]any) (*models.LegacyResponse, error) {
	ro := &RequestOptions{RequestID: uuid.NewString()}

	var out models.LegacyResponse
	if err := a.Alerts.FetchInto(ctx, http.MethodPost, "/process-telemetry", payload, &out, ro); err != nil {
		return nil, err
	}

	return &out, nil
}

// MetricsReport fetches the grouped metrics report.
func (a *API) MetricsReport(ctx context.Context) (*models.MetricsReport, error) {
	var out models.MetricsReport
	if err := a.Telemetry.FetchInto(ctx, http.MethodGet, "/metrics/report", nil, &out, nil); err != nil {
		return nil, err
	}

	return &out, nil
}

// ValidateCompliance submits a report for validation. apiKey travels as
// the X-API-KEY header; a bad key surfaces as a 403 *APIError.
func (a *API) ValidateCompliance(ctx context.Context, report map[string]any, apiKey string) (*models.ComplianceResult, error) {
	ro := &RequestOptions{
		RequestID: uuid.NewString(),
		APIKey:    apiKey,
	}

	var out models.ComplianceResult
	if err := a.Compliance.FetchInto(ctx, http.MethodPost, "/validate", report, &out, ro); err != nil {
		return nil, err
	}

	return &out, nil
}

// SimulationRequest is the what-if simulator input.
type SimulationRequest struct {
	CurrentFootprint float64 `json:"current_footprint"`
	EnergyMixShift   float64 `json:"energy_mix_shift"`
	EfficiencyGain   float64 `json:"efficiency_gain"`
}

// Simulate projects a carbon footprint for the given scenario.
func (a *API) Simulate(ctx context.Context, req SimulationRequest) (*models.SimulationResult, error) {
	var out models.SimulationResult
	if err := a.Simulator.FetchInto(ctx, http.MethodPost, "/simulate", req, &out, nil); err != nil {
		return nil, err
	}

	return &out, nil
}

// Health checks a single service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	result, err := c.Fetch(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}

	if s, ok := result.(string); ok && s != "OK" && s != "" {
		return fmt.Errorf("%w: %s", errUnhealthy, s)
	}

	return nil
}
