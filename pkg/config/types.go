package config

import (
	"encoding/json"
	"fmt"
	"time"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// ServiceEndpoints maps each backend service to its base URL.
type ServiceEndpoints struct {
	Telemetry  string `json:"telemetry"`  // e.g., http://localhost:8083
	Alerts     string `json:"alerts"`     // e.g., http://localhost:8081
	Compliance string `json:"compliance"` // e.g., http://localhost:8080
	Simulator  string `json:"simulator"`  // e.g., http://localhost:8082
}

// PortalConfig represents the configuration for the portal CLI.
type PortalConfig struct {
	Services         ServiceEndpoints `json:"services"`
	StateDir         string           `json:"state_dir"`        // durable portal state (mocks, active tab)
	StateBackend     string           `json:"state_backend"`    // "file" or "sqlite"
	SourceID         string           `json:"source_id"`        // X-Source-ID correlation header
	IngestionSource  string           `json:"ingestion_source"` // X-Ingestion-Source label
	APIKey           string           `json:"api_key"`          // compliance X-API-KEY
	ActivePoll       Duration         `json:"active_poll"`      // dashboard cadence while visible
	InactivePoll     Duration         `json:"inactive_poll"`    // dashboard cadence while hidden
	RequestScorecard bool             `json:"request_scorecard"`
}

// Validate implements the Validator interface.
func (c *PortalConfig) Validate() error {
	if c.Services.Telemetry == "" {
		return fmt.Errorf("services.telemetry is required")
	}

	if c.StateDir == "" {
		c.StateDir = "."
	}

	if c.StateBackend == "" {
		c.StateBackend = "file"
	}

	if time.Duration(c.ActivePoll) == 0 {
		c.ActivePoll = Duration(10 * time.Second)
	}

	if time.Duration(c.InactivePoll) == 0 {
		c.InactivePoll = Duration(60 * time.Second)
	}

	return nil
}

// StubConfig represents the configuration for the stub backend.
type StubConfig struct {
	ListenAddr   string  `json:"listen_addr"`
	DBPath       string  `json:"db_path"` // SQLite metric store; empty for in-memory
	AdminKey     string  `json:"admin_key"`
	AuditorKey   string  `json:"auditor_key"`
	IngestBurst  int     `json:"ingest_burst"`
	IngestPerSec float64 `json:"ingest_per_sec"`
}

// Validate implements the Validator interface.
func (c *StubConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8090"
	}

	if c.IngestBurst <= 0 {
		c.IngestBurst = 20
	}

	if c.IngestPerSec <= 0 {
		c.IngestPerSec = 10
	}

	return nil
}
