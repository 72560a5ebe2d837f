package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"String duration", `"30s"`, 30 * time.Second, false},
		{"Compound string duration", `"1m30s"`, 90 * time.Second, false},
		{"Numeric nanoseconds", `5000000000`, 5 * time.Second, false},
		{"Invalid string", `"not-a-duration"`, 0, true},
		{"Invalid type", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestPortalConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"services": {
			"telemetry":  "http://localhost:8090/api/telemetry",
			"alerts":     "http://localhost:8090/api/alerts",
			"compliance": "http://localhost:8090/api/compliance",
			"simulator":  "http://localhost:8090/api/simulator"
		},
		"source_id": "portal-dev"
	}`)

	var cfg PortalConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, "file", cfg.StateBackend)
	assert.Equal(t, ".", cfg.StateDir)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.ActivePoll))
	assert.Equal(t, time.Minute, time.Duration(cfg.InactivePoll))
}

func TestPortalConfigRequiresTelemetryEndpoint(t *testing.T) {
	path := writeConfig(t, `{"services": {}}`)

	var cfg PortalConfig
	assert.Error(t, LoadAndValidate(path, &cfg))
}

func TestPortalConfigParsesPollCadences(t *testing.T) {
	path := writeConfig(t, `{
		"services": {"telemetry": "http://localhost:8090/api/telemetry"},
		"active_poll": "5s",
		"inactive_poll": "2m"
	}`)

	var cfg PortalConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, 5*time.Second, time.Duration(cfg.ActivePoll))
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.InactivePoll))
}

func TestStubConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	var cfg StubConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, 20, cfg.IngestBurst)
	assert.Equal(t, 10.0, cfg.IngestPerSec)
}

func TestLoadFileMissingPath(t *testing.T) {
	var cfg StubConfig
	assert.Error(t, LoadFile("/nonexistent/config.json", &cfg))
}
