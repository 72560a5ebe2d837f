package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantops/esgportal/pkg/models"
)

func TestRealizeGeneratesFreshIdentifiers(t *testing.T) {
	for _, d := range append(Sustainability(), Legacy()...) {
		first := d.Realize()
		second := d.Realize()

		id1, _ := first["external_event_id"].(string)
		id2, _ := second["external_event_id"].(string)

		assert.NotEmpty(t, id1, d.ID)
		assert.NotEmpty(t, id2, d.ID)
		assert.NotEqual(t, id1, id2, "preset %s must carry a fresh event id per realization", d.ID)
	}
}

func TestRealizeInjectsCurrentTimestamp(t *testing.T) {
	for _, d := range Sustainability() {
		payload := d.Realize()

		ts, ok := payload["timestamp"].(string)
		require.True(t, ok, "preset %s missing timestamp", d.ID)

		parsed, err := time.Parse(time.RFC3339, ts)
		require.NoError(t, err, "preset %s timestamp not RFC3339", d.ID)
		assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
	}
}

func TestPresetTypes(t *testing.T) {
	for _, d := range Sustainability() {
		assert.Equal(t, models.IngestSustainability, d.Type, d.ID)
	}

	for _, d := range Legacy() {
		assert.Equal(t, models.IngestLegacy, d.Type, d.ID)
	}
}

func TestFindUnknownPreset(t *testing.T) {
	_, ok := Find("no-such-preset")
	assert.False(t, ok)
}

func TestPrettyJSONIsValidAndIndented(t *testing.T) {
	d, ok := Find("office-iaq-normal")
	require.True(t, ok)

	text, err := PrettyJSON(d.Realize())
	require.NoError(t, err)

	assert.True(t, json.Valid([]byte(text)))
	assert.Contains(t, text, "\n  \"CO2_ppm\"")
}

func TestNewEventIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id := NewEventID()
		assert.False(t, seen[id], "duplicate event id %s", id)
		seen[id] = true
	}
}
