package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

func TestSettingsShow(t *testing.T) {
	settings := newMockSettings()
	settings.entries = []driving.SettingEntry{
		{Key: "discord.token", Value: "abcd1234efgh5678", Secret: true},
		{Key: "fetch.page_delay_ms", Value: "1000"},
		{Key: "classifier.openai_api_key", Secret: true},
	}
	cleanup := setupServices(&Services{Settings: settings})
	defer cleanup()

	out, err := execute(t, "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "discord.token             = abcd...5678")
	assert.Contains(t, out, "fetch.page_delay_ms       = 1000")
	assert.Contains(t, out, "classifier.openai_api_key = (not set)")
	assert.NotContains(t, out, "abcd1234efgh5678")
	assert.NotContains(t, out, "Warning")
}

func TestSettingsShow_ValidationWarning(t *testing.T) {
	settings := newMockSettings()
	settings.validateErr = errors.New("archive.s3_bucket is required for the s3 backend")
	cleanup := setupServices(&Services{Settings: settings})
	defer cleanup()

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: archive.s3_bucket is required")
}

func TestSettingsSet(t *testing.T) {
	settings := newMockSettings()
	cleanup := setupServices(&Services{Settings: settings})
	defer cleanup()

	out, err := execute(t, "settings", "set", "classifier.use_remote", "true")

	require.NoError(t, err)
	assert.Equal(t, "classifier.use_remote", settings.setKey)
	assert.Equal(t, "true", settings.setValue)
	assert.Contains(t, out, "classifier.use_remote updated.")
}

func TestSettingsSet_Error(t *testing.T) {
	settings := newMockSettings()
	settings.setErr = errors.New("invalid value")
	cleanup := setupServices(&Services{Settings: settings})
	defer cleanup()

	_, err := execute(t, "settings", "set", "fetch.page_delay_ms", "soon")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set fetch.page_delay_ms")
}

func TestSettingsSet_Args(t *testing.T) {
	cleanup := setupServices(&Services{Settings: newMockSettings()})
	defer cleanup()

	_, err := execute(t, "settings", "set", "only-key")

	assert.Error(t, err)
}
