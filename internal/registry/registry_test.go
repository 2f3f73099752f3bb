package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleRegistry = `{
  "providers": [
    {
      "id": "anthropic",
      "name": "Anthropic",
      "type": "anthropic",
      "enabled": true,
      "settings": [
        {"key": "api_key", "label": "API Key", "type": "password", "env_var": "TEST_ANTHROPIC_KEY", "required": true},
        {"key": "region", "label": "Region", "type": "text", "default": "us"}
      ]
    },
    {
      "id": "openai",
      "name": "OpenAI",
      "type": "openai",
      "enabled": false
    }
  ]
}`

func newTestRegistry(t *testing.T, content string) *Registry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	r := New(path, filepath.Join(dir, ".env"), zap.NewNop())
	require.NoError(t, r.Load())
	return r
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	r := newTestRegistry(t, "")
	assert.Empty(t, r.All())
}

func TestLoadDerivesStatus(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)

	rec, ok := r.Get("anthropic")
	require.True(t, ok)
	assert.Equal(t, StatusOffline, rec.Status)

	rec, ok = r.Get("openai")
	require.True(t, ok)
	assert.Equal(t, StatusDisabled, rec.Status)
}

func TestLoadDuplicateKeepsFirst(t *testing.T) {
	r := newTestRegistry(t, `{"providers": [
		{"id": "a", "name": "First", "type": "mock", "enabled": true},
		{"id": "a", "name": "Second", "type": "mock", "enabled": false}
	]}`)

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, "First", all[0].Name)
}

func TestEnabledPreservesFileOrder(t *testing.T) {
	r := newTestRegistry(t, `{"providers": [
		{"id": "c", "name": "C", "type": "mock", "enabled": true},
		{"id": "a", "name": "A", "type": "mock", "enabled": false},
		{"id": "b", "name": "B", "type": "mock", "enabled": true}
	]}`)

	enabled := r.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "c", enabled[0].ID)
	assert.Equal(t, "b", enabled[1].ID)
}

func TestSaveStripsRuntimeFields(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)
	r.SetStatus("anthropic", StatusError, "bad key")
	require.NoError(t, r.Save())

	data, err := os.ReadFile(r.path)
	require.NoError(t, err)

	var file registryFile
	require.NoError(t, json.Unmarshal(data, &file))
	require.Len(t, file.Providers, 2)
	assert.Empty(t, file.Providers[0].InitError)
}

func TestEnsure(t *testing.T) {
	r := newTestRegistry(t, "")

	rec := r.Ensure("groq", "Groq", "openai")
	assert.True(t, rec.Enabled)
	assert.Equal(t, StatusOffline, rec.Status)

	// A second Ensure returns the existing record untouched.
	require.NoError(t, r.SetEnabled("groq", false))
	rec = r.Ensure("groq", "Other", "other")
	assert.Equal(t, "Groq", rec.Name)
	assert.False(t, rec.Enabled)
}

func TestSetEnabled(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)

	require.NoError(t, r.SetEnabled("openai", true))
	rec, _ := r.Get("openai")
	assert.True(t, rec.Enabled)
	assert.Equal(t, StatusOffline, rec.Status)

	require.NoError(t, r.SetEnabled("openai", false))
	rec, _ = r.Get("openai")
	assert.Equal(t, StatusDisabled, rec.Status)

	assert.Error(t, r.SetEnabled("nope", true))
}

func TestSettingValue(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)

	// Default applies when no env var is set.
	v, err := r.SettingValue("anthropic", "region")
	require.NoError(t, err)
	assert.Equal(t, "us", v)

	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	v, err = r.SettingValue("anthropic", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", v)

	_, err = r.SettingValue("anthropic", "missing")
	assert.Error(t, err)
	_, err = r.SettingValue("nope", "api_key")
	assert.Error(t, err)
}

func TestUpdateSettingsPersistsEnv(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)
	t.Setenv("TEST_ANTHROPIC_KEY", "")

	// Pre-seed an unrelated key the update must not clobber.
	require.NoError(t, godotenv.Write(map[string]string{"UNRELATED": "keep-me"}, r.envPath))

	err := r.UpdateSettings("anthropic", map[string]string{"api_key": "sk-new"})
	require.NoError(t, err)

	assert.Equal(t, "sk-new", os.Getenv("TEST_ANTHROPIC_KEY"))

	env, err := godotenv.Read(r.envPath)
	require.NoError(t, err)
	assert.Equal(t, "sk-new", env["TEST_ANTHROPIC_KEY"])
	assert.Equal(t, "keep-me", env["UNRELATED"])
}

func TestUpdateSettingsEmptyValueRemovesEnvKey(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)
	t.Setenv("TEST_ANTHROPIC_KEY", "old")
	require.NoError(t, godotenv.Write(map[string]string{"TEST_ANTHROPIC_KEY": "old"}, r.envPath))

	require.NoError(t, r.UpdateSettings("anthropic", map[string]string{"api_key": ""}))

	env, err := godotenv.Read(r.envPath)
	require.NoError(t, err)
	_, present := env["TEST_ANTHROPIC_KEY"]
	assert.False(t, present)
}

func TestUpdateSettingsRejectsUndeclaredKey(t *testing.T) {
	r := newTestRegistry(t, sampleRegistry)
	err := r.UpdateSettings("anthropic", map[string]string{"bogus": "x"})
	assert.ErrorContains(t, err, "setting not found")
}
