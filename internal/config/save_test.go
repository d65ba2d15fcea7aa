package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveValue_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	err := SaveValue(configPath, "ui.show_preview", true)
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ui:")
	assert.Contains(t, string(data), "show_preview: true")
}

func TestSaveValue_PreservesCommentsAndOtherKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(configPath))

	err := SaveValue(configPath, "ui.show_preview", true)
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Vitae Configuration")
	assert.Contains(t, content, "# Start with the preview pane open")
	assert.Contains(t, content, "show_preview: true")
	assert.NotContains(t, content, "show_preview: false")
	assert.Contains(t, content, "markdown_style: dark")
	assert.Contains(t, content, "debounce: 2s")
}

func TestSaveValue_Roundtrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(configPath))

	require.NoError(t, SaveValue(configPath, "ui.markdown_style", "light"))
	require.NoError(t, SaveValue(configPath, "history.max_entries", 120))
	require.NoError(t, SaveValue(configPath, "flags.assist", true))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "light", cfg.UI.MarkdownStyle)
	assert.Equal(t, 120, cfg.History.MaxEntries)
	assert.True(t, cfg.Flags["assist"])
	assert.Equal(t, Defaults().Autosave, cfg.Autosave)
}

func TestSaveValue_AddsTopLevelKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui:\n  markdown_style: dark\n"), 0o600))

	require.NoError(t, SaveValue(configPath, "export_dir", "/tmp/out"))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "/tmp/out", v.GetString("export_dir"))
	assert.Equal(t, "dark", v.GetString("ui.markdown_style"))
}

func TestSaveValue_RejectsBadInput(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui: dark\n"), 0o600))

	err := SaveValue(configPath, "ui.markdown_style", "light")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a mapping")

	err = SaveValue(configPath, "ui..style", "light")
	require.Error(t, err)

	err = SaveValue(configPath, "flags", map[string]bool{"assist": true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only scalar")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "ui: dark\n", string(data), "failed saves leave the file untouched")
}

func TestSaveValue_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui: [unclosed\n"), 0o600))

	err := SaveValue(configPath, "ui.show_preview", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}
