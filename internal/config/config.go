// Package config provides configuration types and defaults for vitae.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/tracing"
)

// Config holds all configuration options for vitae.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	ExportDir string          `mapstructure:"export_dir"`
	History   HistoryConfig   `mapstructure:"history"`
	Autosave  AutosaveConfig  `mapstructure:"autosave"`
	UI        UIConfig        `mapstructure:"ui"`
	Assist    AssistConfig    `mapstructure:"assist"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// HistoryConfig holds undo/redo settings.
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// AutosaveConfig holds save scheduling settings.
type AutosaveConfig struct {
	Debounce time.Duration `mapstructure:"debounce"` // quiet period before a save
	Interval time.Duration `mapstructure:"interval"` // periodic flush cadence
	// ExitTimeout bounds the final flush when the editor quits.
	ExitTimeout time.Duration `mapstructure:"exit_timeout"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
	ShowPreview   bool   `mapstructure:"show_preview"`   // Open with the preview pane visible
}

// AssistConfig holds text generation settings.
type AssistConfig struct {
	// APIKey takes precedence over APIKeyEnv.
	APIKey    string        `mapstructure:"api_key"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// ResolveAPIKey returns the configured key, falling back to the environment
// variable named by APIKeyEnv.
func (a AssistConfig) ResolveAPIKey() string {
	if a.APIKey != "" {
		return a.APIKey
	}
	if a.APIKeyEnv != "" {
		return os.Getenv(a.APIKeyEnv)
	}
	return ""
}

// DatabasePath returns the SQLite file inside DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "vitae.db")
}

// DefaultDataDir returns ~/.vitae or empty string if home dir unavailable.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vitae")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/vitae/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vitae", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	traces := tracing.DefaultConfig()
	traces.FilePath = DefaultTracesFilePath()

	return Config{
		DataDir:   DefaultDataDir(),
		ExportDir: ".",
		History: HistoryConfig{
			MaxEntries: 50,
		},
		Autosave: AutosaveConfig{
			Debounce:    2 * time.Second,
			Interval:    30 * time.Second,
			ExitTimeout: 3 * time.Second,
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
		},
		Assist: AssistConfig{
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "gpt-4o-mini",
			CacheTTL:  30 * time.Minute,
		},
		Tracing: traces,
		Flags:   map[string]bool{},
	}
}

// Validate checks every section.
func Validate(c Config) error {
	if err := ValidateHistory(c.History); err != nil {
		return err
	}
	if err := ValidateAutosave(c.Autosave); err != nil {
		return err
	}
	if err := ValidateUI(c.UI); err != nil {
		return err
	}
	if err := ValidateAssist(c.Assist); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateHistory checks history configuration for errors.
func ValidateHistory(h HistoryConfig) error {
	if h.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative, got %d", h.MaxEntries)
	}
	return nil
}

// ValidateAutosave checks autosave configuration for errors.
// Zero durations are valid and select the built-in defaults.
func ValidateAutosave(a AutosaveConfig) error {
	if a.Debounce < 0 {
		return fmt.Errorf("autosave.debounce must not be negative, got %s", a.Debounce)
	}
	if a.Interval < 0 {
		return fmt.Errorf("autosave.interval must not be negative, got %s", a.Interval)
	}
	if a.Interval > 0 && a.Debounce > a.Interval {
		return fmt.Errorf("autosave.debounce (%s) must not exceed autosave.interval (%s)", a.Debounce, a.Interval)
	}
	if a.ExitTimeout < 0 {
		return fmt.Errorf("autosave.exit_timeout must not be negative, got %s", a.ExitTimeout)
	}
	return nil
}

// ValidateUI checks UI configuration for errors.
func ValidateUI(u UIConfig) error {
	switch u.MarkdownStyle {
	case "", "dark", "light":
		return nil
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\" or \"light\", got %q", u.MarkdownStyle)
	}
}

// ValidateAssist checks assist configuration for errors. A missing key is
// not an error here; it is reported when assist is used.
func ValidateAssist(a AssistConfig) error {
	if a.CacheTTL < 0 {
		return fmt.Errorf("assist.cache_ttl must not be negative, got %s", a.CacheTTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Vitae Configuration

# Where résumés are stored (default: ~/.vitae)
# data_dir: /path/to/data

# Where ctrl+e writes markdown exports (default: current directory)
export_dir: .

# Undo/redo
history:
  max_entries: 50   # Snapshots kept per editing session

# Automatic saving
autosave:
  debounce: 2s      # Save after input has been quiet this long
  interval: 30s     # Also save pending changes on this cadence
  exit_timeout: 3s  # Longest wait for the final save when quitting

# UI settings
ui:
  markdown_style: dark  # Preview rendering style: "dark" (default) or "light"
  show_preview: false   # Start with the preview pane open (toggle with ctrl+p)

# Writing assistance (ctrl+g, requires the "assist" flag)
assist:
  # api_key: sk-...             # Prefer api_key_env over storing the key here
  api_key_env: OPENAI_API_KEY  # Environment variable holding the key
  # base_url: https://api.openai.com/v1
  model: gpt-4o-mini
  cache_ttl: 30m               # Reuse identical answers for this long

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/vitae/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Feature flags
# flags:
#   assist: true           # Enable ctrl+g text enhancement
#   salary-estimate: true  # Show a salary estimate in the preview
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
