package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadUI re-reads the ui section of configPath. Keys missing from the file
// fall back to Defaults.
func LoadUI(configPath string) (UIConfig, error) {
	defaults := Defaults().UI
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetDefault("ui.markdown_style", defaults.MarkdownStyle)
	v.SetDefault("ui.show_preview", defaults.ShowPreview)

	if err := v.ReadInConfig(); err != nil {
		return UIConfig{}, fmt.Errorf("reading config: %w", err)
	}
	var ui UIConfig
	if err := v.UnmarshalKey("ui", &ui); err != nil {
		return UIConfig{}, fmt.Errorf("decoding ui config: %w", err)
	}
	if ui.MarkdownStyle == "" {
		ui.MarkdownStyle = defaults.MarkdownStyle
	}
	if err := ValidateUI(ui); err != nil {
		return UIConfig{}, err
	}
	return ui, nil
}
