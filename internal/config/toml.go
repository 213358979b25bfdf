// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Trial  TrialConfig  `toml:"trial"`
	Prompt PromptConfig `toml:"prompt"`
}

// TrialConfig maps session-related settings.
type TrialConfig struct {
	Action      *string   `toml:"action"`
	Tags        *[]string `toml:"tags"`
	VisibleTags *[]string `toml:"visible-tags"`
	Rows        *int      `toml:"rows"`
	Cols        *int      `toml:"cols"`
	Catalog     *string   `toml:"catalog"`
	Server      *string   `toml:"server"`
}

// PromptConfig maps prompting and reinforcement settings.
type PromptConfig struct {
	Enable         *bool    `toml:"enable-prompting"`
	UseDelay       *bool    `toml:"use-prompt-delay"`
	Delay          *float64 `toml:"prompt-delay"`
	Type           *string  `toml:"prompt-type"`
	FadePercentage *int     `toml:"fade-percentage"`
	FadeDuration   *float64 `toml:"fade-duration"`
	HighlightColor *string  `toml:"highlight-color"`
	Reinforcement  *bool    `toml:"enable-reinforcement"`
	DanceAnimation *bool    `toml:"enable-dance-animation"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
