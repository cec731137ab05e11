// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/impromptu/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Preset     *string `toml:"preset"`
	Dataset    *string `toml:"dataset"`
	Prompts    *int    `toml:"prompts"`
	PrepTime   *int    `toml:"prep-time"`
	SpeakTime  *int    `toml:"speak-time"`
	AutoStart  *bool   `toml:"auto-start"`
	ForceSame  *bool   `toml:"force-same"`
	Alert      *bool   `toml:"alert"`
	AlertSound *bool   `toml:"alert-sound"`
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

// Apply overlays set values onto s. A preset is applied first so explicit
// values win over it.
func (p PracticeConfig) Apply(s model.Settings) (model.Settings, error) {
	if p.Preset != nil {
		var err error
		if s, err = ApplyPreset(s, *p.Preset); err != nil {
			return s, err
		}
	}
	setString(&s.Dataset, p.Dataset)
	setInt(&s.Prompts, p.Prompts)
	setInt(&s.PrepTime, p.PrepTime)
	setInt(&s.SpeakTime, p.SpeakTime)
	setBool(&s.AutoStart, p.AutoStart)
	setBool(&s.ForceSame, p.ForceSame)
	setBool(&s.Alert, p.Alert)
	setBool(&s.AlertSound, p.AlertSound)
	return s, nil
}

// Validate reports the first out-of-range setting.
func Validate(s model.Settings) error {
	if s.Dataset == "" {
		return fmt.Errorf("dataset must not be empty")
	}
	if s.Prompts < model.MinPrompts || s.Prompts > model.MaxPrompts {
		return fmt.Errorf("prompts must be between %d and %d", model.MinPrompts, model.MaxPrompts)
	}
	if s.PrepTime < 0 || s.PrepTime > model.MaxPrepTime {
		return fmt.Errorf("prep time must be between 0 and %d seconds", model.MaxPrepTime)
	}
	if s.SpeakTime < model.MinSpeakTime || s.SpeakTime > model.MaxSpeakTime {
		return fmt.Errorf("speak time must be between %d and %d seconds", model.MinSpeakTime, model.MaxSpeakTime)
	}
	return nil
}

func setString(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setBool(target, value *bool) {
	if value != nil {
		*target = *value
	}
}
