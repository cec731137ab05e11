package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/impromptu/internal/model"
)

// Preset bundles a dataset with competition timings.
type Preset struct {
	Name      string
	Label     string
	Dataset   string
	PrepTime  int
	SpeakTime int
}

var presets = map[string]Preset{
	"impromptu": {
		Name:      "impromptu",
		Label:     "NCFCA Impromptu (2m prep / 5m speak)",
		Dataset:   "ncfca_impromptu",
		PrepTime:  120,
		SpeakTime: 300,
	},
	"apologetics": {
		Name:      "apologetics",
		Label:     "NCFCA Apologetics (4m prep / 6m speak)",
		Dataset:   "ncfca_apologetics",
		PrepTime:  240,
		SpeakTime: 360,
	},
}

// Presets returns all presets sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ApplyPreset sets the dataset and timings of the named preset.
func ApplyPreset(s model.Settings, name string) (model.Settings, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(presets))
		for _, p := range Presets() {
			names = append(names, p.Name)
		}
		return s, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	s.Dataset = p.Dataset
	s.PrepTime = p.PrepTime
	s.SpeakTime = p.SpeakTime
	return s, nil
}
