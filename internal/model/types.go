// Package model defines shared data structures.
package model

import "time"

// Phase identifies a timer sub-mode.
type Phase string

// Timer phases.
const (
	PhaseIdle        Phase = "idle"
	PhasePreparation Phase = "preparation"
	PhaseSpeaking    Phase = "speaking"
)

// Settings defines practice settings owned by the host.
type Settings struct {
	Dataset    string `toml:"dataset"`
	Prompts    int    `toml:"prompts"`
	PrepTime   int    `toml:"prep-time"`
	SpeakTime  int    `toml:"speak-time"`
	AutoStart  bool   `toml:"auto-start"`
	ForceSame  bool   `toml:"force-same"`
	Alert      bool   `toml:"alert"`
	AlertSound bool   `toml:"alert-sound"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Dataset:    "ncfca_impromptu",
		Prompts:    2,
		PrepTime:   120,
		SpeakTime:  300,
		AutoStart:  true,
		ForceSame:  false,
		Alert:      true,
		AlertSound: false,
	}
}

// TopicPick is one drawn topic.
type TopicPick struct {
	Category string
	Text     string
}

// Category is a named, ordered group of topics.
type Category struct {
	Name   string
	Topics []string
}

// Dataset is a categorized topic collection.
type Dataset struct {
	Key        string
	Name       string
	Tagline    string
	Categories []Category
}

// Topics returns the dataset as a category to topic-list mapping.
func (d Dataset) Topics() map[string][]string {
	out := make(map[string][]string, len(d.Categories))
	for _, c := range d.Categories {
		out[c.Name] = c.Topics
	}
	return out
}

// CategoryNames returns category names in dataset order.
func (d Dataset) CategoryNames() []string {
	names := make([]string, len(d.Categories))
	for i, c := range d.Categories {
		names[i] = c.Name
	}
	return names
}

// TopicCount returns the total number of topics across categories.
func (d Dataset) TopicCount() int {
	total := 0
	for _, c := range d.Categories {
		total += len(c.Topics)
	}
	return total
}

// HistoryEntry records a completed practice session.
type HistoryEntry struct {
	ID        string
	CreatedAt time.Time
	Dataset   string
	Topics    []TopicPick
}

// CategoryCount aggregates how often a category was drawn.
type CategoryCount struct {
	Category string
	Count    int
}

// Settings limits.
const (
	MinPrompts   = 1
	MaxPrompts   = 5
	MaxPrepTime  = 600
	MinSpeakTime = 60
	MaxSpeakTime = 900
)

// Sanitized replaces out-of-range values with defaults.
func (s Settings) Sanitized() Settings {
	def := DefaultSettings()
	if s.Dataset == "" {
		s.Dataset = def.Dataset
	}
	if s.Prompts < MinPrompts || s.Prompts > MaxPrompts {
		s.Prompts = def.Prompts
	}
	if s.PrepTime < 0 || s.PrepTime > MaxPrepTime {
		s.PrepTime = def.PrepTime
	}
	if s.SpeakTime < MinSpeakTime || s.SpeakTime > MaxSpeakTime {
		s.SpeakTime = def.SpeakTime
	}
	return s
}
