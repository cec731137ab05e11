// Package dataset loads categorized topic datasets from YAML.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/impromptu/internal/model"
)

// ErrEmpty reports a dataset without any usable topic.
var ErrEmpty = errors.New("dataset has no topics")

type fileCategory struct {
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

type fileDataset struct {
	Name       string         `yaml:"name"`
	Tagline    string         `yaml:"tagline"`
	Categories []fileCategory `yaml:"categories"`
}

// Parse decodes a YAML dataset and normalizes its topics.
func Parse(key string, data []byte) (model.Dataset, error) {
	var raw fileDataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return model.Dataset{}, fmt.Errorf("failed to decode dataset %s: %w", key, err)
	}
	ds := model.Dataset{
		Key:     key,
		Name:    strings.TrimSpace(raw.Name),
		Tagline: strings.TrimSpace(raw.Tagline),
	}
	if ds.Name == "" {
		ds.Name = key
	}
	seenCats := map[string]struct{}{}
	for _, c := range raw.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return model.Dataset{}, fmt.Errorf("dataset %s: category without a name", key)
		}
		if _, ok := seenCats[name]; ok {
			return model.Dataset{}, fmt.Errorf("dataset %s: duplicate category %q", key, name)
		}
		seenCats[name] = struct{}{}
		ds.Categories = append(ds.Categories, model.Category{
			Name:   name,
			Topics: NormalizeTopics(c.Topics),
		})
	}
	if ds.TopicCount() == 0 {
		return model.Dataset{}, fmt.Errorf("dataset %s: %w", key, ErrEmpty)
	}
	return ds, nil
}

// NormalizeTopics trims topics and drops blanks and duplicates, keeping order.
func NormalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
