// Package sampler draws prompt topics from a categorized dataset.
package sampler

import (
	"math/rand"
	"sort"
	"time"

	"github.com/verte-zerg/impromptu/internal/model"
)

// MaxAttempts bounds the number of draws made by a single Sample call.
const MaxAttempts = 100

// Sampler produces randomized topic picks.
type Sampler struct {
	rnd *rand.Rand
}

// Result is the detailed outcome of a sampling call.
type Result struct {
	Picks    []model.TopicPick
	Attempts int
	// Exhausted is set when fewer picks than requested could be found.
	Exhausted bool
}

// New returns a Sampler using the given random source.
func New(rnd *rand.Rand) *Sampler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rnd: rnd}
}

// NewSeeded returns a Sampler with a fixed seed.
func NewSeeded(seed int64) *Sampler {
	return New(rand.New(rand.NewSource(seed)))
}

// Sample draws up to count topics with unique text.
func (s *Sampler) Sample(topics map[string][]string, enabled map[string]bool, count int, forceSame bool) []model.TopicPick {
	return s.SampleDetailed(topics, enabled, count, forceSame).Picks
}

// SampleDetailed is Sample with attempt and exhaustion reporting.
func (s *Sampler) SampleDetailed(topics map[string][]string, enabled map[string]bool, count int, forceSame bool) Result {
	active := ActiveCategories(topics, enabled)
	if len(active) == 0 || count <= 0 {
		return Result{Picks: []model.TopicPick{}, Exhausted: count > 0}
	}

	forced := ""
	if forceSame {
		forced = active[s.rnd.Intn(len(active))]
	}

	picks := make([]model.TopicPick, 0, count)
	used := make(map[string]struct{}, count)
	attempts := 0
	for len(picks) < count && attempts < MaxAttempts {
		attempts++
		cat := forced
		if cat == "" {
			cat = active[s.rnd.Intn(len(active))]
		}
		list := topics[cat]
		text := list[s.rnd.Intn(len(list))]
		if _, ok := used[text]; ok {
			continue
		}
		used[text] = struct{}{}
		picks = append(picks, model.TopicPick{Category: cat, Text: text})
	}
	return Result{
		Picks:     picks,
		Attempts:  attempts,
		Exhausted: len(picks) < count,
	}
}

// ActiveCategories returns enabled categories present in topics with at least
// one topic, sorted by name.
func ActiveCategories(topics map[string][]string, enabled map[string]bool) []string {
	active := make([]string, 0, len(enabled))
	for name, on := range enabled {
		if !on {
			continue
		}
		if len(topics[name]) == 0 {
			continue
		}
		active = append(active, name)
	}
	sort.Strings(active)
	return active
}
