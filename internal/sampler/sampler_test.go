package sampler

import (
	"testing"

	"github.com/verte-zerg/impromptu/internal/model"
)

func allEnabled(topics map[string][]string) map[string]bool {
	enabled := map[string]bool{}
	for k := range topics {
		enabled[k] = true
	}
	return enabled
}

func assertUniqueText(t *testing.T, picks []model.TopicPick) {
	t.Helper()
	seen := map[string]struct{}{}
	for _, p := range picks {
		if _, ok := seen[p.Text]; ok {
			t.Fatalf("duplicate text %q in %v", p.Text, picks)
		}
		seen[p.Text] = struct{}{}
	}
}

func TestSampleSmallDatasetIsBounded(t *testing.T) {
	topics := map[string][]string{"A": {"x", "y"}, "B": {"z"}}
	for seed := int64(0); seed < 50; seed++ {
		res := NewSeeded(seed).SampleDetailed(topics, allEnabled(topics), 5, false)
		if len(res.Picks) > 3 {
			t.Fatalf("seed %d: expected at most 3 picks, got %d", seed, len(res.Picks))
		}
		assertUniqueText(t, res.Picks)
		if !res.Exhausted {
			t.Fatalf("seed %d: expected exhausted result", seed)
		}
		if res.Attempts > MaxAttempts {
			t.Fatalf("seed %d: attempts %d exceed ceiling", seed, res.Attempts)
		}
	}
}

func TestSampleForceSameCategory(t *testing.T) {
	topics := map[string][]string{
		"A": {"a1", "a2", "a3", "a4"},
		"B": {"b1", "b2", "b3", "b4"},
		"C": {"c1", "c2", "c3", "c4"},
	}
	for seed := int64(0); seed < 50; seed++ {
		picks := NewSeeded(seed).Sample(topics, allEnabled(topics), 3, true)
		if len(picks) == 0 {
			t.Fatalf("seed %d: expected picks", seed)
		}
		for _, p := range picks {
			if p.Category != picks[0].Category {
				t.Fatalf("seed %d: mixed categories %v", seed, picks)
			}
		}
		assertUniqueText(t, picks)
	}
}

func TestSampleCrossCategoryDedup(t *testing.T) {
	topics := map[string][]string{"A": {"same"}, "B": {"same"}}
	picks := NewSeeded(1).Sample(topics, allEnabled(topics), 2, false)
	if len(picks) != 1 {
		t.Fatalf("expected text dedup across categories, got %v", picks)
	}
}

func TestSampleEmptyActiveSet(t *testing.T) {
	topics := map[string][]string{"A": {"x"}, "Empty": {}}
	cases := []map[string]bool{
		{},
		{"A": false},
		{"Empty": true},
		{"Stale": true},
	}
	for _, enabled := range cases {
		res := NewSeeded(7).SampleDetailed(topics, enabled, 2, false)
		if len(res.Picks) != 0 {
			t.Fatalf("expected empty result for %v, got %v", enabled, res.Picks)
		}
		if res.Attempts != 0 {
			t.Fatalf("expected no draws for %v", enabled)
		}
	}
}

func TestSampleIgnoresStaleCategories(t *testing.T) {
	topics := map[string][]string{"A": {"x", "y", "z"}}
	enabled := map[string]bool{"A": true, "Gone": true}
	for seed := int64(0); seed < 20; seed++ {
		for _, p := range NewSeeded(seed).Sample(topics, enabled, 2, false) {
			if p.Category != "A" {
				t.Fatalf("unexpected category %q", p.Category)
			}
		}
	}
}

func TestSampleZeroCount(t *testing.T) {
	topics := map[string][]string{"A": {"x"}}
	if picks := NewSeeded(1).Sample(topics, allEnabled(topics), 0, false); len(picks) != 0 {
		t.Fatalf("expected no picks, got %v", picks)
	}
}

func TestSampleSeededIsReproducible(t *testing.T) {
	topics := map[string][]string{
		"A": {"a1", "a2", "a3"},
		"B": {"b1", "b2", "b3"},
	}
	first := NewSeeded(42).Sample(topics, allEnabled(topics), 3, false)
	second := NewSeeded(42).Sample(topics, allEnabled(topics), 3, false)
	if len(first) != len(second) {
		t.Fatalf("length mismatch: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("seeded output differs at %d: %v vs %v", i, first, second)
		}
	}
}

func TestActiveCategoriesSorted(t *testing.T) {
	topics := map[string][]string{"b": {"1"}, "a": {"2"}, "c": {}}
	got := ActiveCategories(topics, map[string]bool{"a": true, "b": true, "c": true})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected active categories: %v", got)
	}
}

func TestSelectionRejectsLastToggle(t *testing.T) {
	sel := NewSelection([]string{"A", "B"})
	if !sel.Toggle("A") {
		t.Fatalf("expected toggle of A to succeed")
	}
	before := sel.Enabled()
	if sel.Toggle("B") {
		t.Fatalf("expected toggle of last enabled category to be rejected")
	}
	after := sel.Enabled()
	for k, v := range before {
		if after[k] != v {
			t.Fatalf("selection changed after rejected toggle: %v -> %v", before, after)
		}
	}
	if sel.Toggle("B") {
		t.Fatalf("expected repeated rejection")
	}
	if !sel.Toggle("A") {
		t.Fatalf("expected re-enable of A")
	}
	if sel.EnabledCount() != 2 {
		t.Fatalf("expected 2 enabled, got %d", sel.EnabledCount())
	}
}

func TestSelectionKeepsOneCategoryWithTopics(t *testing.T) {
	sel := NewCategorySelection([]model.Category{
		{Name: "Empty"},
		{Name: "Quotes", Topics: []string{"q1"}},
		{Name: "Words", Topics: []string{"w1"}},
	})
	if !sel.Toggle("Words") {
		t.Fatalf("expected toggle of Words to succeed")
	}
	if sel.Toggle("Quotes") {
		t.Fatalf("expected disabling the last category with topics to be rejected")
	}
	if !sel.IsEnabled("Quotes") || sel.EnabledCount() != 2 {
		t.Fatalf("selection changed after rejected toggle: %v", sel.Enabled())
	}
	if !sel.Toggle("Empty") {
		t.Fatalf("expected empty category to be toggled off")
	}
	if sel.Toggle("Quotes") {
		t.Fatalf("expected last enabled category to be rejected")
	}
	if !sel.Toggle("Empty") || !sel.IsEnabled("Empty") {
		t.Fatalf("expected empty category to be toggled back on")
	}
}

func TestSelectionWithOnlyEmptyCategories(t *testing.T) {
	sel := NewCategorySelection([]model.Category{{Name: "A"}, {Name: "B"}})
	if !sel.Toggle("A") {
		t.Fatalf("expected toggle of A to succeed")
	}
	if sel.Toggle("B") {
		t.Fatalf("expected toggle of last enabled category to be rejected")
	}
}

func TestSelectionUnknownName(t *testing.T) {
	sel := NewSelection([]string{"A"})
	if sel.Toggle("missing") {
		t.Fatalf("expected unknown toggle to be rejected")
	}
	if names := sel.Names(); len(names) != 1 || names[0] != "A" {
		t.Fatalf("unexpected names: %v", names)
	}
}
