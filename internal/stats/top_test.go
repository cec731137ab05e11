package stats

import (
	"testing"

	"github.com/verte-zerg/impromptu/internal/model"
)

func TestTopCategories(t *testing.T) {
	counts := []model.CategoryCount{
		{Category: "Quotes", Count: 3},
		{Category: "Events", Count: 4},
		{Category: "Abstract", Count: 4},
		{Category: "Objects", Count: 1},
	}
	top := TopCategories(counts, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(top))
	}
	if top[0].Category != "Abstract" || top[1].Category != "Events" {
		t.Fatalf("unexpected order: %v", top)
	}
	if counts[0].Category != "Quotes" {
		t.Fatalf("expected input left untouched")
	}
	if len(TopCategories(counts, 0)) != 4 {
		t.Fatalf("expected all categories for n=0")
	}
}
