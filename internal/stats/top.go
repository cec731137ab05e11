package stats

import (
	"sort"

	"github.com/verte-zerg/impromptu/internal/model"
)

// TopCategories returns the n most drawn categories. Ties sort by name.
// n <= 0 returns all of them.
func TopCategories(counts []model.CategoryCount, n int) []model.CategoryCount {
	if len(counts) == 0 {
		return nil
	}
	items := make([]model.CategoryCount, len(counts))
	copy(items, counts)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Category < items[j].Category
		}
		return items[i].Count > items[j].Count
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}
