package sampler

import "github.com/verte-zerg/impromptu/internal/model"

// Selection tracks which categories are enabled. At least one category stays
// enabled at all times, and while any category has topics, at least one
// category with topics stays enabled.
type Selection struct {
	names    []string
	enabled  map[string]bool
	drawable map[string]bool
}

// NewSelection returns a selection with every category enabled. Every name is
// treated as having topics.
func NewSelection(names []string) *Selection {
	sel := &Selection{
		names:    append([]string(nil), names...),
		enabled:  make(map[string]bool, len(names)),
		drawable: make(map[string]bool, len(names)),
	}
	for _, name := range names {
		sel.enabled[name] = true
		sel.drawable[name] = true
	}
	return sel
}

// NewCategorySelection returns a selection over cats with every category
// enabled. Categories without topics can be toggled but never satisfy the
// keep-one-enabled guard.
func NewCategorySelection(cats []model.Category) *Selection {
	sel := NewSelection(model.Dataset{Categories: cats}.CategoryNames())
	for _, c := range cats {
		sel.drawable[c.Name] = len(c.Topics) > 0
	}
	return sel
}

// Toggle flips a category. Disabling the last enabled category, disabling the
// last enabled category with topics, or toggling an unknown name is rejected
// and reports false.
func (s *Selection) Toggle(name string) bool {
	on, ok := s.enabled[name]
	if !ok {
		return false
	}
	if on && s.EnabledCount() == 1 {
		return false
	}
	if on && s.drawable[name] && s.drawableCount() == 1 {
		return false
	}
	s.enabled[name] = !on
	return true
}

func (s *Selection) drawableCount() int {
	count := 0
	for name, on := range s.enabled {
		if on && s.drawable[name] {
			count++
		}
	}
	return count
}

// IsEnabled reports whether a category is enabled.
func (s *Selection) IsEnabled(name string) bool {
	return s.enabled[name]
}

// EnabledCount returns the number of enabled categories.
func (s *Selection) EnabledCount() int {
	count := 0
	for _, on := range s.enabled {
		if on {
			count++
		}
	}
	return count
}

// Names returns category names in insertion order.
func (s *Selection) Names() []string {
	return append([]string(nil), s.names...)
}

// Enabled returns a copy of the enabled flags.
func (s *Selection) Enabled() map[string]bool {
	out := make(map[string]bool, len(s.enabled))
	for k, v := range s.enabled {
		out[k] = v
	}
	return out
}
