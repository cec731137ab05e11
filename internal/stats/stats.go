// Package stats contains history statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/impromptu/internal/model"
)

const sparkChars = " .:-=+*#%@"

const dateLayout = "2006-01-02 15:04"

// MovingAverage returns the trailing mean of each value over at most window
// values ending at it. A window of 1 or less copies values.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if n > window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary of the report.
func RenderSummary(w io.Writer, r Report) error {
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No history found.")
		return err
	}
	topics := 0
	for _, e := range r.Entries {
		topics += len(e.Topics)
	}
	newest := r.Entries[0].CreatedAt
	oldest := r.Entries[len(r.Entries)-1].CreatedAt
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(r.Entries)),
		fmt.Sprintf("Topics drawn: %d", topics),
		fmt.Sprintf("Latest: %s", newest.Local().Format(dateLayout)),
		fmt.Sprintf("Oldest: %s", oldest.Local().Format(dateLayout)),
	}
	if len(r.Activity) > 0 {
		lines = append(lines, fmt.Sprintf("Activity (%dd): [%s]", len(r.Activity), Sparkline(r.Activity)))
	}
	if len(r.Trend) > 0 {
		lines = append(lines, fmt.Sprintf("Trend (%dd avg): [%s]", r.TrendWindow, Sparkline(r.Trend)))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints one row per drawn topic. Topic text is truncated so
// rows fit in width; width <= 0 disables truncation.
func RenderHistory(w io.Writer, entries []model.HistoryEntry, width int) error {
	if len(entries) == 0 {
		return nil
	}
	headers := []string{"When", "Dataset", "Category", "Topic"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		for i, t := range e.Topics {
			when, ds := "", ""
			if i == 0 {
				when = e.CreatedAt.Local().Format(dateLayout)
				ds = e.Dataset
			}
			rows = append(rows, []string{when, ds, t.Category, t.Text})
		}
	}
	if width > 0 {
		fixed := 0
		for col := 0; col < 3; col++ {
			colWidth := displayWidth(headers[col])
			for _, row := range rows {
				if cw := displayWidth(row[col]); cw > colWidth {
					colWidth = cw
				}
			}
			fixed += colWidth + 2
		}
		if avail := width - fixed; avail > 8 {
			for _, row := range rows {
				row[3] = Truncate(row[3], avail)
			}
		}
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	for _, line := range formatTable(headers, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCategoryCounts prints how often each category was drawn.
func RenderCategoryCounts(w io.Writer, counts []model.CategoryCount, top int) error {
	if len(counts) == 0 {
		return nil
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if _, err := fmt.Fprintln(w, "Categories"); err != nil {
		return err
	}
	headers := []string{"Category", "Count", "Share"}
	items := TopCategories(counts, top)
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		share := 0.0
		if total > 0 {
			share = float64(c.Count) / float64(total) * 100
		}
		rows = append(rows, []string{
			c.Category,
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
