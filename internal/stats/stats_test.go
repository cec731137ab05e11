package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/impromptu/internal/model"
)

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
}

func TestMovingAverageTrailingWindow(t *testing.T) {
	got := MovingAverage([]float64{3, 0, 0, 6}, 3)
	want := []float64{3, 1.5, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected moving average %v", got)
		}
	}
	flat := MovingAverage([]float64{1, 2}, 1)
	if flat[0] != 1 || flat[1] != 2 {
		t.Fatalf("expected copy for window 1, got %v", flat)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Report{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No history found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderHistoryAndCounts(t *testing.T) {
	entries := []model.HistoryEntry{{
		CreatedAt: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
		Dataset:   "Impromptu",
		Topics: []model.TopicPick{
			{Category: "Quotes", Text: "Courage is grace under pressure."},
			{Category: "Objects", Text: "A lighthouse"},
		},
	}}
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Report{Entries: entries, Activity: []float64{0, 1}, Trend: []float64{0, 0.5}, TrendWindow: 2}); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderHistory(&buf, entries, 0); err != nil {
		t.Fatalf("history: %v", err)
	}
	counts := []model.CategoryCount{{Category: "Quotes", Count: 3}, {Category: "Objects", Count: 1}}
	if err := RenderCategoryCounts(&buf, counts, 0); err != nil {
		t.Fatalf("counts: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 1", "Topics drawn: 2", "Trend (2d avg)", "A lighthouse", "Courage is grace", "75.0%", "25.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistoryTruncatesToWidth(t *testing.T) {
	entries := []model.HistoryEntry{{
		CreatedAt: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
		Dataset:   "D",
		Topics:    []model.TopicPick{{Category: "C", Text: strings.Repeat("word ", 40)}},
	}}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, entries, 60); err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if displayWidth(line) > 60 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}
