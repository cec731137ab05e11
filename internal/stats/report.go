package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/impromptu/internal/model"
)

// DefaultActivityDays is the span of the activity sparkline.
const DefaultActivityDays = 28

// DefaultTrendWindow is the moving-average window applied to daily activity.
const DefaultTrendWindow = 7

// HistorySource provides stored history.
type HistorySource interface {
	ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	HistoryCategoryCounts(ctx context.Context, dataset string) ([]model.CategoryCount, error)
}

// ReportConfig selects the history that goes into a report.
type ReportConfig struct {
	Last         int
	Dataset      string
	ActivityDays int
	TrendWindow  int
	Now          time.Time
}

// Report contains precomputed data for history rendering.
type Report struct {
	Entries []model.HistoryEntry
	Counts  []model.CategoryCount
	// Activity holds sessions per day, oldest first, ending today.
	Activity []float64
	// Trend is Activity smoothed over TrendWindow days.
	Trend       []float64
	TrendWindow int
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, src HistorySource, cfg ReportConfig) (Report, error) {
	all, err := src.ListHistory(ctx, 0)
	if err != nil {
		return Report{}, err
	}
	entries := make([]model.HistoryEntry, 0, len(all))
	for _, e := range all {
		if cfg.Dataset != "" && e.Dataset != cfg.Dataset {
			continue
		}
		entries = append(entries, e)
	}
	counts, err := src.HistoryCategoryCounts(ctx, cfg.Dataset)
	if err != nil {
		return Report{}, err
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	days := cfg.ActivityDays
	if days <= 0 {
		days = DefaultActivityDays
	}
	activity := DailyActivity(entries, now, days)
	window := cfg.TrendWindow
	if window <= 0 {
		window = DefaultTrendWindow
	}
	if cfg.Last > 0 && len(entries) > cfg.Last {
		entries = entries[:cfg.Last]
	}
	return Report{
		Entries:     entries,
		Counts:      counts,
		Activity:    activity,
		Trend:       MovingAverage(activity, window),
		TrendWindow: window,
	}, nil
}

// DailyActivity counts entries per local calendar day for the days ending
// at now, oldest first.
func DailyActivity(entries []model.HistoryEntry, now time.Time, days int) []float64 {
	if days <= 0 {
		return nil
	}
	out := make([]float64, days)
	today := dayStart(now)
	for _, e := range entries {
		diff := int(today.Sub(dayStart(e.CreatedAt.In(now.Location()))).Hours() / 24)
		if diff < 0 || diff >= days {
			continue
		}
		out[days-1-diff]++
	}
	return out
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
