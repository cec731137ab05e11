package drill

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/sampler"
	"github.com/verte-zerg/impromptu/internal/schedule"
	"github.com/verte-zerg/impromptu/internal/session"
)

type memPrefs struct {
	history []model.HistoryEntry
}

func (m *memPrefs) Tier() prefs.Tier { return prefs.TierAll }

func (m *memPrefs) SaveSettings(context.Context, model.Settings) error { return nil }

func (m *memPrefs) LoadHistory(context.Context, int) []model.HistoryEntry { return m.history }

func (m *memPrefs) AppendHistory(_ context.Context, e model.HistoryEntry) (bool, error) {
	m.history = append(m.history, e)
	return true, nil
}

func (m *memPrefs) ClearHistory(context.Context) error {
	m.history = nil
	return nil
}

func newDrill(t *testing.T, live bool, mutate func(*model.Settings)) (*Drill, *schedule.Manual, *memPrefs, *bytes.Buffer, *int) {
	t.Helper()
	settings := model.DefaultSettings()
	settings.Dataset = "drill"
	settings.Prompts = 2
	settings.PrepTime = 20
	settings.SpeakTime = 60
	settings.AutoStart = false
	if mutate != nil {
		mutate(&settings)
	}
	sched := schedule.NewManual()
	mp := &memPrefs{}
	ctrl := session.New(context.Background(), session.Config{
		Sampler:   sampler.NewSeeded(3),
		Scheduler: sched,
		Prefs:     mp,
		Settings:  settings,
	})
	ds := model.Dataset{
		Key:  "drill",
		Name: "Drill Set",
		Categories: []model.Category{
			{Name: "Proverbs", Topics: []string{"Still waters run deep.", "Haste makes waste."}},
			{Name: "People", Topics: []string{"A person you admire"}},
		},
	}
	ctrl.BeginLoad(ds.Key)
	if !ctrl.FinishLoad(context.Background(), ds.Key, ds, nil) {
		t.Fatalf("expected dataset accepted")
	}
	var out bytes.Buffer
	doneCalls := 0
	d := New(ctrl, &out, live, 40, func() { doneCalls++ })
	if err := d.Start(sched); err != nil {
		t.Fatalf("start: %v", err)
	}
	return d, sched, mp, &out, &doneCalls
}

func TestDrillRunsThroughBothPhases(t *testing.T) {
	d, sched, mp, out, done := newDrill(t, false, nil)
	if !strings.Contains(out.String(), "Drill Set") || !strings.Contains(out.String(), "1. ") || !strings.Contains(out.String(), "2. ") {
		t.Fatalf("expected dataset name and two topics, got %q", out.String())
	}
	if !strings.Contains(out.String(), "Preparation 0:20") {
		t.Fatalf("expected preparation clock, got %q", out.String())
	}

	sched.Advance(20 * time.Second)
	if d.ctrl.Mode() != model.PhaseSpeaking {
		t.Fatalf("expected speaking after preparation, got %v", d.ctrl.Mode())
	}
	sched.Advance(time.Second)
	if !d.ctrl.Timer().Snapshot().Running {
		t.Fatalf("expected speaking clock to start")
	}

	sched.Advance(61 * time.Second)
	if *done != 1 {
		t.Fatalf("expected done once, got %d", *done)
	}
	if d.ctrl.Mode() != model.PhaseIdle {
		t.Fatalf("expected idle after target, got %v", d.ctrl.Mode())
	}
	if len(mp.history) != 1 || len(mp.history[0].Topics) != 2 {
		t.Fatalf("expected one history entry with two topics, got %+v", mp.history)
	}
	text := out.String()
	if !strings.Contains(text, "Speaking 0:30 / 1:00") || !strings.HasSuffix(text, "Time.\n") {
		t.Fatalf("unexpected output %q", text)
	}

	sched.Advance(10 * time.Second)
	if *done != 1 {
		t.Fatalf("expected no further callbacks, got %d", *done)
	}
}

func TestDrillWithoutPreparation(t *testing.T) {
	d, sched, _, _, done := newDrill(t, false, func(s *model.Settings) { s.PrepTime = 0 })
	if d.ctrl.Mode() != model.PhaseSpeaking || !d.ctrl.Timer().Snapshot().Running {
		t.Fatalf("expected running speaking phase")
	}
	sched.Advance(60 * time.Second)
	if *done != 1 {
		t.Fatalf("expected done after speaking target")
	}
}

func TestDrillLiveRewritesLine(t *testing.T) {
	_, sched, _, out, _ := newDrill(t, true, nil)
	sched.Advance(3 * time.Second)
	if !strings.Contains(out.String(), "\rPreparation 0:17\x1b[K") {
		t.Fatalf("expected carriage-return status line, got %q", out.String())
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	d, _, mp, out, _ := newDrill(t, false, nil)
	d.Finish(context.Background())
	d.Finish(context.Background())
	if strings.Count(out.String(), "Time.") != 1 {
		t.Fatalf("expected single finish line")
	}
	if len(mp.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(mp.history))
	}
}
