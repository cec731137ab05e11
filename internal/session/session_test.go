package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/sampler"
	"github.com/verte-zerg/impromptu/internal/schedule"
	"github.com/verte-zerg/impromptu/internal/timer"
)

type fakePrefs struct {
	tier     prefs.Tier
	saved    []model.Settings
	appended []model.HistoryEntry
	cleared  int
}

func (f *fakePrefs) Tier() prefs.Tier { return f.tier }

func (f *fakePrefs) SaveSettings(_ context.Context, s model.Settings) error {
	if f.tier.AllowsSettings() {
		f.saved = append(f.saved, s)
	}
	return nil
}

func (f *fakePrefs) LoadHistory(context.Context, int) []model.HistoryEntry {
	return append([]model.HistoryEntry(nil), f.appended...)
}

func (f *fakePrefs) AppendHistory(_ context.Context, e model.HistoryEntry) (bool, error) {
	if !f.tier.AllowsHistory() {
		return false, nil
	}
	f.appended = append(f.appended, e)
	return true, nil
}

func (f *fakePrefs) ClearHistory(context.Context) error {
	f.cleared++
	f.appended = nil
	return nil
}

var testDataset = model.Dataset{
	Key:  "test",
	Name: "Test Set",
	Categories: []model.Category{
		{Name: "A", Topics: []string{"a1", "a2", "a3"}},
		{Name: "B", Topics: []string{"b1", "b2"}},
	},
}

var fixedNow = time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)

func newController(t *testing.T, tier prefs.Tier, mutate func(*model.Settings)) (*Controller, *schedule.Manual, *fakePrefs) {
	t.Helper()
	settings := model.DefaultSettings()
	settings.Dataset = "test"
	settings.PrepTime = 3
	if mutate != nil {
		mutate(&settings)
	}
	sched := schedule.NewManual()
	fp := &fakePrefs{tier: tier}
	c := New(context.Background(), Config{
		Sampler:   sampler.NewSeeded(1),
		Scheduler: sched,
		Prefs:     fp,
		Settings:  settings,
		Now:       func() time.Time { return fixedNow },
	})
	c.BeginLoad("test")
	if !c.FinishLoad(context.Background(), "test", testDataset, nil) {
		t.Fatalf("expected load to be accepted")
	}
	return c, sched, fp
}

func TestGenerateBlockedWhileLoading(t *testing.T) {
	c, _, _ := newController(t, prefs.TierAll, nil)
	c.BeginLoad("other")
	if c.Generate() {
		t.Fatalf("expected generate to be blocked while loading")
	}
	if c.Mode() != model.PhaseIdle {
		t.Fatalf("expected idle mode")
	}
	if c.FinishLoad(context.Background(), "stale", model.Dataset{}, nil) {
		t.Fatalf("expected stale load result to be ignored")
	}
	c.FinishLoad(context.Background(), "other", model.Dataset{}, errors.New("boom"))
	if c.LoadError() == nil {
		t.Fatalf("expected load error recorded")
	}
	if ds, ok := c.Dataset(); !ok || ds.Key != "test" {
		t.Fatalf("expected previous dataset kept, got %+v", ds)
	}
	if !c.Generate() {
		t.Fatalf("expected generate after load finished")
	}
}

func TestFullSessionFlow(t *testing.T) {
	c, sched, fp := newController(t, prefs.TierAll, nil)
	if !c.Generate() {
		t.Fatalf("expected generate to start a session")
	}
	if c.Mode() != model.PhasePreparation {
		t.Fatalf("expected preparation, got %v", c.Mode())
	}
	picks := c.Picks()
	if len(picks) != 2 {
		t.Fatalf("expected 2 picks, got %v", picks)
	}
	if c.Generate() {
		t.Fatalf("expected generate to be rejected during a session")
	}

	sched.Advance(timer.AutoStartDelay + 3*time.Second)
	if c.Mode() != model.PhaseSpeaking {
		t.Fatalf("expected speaking after preparation expired, got %v", c.Mode())
	}
	st := c.Timer().Snapshot()
	if st.Seconds != 0 || st.Running {
		t.Fatalf("expected fresh paused speaking timer, got %+v", st)
	}
	c.Timer().ToggleRun()
	sched.Advance(5 * time.Second)
	if c.Timer().Snapshot().Seconds != 5 {
		t.Fatalf("expected speaking count-up")
	}

	c.Return(context.Background())
	if c.Mode() != model.PhaseIdle || len(c.Picks()) != 0 {
		t.Fatalf("expected idle with no picks after return")
	}
	if len(fp.appended) != 1 {
		t.Fatalf("expected one history write, got %d", len(fp.appended))
	}
	entry := fp.appended[0]
	if entry.Dataset != "Test Set" || !entry.CreatedAt.Equal(fixedNow) || len(entry.Topics) != 2 {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
	if len(c.History()) != 1 {
		t.Fatalf("expected in-memory history entry")
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected timer torn down, %d callbacks pending", sched.Pending())
	}
}

func TestReturnUnderEssentialSkipsHistory(t *testing.T) {
	c, _, fp := newController(t, prefs.TierEssential, nil)
	if !c.Generate() {
		t.Fatalf("expected generate")
	}
	c.Return(context.Background())
	if len(fp.appended) != 0 || len(c.History()) != 0 {
		t.Fatalf("expected no history under essential")
	}
}

func TestZeroPrepStartsSpeaking(t *testing.T) {
	c, _, _ := newController(t, prefs.TierNone, func(s *model.Settings) { s.PrepTime = 0 })
	if !c.Generate() {
		t.Fatalf("expected generate")
	}
	if c.Mode() != model.PhaseSpeaking {
		t.Fatalf("expected speaking, got %v", c.Mode())
	}
}

func TestSkipMovesToSpeaking(t *testing.T) {
	c, _, _ := newController(t, prefs.TierNone, func(s *model.Settings) { s.PrepTime = 120 })
	c.Generate()
	c.Timer().Skip()
	if c.Mode() != model.PhaseSpeaking {
		t.Fatalf("expected speaking after skip, got %v", c.Mode())
	}
}

func TestForceSameCategory(t *testing.T) {
	c, _, _ := newController(t, prefs.TierNone, func(s *model.Settings) {
		s.ForceSame = true
		s.Prompts = 2
	})
	c.Generate()
	picks := c.Picks()
	if len(picks) == 0 {
		t.Fatalf("expected picks")
	}
	for _, p := range picks {
		if p.Category != picks[0].Category {
			t.Fatalf("expected single category, got %v", picks)
		}
	}
}

func TestToggleCategoryKeepsOneEnabled(t *testing.T) {
	c, _, _ := newController(t, prefs.TierNone, nil)
	if !c.ToggleCategory("A") {
		t.Fatalf("expected toggle A")
	}
	if c.ToggleCategory("B") {
		t.Fatalf("expected last category toggle rejected")
	}
	c.Generate()
	for _, p := range c.Picks() {
		if p.Category != "B" {
			t.Fatalf("expected only B picks, got %v", c.Picks())
		}
	}
}

func TestToggleCategoryKeepsOneWithTopics(t *testing.T) {
	c, _, _ := newController(t, prefs.TierNone, nil)
	ds := model.Dataset{Key: "sparse", Name: "Sparse", Categories: []model.Category{
		{Name: "Empty"},
		{Name: "B", Topics: []string{"b1", "b2", "b3", "b4", "b5"}},
	}}
	c.BeginLoad("sparse")
	if !c.FinishLoad(context.Background(), "sparse", ds, nil) {
		t.Fatalf("expected load to be accepted")
	}
	if c.ToggleCategory("B") {
		t.Fatalf("expected disabling the only category with topics to be rejected")
	}
	if !c.Generate() {
		t.Fatalf("expected generate to draw from B")
	}
	for _, p := range c.Picks() {
		if p.Category != "B" {
			t.Fatalf("expected only B picks, got %v", c.Picks())
		}
	}
}

func TestReplayUsesEntryTopics(t *testing.T) {
	c, _, _ := newController(t, prefs.TierAll, nil)
	entry := model.HistoryEntry{Topics: []model.TopicPick{{Category: "Old", Text: "old topic"}}}
	if !c.Replay(entry) {
		t.Fatalf("expected replay to start")
	}
	if c.Mode() != model.PhasePreparation || c.Picks()[0].Text != "old topic" {
		t.Fatalf("unexpected replay state: %v %v", c.Mode(), c.Picks())
	}
	if c.Replay(entry) {
		t.Fatalf("expected replay rejected during a session")
	}
}

func TestUpdateSettingsSavesAndSanitizes(t *testing.T) {
	c, _, fp := newController(t, prefs.TierEssential, nil)
	changed := c.UpdateSettings(context.Background(), func(s *model.Settings) {
		s.Prompts = 99
		s.Dataset = "ncfca_junior"
	})
	if !changed {
		t.Fatalf("expected dataset change reported")
	}
	if c.Settings().Prompts != model.DefaultSettings().Prompts {
		t.Fatalf("expected prompts sanitized, got %d", c.Settings().Prompts)
	}
	if len(fp.saved) == 0 {
		t.Fatalf("expected settings saved")
	}
}

func TestClearHistory(t *testing.T) {
	c, _, fp := newController(t, prefs.TierAll, nil)
	c.Generate()
	c.Return(context.Background())
	if err := c.ClearHistory(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(c.History()) != 0 || fp.cleared != 1 {
		t.Fatalf("expected history cleared")
	}
}

func TestApplyPreset(t *testing.T) {
	c, _, fp := newController(t, prefs.TierAll, nil)
	changed, err := c.ApplyPreset(context.Background(), "apologetics")
	if err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	if !changed {
		t.Fatalf("expected dataset change")
	}
	s := c.Settings()
	if s.Dataset != "ncfca_apologetics" || s.PrepTime != 240 || s.SpeakTime != 360 {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if len(fp.saved) == 0 {
		t.Fatalf("expected preset saved")
	}
	if _, err := c.ApplyPreset(context.Background(), "nope"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestFailedPresetLoadRestoresDataset(t *testing.T) {
	c, _, _ := newController(t, prefs.TierEssential, nil)
	if _, err := c.ApplyPreset(context.Background(), "apologetics"); err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	c.BeginLoad("ncfca_apologetics")
	c.FinishLoad(context.Background(), "ncfca_apologetics", model.Dataset{}, errors.New("missing"))
	if got := c.Settings().Dataset; got != "test" {
		t.Fatalf("expected dataset restored to the loaded one, got %q", got)
	}
}
