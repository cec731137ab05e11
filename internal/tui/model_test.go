package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/impromptu/internal/dataset"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/sampler"
	"github.com/verte-zerg/impromptu/internal/schedule"
	"github.com/verte-zerg/impromptu/internal/session"
	"github.com/verte-zerg/impromptu/internal/timer"
)

type fakePrefs struct {
	tier    prefs.Tier
	history []model.HistoryEntry
	saved   int
}

func (f *fakePrefs) Tier() prefs.Tier { return f.tier }

func (f *fakePrefs) SetTier(_ context.Context, tier prefs.Tier) error {
	f.tier = tier
	if !tier.AllowsHistory() {
		f.history = nil
	}
	return nil
}

func (f *fakePrefs) SaveSettings(context.Context, model.Settings) error {
	f.saved++
	return nil
}

func (f *fakePrefs) LoadHistory(context.Context, int) []model.HistoryEntry {
	return append([]model.HistoryEntry(nil), f.history...)
}

func (f *fakePrefs) AppendHistory(_ context.Context, e model.HistoryEntry) (bool, error) {
	if !f.tier.AllowsHistory() {
		return false, nil
	}
	f.history = append([]model.HistoryEntry{e}, f.history...)
	return true, nil
}

func (f *fakePrefs) ClearHistory(context.Context) error {
	f.history = nil
	return nil
}

type fakeLoader struct{}

func (fakeLoader) Load(_ context.Context, key string) (model.Dataset, error) {
	if key == "broken" {
		return model.Dataset{}, errors.New("bad yaml")
	}
	return testDataset(key), nil
}

func testDataset(key string) model.Dataset {
	return model.Dataset{
		Key:  key,
		Name: "Practice Set",
		Categories: []model.Category{
			{Name: "Quotes", Topics: []string{"Fortune favors the bold.", "Well begun is half done."}},
			{Name: "Objects", Topics: []string{"A lighthouse"}},
		},
	}
}

func newTestModel(t *testing.T, tier prefs.Tier) (*Model, *schedule.Manual, *fakePrefs) {
	t.Helper()
	fp := &fakePrefs{tier: tier}
	sched := schedule.NewManual()
	settings := model.DefaultSettings()
	settings.Dataset = "practice"
	settings.PrepTime = 30
	settings.Prompts = 1
	ctrl := session.New(context.Background(), session.Config{
		Sampler:   sampler.NewSeeded(7),
		Scheduler: sched,
		Prefs:     fp,
		Settings:  settings,
	})
	m := NewModel(context.Background(), Options{
		Controller: ctrl,
		Loader:     fakeLoader{},
		Datasets: []dataset.Info{
			{Key: "practice", Name: "Practice Set"},
			{Key: "other", Name: "Other Set"},
		},
		Consent: fp,
	})
	if m.Init() == nil {
		t.Fatalf("expected initial dataset load")
	}
	m = update(t, m, datasetLoadedMsg{key: "practice", ds: testDataset("practice")})
	return m, sched, fp
}

func update(t *testing.T, m *Model, msg tea.Msg) *Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(*Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return out
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestConsentPromptOnFirstLaunch(t *testing.T) {
	m, _, fp := newTestModel(t, prefs.TierUnset)
	if m.screen != screenConsent {
		t.Fatalf("expected consent screen")
	}
	m = update(t, m, escKey)
	if m.screen != screenConsent {
		t.Fatalf("expected consent to be required before continuing")
	}
	m = update(t, m, runeKey("3"))
	if fp.tier != prefs.TierAll || m.screen != screenHome {
		t.Fatalf("expected tier all and home screen, got %v %v", fp.tier, m.screen)
	}
}

func TestGenerateRunsSessionAndRecordsHistory(t *testing.T) {
	m, sched, fp := newTestModel(t, prefs.TierAll)
	m = update(t, m, enterKey)
	if m.ctrl.Mode() != model.PhasePreparation {
		t.Fatalf("expected preparation, got %v", m.ctrl.Mode())
	}
	pick := m.ctrl.Picks()[0]
	if !strings.Contains(m.View(), pick.Text) {
		t.Fatalf("expected topic in view")
	}
	sched.Advance(timer.AutoStartDelay + 30*time.Second)
	if m.ctrl.Mode() != model.PhaseSpeaking {
		t.Fatalf("expected speaking after preparation, got %v", m.ctrl.Mode())
	}
	m = update(t, m, spaceKey)
	sched.Advance(2 * time.Second)
	if !strings.Contains(m.View(), "0:02") {
		t.Fatalf("expected speaking clock in view")
	}
	m = update(t, m, escKey)
	if m.ctrl.Mode() != model.PhaseIdle {
		t.Fatalf("expected idle after return")
	}
	if len(fp.history) != 1 || fp.history[0].Topics[0] != pick {
		t.Fatalf("expected history recorded, got %+v", fp.history)
	}
}

func TestSkipPreparation(t *testing.T) {
	m, _, _ := newTestModel(t, prefs.TierNone)
	m = update(t, m, enterKey)
	m = update(t, m, runeKey("n"))
	if m.ctrl.Mode() != model.PhaseSpeaking {
		t.Fatalf("expected speaking after skip")
	}
}

func TestToggleLastCategoryRejected(t *testing.T) {
	m, _, _ := newTestModel(t, prefs.TierNone)
	m = update(t, m, spaceKey)
	m = update(t, m, runeKey("j"))
	m = update(t, m, spaceKey)
	if !strings.Contains(m.status, "At least one category") {
		t.Fatalf("expected rejection status, got %q", m.status)
	}
	if !m.ctrl.Selection().IsEnabled("Objects") {
		t.Fatalf("expected last category to stay enabled")
	}
}

func TestSettingsAdjust(t *testing.T) {
	m, _, fp := newTestModel(t, prefs.TierEssential)
	m = update(t, m, runeKey("s"))
	if m.screen != screenSettings {
		t.Fatalf("expected settings screen")
	}
	m = update(t, m, runeKey("+"))
	m = update(t, m, runeKey("+"))
	if m.ctrl.Settings().Prompts != 3 {
		t.Fatalf("expected 3 prompts, got %d", m.ctrl.Settings().Prompts)
	}
	m = update(t, m, runeKey("j"))
	for i := 0; i < 5; i++ {
		m = update(t, m, runeKey("-"))
	}
	if m.ctrl.Settings().PrepTime != 0 {
		t.Fatalf("expected prep clamped to 0, got %d", m.ctrl.Settings().PrepTime)
	}
	if fp.saved == 0 {
		t.Fatalf("expected settings saved")
	}
	m = update(t, m, escKey)
	if m.screen != screenHome {
		t.Fatalf("expected home after esc")
	}
}

func TestHistoryReplay(t *testing.T) {
	m, _, fp := newTestModel(t, prefs.TierAll)
	fp.history = []model.HistoryEntry{{Dataset: "Practice Set", Topics: []model.TopicPick{{Category: "Old", Text: "An old topic"}}}}
	m.ctrl.ReloadHistory(context.Background())
	m = update(t, m, runeKey("h"))
	if !strings.Contains(m.View(), "An old topic") {
		t.Fatalf("expected history entry in view")
	}
	m = update(t, m, enterKey)
	if m.ctrl.Mode() != model.PhasePreparation || m.ctrl.Picks()[0].Text != "An old topic" {
		t.Fatalf("expected replayed session")
	}
}

func TestHistoryClearNeedsConfirmation(t *testing.T) {
	m, _, fp := newTestModel(t, prefs.TierAll)
	fp.history = []model.HistoryEntry{{Topics: []model.TopicPick{{Text: "x"}}}}
	m.ctrl.ReloadHistory(context.Background())
	m = update(t, m, runeKey("h"))
	m = update(t, m, runeKey("x"))
	m = update(t, m, runeKey("n"))
	if len(m.ctrl.History()) != 1 {
		t.Fatalf("expected history kept after cancel")
	}
	m = update(t, m, runeKey("x"))
	m = update(t, m, runeKey("y"))
	if len(m.ctrl.History()) != 0 || len(fp.history) != 0 {
		t.Fatalf("expected history cleared")
	}
}

func TestDatasetSwitchIgnoresStaleResult(t *testing.T) {
	m, _, _ := newTestModel(t, prefs.TierNone)
	m = update(t, m, runeKey("d"))
	if !m.ctrl.Loading() || m.loadingKey != "other" {
		t.Fatalf("expected pending load of other, got %q", m.loadingKey)
	}
	m = update(t, m, enterKey)
	if m.ctrl.Mode() != model.PhaseIdle {
		t.Fatalf("expected generate blocked while loading")
	}
	m = update(t, m, datasetLoadedMsg{key: "practice", ds: testDataset("practice")})
	if !m.ctrl.Loading() {
		t.Fatalf("expected stale result ignored")
	}
	m = update(t, m, datasetLoadedMsg{key: "other", ds: testDataset("other")})
	if ds, _ := m.ctrl.Dataset(); ds.Key != "other" {
		t.Fatalf("expected other dataset active, got %q", ds.Key)
	}
}

func TestFailedInitialLoadFallsBackToDefault(t *testing.T) {
	fp := &fakePrefs{tier: prefs.TierNone}
	settings := model.DefaultSettings()
	settings.Dataset = "broken"
	ctrl := session.New(context.Background(), session.Config{
		Scheduler: schedule.NewManual(),
		Prefs:     fp,
		Settings:  settings,
	})
	m := NewModel(context.Background(), Options{Controller: ctrl, Loader: fakeLoader{}, Consent: fp})
	next, cmd := m.Update(datasetLoadedMsg{key: "broken", err: errors.New("bad yaml")})
	m = next.(*Model)
	if cmd == nil || m.loadingKey != dataset.DefaultKey {
		t.Fatalf("expected fallback load of %s, got %q", dataset.DefaultKey, m.loadingKey)
	}
	if !strings.Contains(m.errMsg, "bad yaml") {
		t.Fatalf("expected load error shown, got %q", m.errMsg)
	}
}

func TestRunMsgExecutesCallback(t *testing.T) {
	m, _, _ := newTestModel(t, prefs.TierNone)
	ran := false
	update(t, m, runMsg{fn: func() { ran = true }})
	if !ran {
		t.Fatalf("expected callback to run in update")
	}
}

func TestFooterShowsScreenKeys(t *testing.T) {
	m, _, _ := newTestModel(t, prefs.TierNone)
	if footer := m.renderFooter(); !strings.Contains(footer, "generate") || strings.Contains(footer, "skip prep") {
		t.Fatalf("unexpected home footer %q", footer)
	}
	m = update(t, m, enterKey)
	if footer := m.renderFooter(); !strings.Contains(footer, "skip prep") {
		t.Fatalf("expected session keys in footer, got %q", footer)
	}
	m = update(t, m, runeKey("n"))
	if footer := m.renderFooter(); strings.Contains(footer, "skip prep") {
		t.Fatalf("expected skip hidden while speaking, got %q", footer)
	}
}
