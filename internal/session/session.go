// Package session orchestrates dataset state, topic sampling, the session
// timer and history recording.
package session

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/impromptu/internal/alert"
	"github.com/verte-zerg/impromptu/internal/config"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/sampler"
	"github.com/verte-zerg/impromptu/internal/schedule"
	"github.com/verte-zerg/impromptu/internal/timer"
)

// DefaultHistoryLimit caps the number of history entries kept in memory.
const DefaultHistoryLimit = 200

// Persistence is the consent-gated storage used by the controller.
type Persistence interface {
	Tier() prefs.Tier
	SaveSettings(ctx context.Context, s model.Settings) error
	LoadHistory(ctx context.Context, limit int) []model.HistoryEntry
	AppendHistory(ctx context.Context, entry model.HistoryEntry) (bool, error)
	ClearHistory(ctx context.Context) error
}

// Config wires the controller's collaborators.
type Config struct {
	Sampler      *sampler.Sampler
	Scheduler    schedule.Scheduler
	Alerter      alert.Alerter
	Prefs        Persistence
	Settings     model.Settings
	Now          func() time.Time
	Logger       *slog.Logger
	HistoryLimit int
}

// Controller owns the state of one practice session. Its methods must be
// called from the scheduler's event loop.
type Controller struct {
	sampler *sampler.Sampler
	prefs   Persistence
	now     func() time.Time
	logger  *slog.Logger
	limit   int

	timer    *timer.Timer
	settings model.Settings

	dataset    *model.Dataset
	selection  *sampler.Selection
	loading    bool
	pendingKey string
	loadErr    error

	mode    model.Phase
	picks   []model.TopicPick
	history []model.HistoryEntry
}

// New returns an idle controller and loads stored history.
func New(ctx context.Context, cfg Config) *Controller {
	if cfg.Sampler == nil {
		cfg.Sampler = sampler.New(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	c := &Controller{
		sampler:  cfg.Sampler,
		prefs:    cfg.Prefs,
		now:      cfg.Now,
		logger:   cfg.Logger,
		limit:    cfg.HistoryLimit,
		settings: cfg.Settings.Sanitized(),
		mode:     model.PhaseIdle,
	}
	c.timer = timer.New(timer.Config{
		Scheduler:  cfg.Scheduler,
		Alerter:    cfg.Alerter,
		OnComplete: c.onPhaseComplete,
		Logger:     cfg.Logger,
	})
	if c.prefs != nil {
		c.history = c.prefs.LoadHistory(ctx, c.limit)
	}
	return c
}

// BeginLoad marks a dataset load as pending. Generation is blocked until
// the matching FinishLoad.
func (c *Controller) BeginLoad(key string) {
	c.loading = true
	c.pendingKey = key
	c.loadErr = nil
}

// FinishLoad installs a loaded dataset, resetting the category selection.
// Results for a superseded key are ignored and reported as false. On error
// the previous dataset stays active.
func (c *Controller) FinishLoad(ctx context.Context, key string, ds model.Dataset, err error) bool {
	if !c.loading || key != c.pendingKey {
		return false
	}
	c.loading = false
	c.pendingKey = ""
	if err != nil {
		c.loadErr = err
		c.logger.Warn("failed to load dataset", "dataset", key, "error", err)
		if c.dataset != nil && c.settings.Dataset != c.dataset.Key {
			c.settings.Dataset = c.dataset.Key
			c.saveSettings(ctx)
		}
		return true
	}
	c.dataset = &ds
	c.selection = sampler.NewCategorySelection(ds.Categories)
	if c.settings.Dataset != key {
		c.settings.Dataset = key
		c.saveSettings(ctx)
	}
	return true
}

// Loading reports whether a dataset load is pending.
func (c *Controller) Loading() bool {
	return c.loading
}

// LoadError returns the error of the last failed load, if any.
func (c *Controller) LoadError() error {
	return c.loadErr
}

// Dataset returns the active dataset.
func (c *Controller) Dataset() (model.Dataset, bool) {
	if c.dataset == nil {
		return model.Dataset{}, false
	}
	return *c.dataset, true
}

// Selection returns the category selection of the active dataset.
func (c *Controller) Selection() *sampler.Selection {
	return c.selection
}

// ToggleCategory flips a category; disabling the last one is rejected.
func (c *Controller) ToggleCategory(name string) bool {
	if c.selection == nil {
		return false
	}
	return c.selection.Toggle(name)
}

// Generate draws topics and starts a session. It reports false and changes
// nothing while a session is active, while a load is pending, or when no
// topic could be drawn.
func (c *Controller) Generate() bool {
	if c.mode != model.PhaseIdle || c.loading || c.dataset == nil || c.selection == nil {
		return false
	}
	res := c.sampler.SampleDetailed(c.dataset.Topics(), c.selection.Enabled(), c.settings.Prompts, c.settings.ForceSame)
	if len(res.Picks) == 0 {
		c.logger.Info("no topics available for the current selection", "dataset", c.dataset.Key)
		return false
	}
	if res.Exhausted {
		c.logger.Info("fewer unique topics than requested",
			"requested", c.settings.Prompts, "drawn", len(res.Picks), "attempts", res.Attempts)
	}
	c.picks = res.Picks
	c.startSession()
	return true
}

// Replay starts a session with the topics of a past entry.
func (c *Controller) Replay(entry model.HistoryEntry) bool {
	if c.mode != model.PhaseIdle || len(entry.Topics) == 0 {
		return false
	}
	c.picks = append([]model.TopicPick(nil), entry.Topics...)
	c.startSession()
	return true
}

func (c *Controller) startSession() {
	c.timer.SetTarget(c.settings.SpeakTime)
	if c.settings.PrepTime > 0 {
		c.mode = model.PhasePreparation
		c.timer.Start(model.PhasePreparation, c.settings.PrepTime, c.settings.AutoStart, c.settings.Alert)
		return
	}
	c.mode = model.PhaseSpeaking
	c.timer.Start(model.PhaseSpeaking, 0, false, false)
}

func (c *Controller) onPhaseComplete() {
	if c.mode != model.PhasePreparation {
		return
	}
	c.mode = model.PhaseSpeaking
	c.timer.Start(model.PhaseSpeaking, 0, false, false)
}

// Return ends the session, records history when consent allows it and goes
// back to idle.
func (c *Controller) Return(ctx context.Context) {
	if c.mode == model.PhaseIdle {
		return
	}
	if len(c.picks) > 0 && c.prefs != nil && c.prefs.Tier().AllowsHistory() {
		entry := model.HistoryEntry{
			CreatedAt: c.now(),
			Dataset:   c.datasetName(),
			Topics:    c.picks,
		}
		wrote, err := c.prefs.AppendHistory(ctx, entry)
		if err != nil {
			c.logger.Warn("failed to record history", "error", err)
		}
		if wrote {
			c.history = append([]model.HistoryEntry{entry}, c.history...)
			if len(c.history) > c.limit {
				c.history = c.history[:c.limit]
			}
		}
	}
	c.timer.Stop()
	c.mode = model.PhaseIdle
	c.picks = nil
}

// ClearHistory drops stored and in-memory history.
func (c *Controller) ClearHistory(ctx context.Context) error {
	c.history = nil
	if c.prefs == nil {
		return nil
	}
	return c.prefs.ClearHistory(ctx)
}

// ReloadHistory re-reads history, e.g. after a consent change.
func (c *Controller) ReloadHistory(ctx context.Context) {
	if c.prefs == nil {
		return
	}
	c.history = c.prefs.LoadHistory(ctx, c.limit)
}

// UpdateSettings applies fn, sanitizes and saves the result. It reports
// whether the dataset key changed.
func (c *Controller) UpdateSettings(ctx context.Context, fn func(*model.Settings)) bool {
	prev := c.settings.Dataset
	next := c.settings
	fn(&next)
	c.settings = next.Sanitized()
	c.saveSettings(ctx)
	return c.settings.Dataset != prev
}

// ApplyPreset switches dataset and timings to a named preset. It reports
// whether the dataset key changed.
func (c *Controller) ApplyPreset(ctx context.Context, name string) (bool, error) {
	next, err := config.ApplyPreset(c.settings, name)
	if err != nil {
		return false, err
	}
	return c.UpdateSettings(ctx, func(s *model.Settings) { *s = next }), nil
}

// Close tears down the timer.
func (c *Controller) Close() {
	c.timer.Stop()
}

// Mode returns the current phase.
func (c *Controller) Mode() model.Phase { return c.mode }

// Picks returns the current sample result.
func (c *Controller) Picks() []model.TopicPick { return c.picks }

// History returns in-memory history, newest first.
func (c *Controller) History() []model.HistoryEntry { return c.history }

// Settings returns the current settings.
func (c *Controller) Settings() model.Settings { return c.settings }

// Timer exposes timer controls for the active session.
func (c *Controller) Timer() *timer.Timer { return c.timer }

func (c *Controller) datasetName() string {
	if c.dataset == nil {
		return ""
	}
	return c.dataset.Name
}

func (c *Controller) saveSettings(ctx context.Context) {
	if c.prefs == nil {
		return
	}
	if err := c.prefs.SaveSettings(ctx, c.settings); err != nil {
		c.logger.Warn("failed to save settings", "error", err)
	}
}
