// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/impromptu/internal/config"
	"github.com/verte-zerg/impromptu/internal/dataset"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/session"
	"github.com/verte-zerg/impromptu/internal/timer"
)

type screen int

const (
	screenHome screen = iota
	screenSettings
	screenHistory
	screenConsent
)

// runMsg carries a scheduler callback into the update loop.
type runMsg struct {
	fn func()
}

type datasetLoadedMsg struct {
	key string
	ds  model.Dataset
	err error
}

// Loader loads datasets by key.
type Loader interface {
	Load(ctx context.Context, key string) (model.Dataset, error)
}

// Consent records the storage consent tier.
type Consent interface {
	Tier() prefs.Tier
	SetTier(ctx context.Context, tier prefs.Tier) error
}

// Options configures the practice UI.
type Options struct {
	Controller *session.Controller
	Loader     Loader
	Datasets   []dataset.Info
	Consent    Consent
	Logger     *slog.Logger
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	ctx      context.Context
	ctrl     *session.Controller
	loader   Loader
	datasets []dataset.Info
	consent  Consent
	logger   *slog.Logger

	screen         screen
	cursor         int
	settingsCursor int
	historyCursor  int
	confirmClear   bool
	presetIndex    int
	loadingKey     string
	status         string
	errMsg         string

	spinner spinner.Model
	help    help.Model
	initCmd tea.Cmd

	width  int
	height int
}

// NewModel constructs a practice TUI model. When the controller has no
// dataset yet, loading the one named in its settings starts with Init.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Model{
		ctx:      ctx,
		ctrl:     opts.Controller,
		loader:   opts.Loader,
		datasets: opts.Datasets,
		consent:  opts.Consent,
		logger:   opts.Logger,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		help:     help.New(),
	}
	if m.consent != nil && m.consent.Tier() == prefs.TierUnset {
		m.screen = screenConsent
	}
	if _, ok := m.ctrl.Dataset(); !ok && !m.ctrl.Loading() {
		m.initCmd = m.startLoad(m.ctrl.Settings().Dataset)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.initCmd
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case runMsg:
		msg.fn()
		return m, nil
	case datasetLoadedMsg:
		return m, m.finishLoad(msg)
	case spinner.TickMsg:
		if !m.ctrl.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch {
		case m.screen == screenConsent:
			return m.updateConsent(msg)
		case m.ctrl.Mode() != model.PhaseIdle:
			return m.updateSession(msg)
		case m.screen == screenSettings:
			return m.updateSettings(msg)
		case m.screen == screenHistory:
			return m.updateHistory(msg)
		default:
			return m.updateHome(msg)
		}
	}
	return m, nil
}

func (m *Model) startLoad(key string) tea.Cmd {
	m.ctrl.BeginLoad(key)
	m.loadingKey = key
	loader := m.loader
	ctx := m.ctx
	load := func() tea.Msg {
		if loader == nil {
			return datasetLoadedMsg{key: key, err: fmt.Errorf("no dataset loader")}
		}
		ds, err := loader.Load(ctx, key)
		return datasetLoadedMsg{key: key, ds: ds, err: err}
	}
	return tea.Batch(m.spinner.Tick, load)
}

func (m *Model) finishLoad(msg datasetLoadedMsg) tea.Cmd {
	if !m.ctrl.FinishLoad(m.ctx, msg.key, msg.ds, msg.err) {
		return nil
	}
	m.loadingKey = ""
	if msg.err != nil {
		m.errMsg = fmt.Sprintf("Could not load dataset %q: %v", msg.key, msg.err)
		if _, ok := m.ctrl.Dataset(); !ok && msg.key != dataset.DefaultKey {
			return m.startLoad(dataset.DefaultKey)
		}
		return nil
	}
	m.errMsg = ""
	m.cursor = 0
	m.logger.Debug("dataset loaded", "dataset", msg.key, "topics", msg.ds.TopicCount())
	return nil
}

func (m *Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Generate):
		if !m.ctrl.Generate() {
			if m.ctrl.Loading() {
				m.status = "Dataset is still loading."
			} else {
				m.status = "No topics available for the enabled categories."
			}
		}
		return m, nil
	case key.Matches(msg, keys.Up):
		m.moveCursor(&m.cursor, -1, m.categoryCount())
		return m, nil
	case key.Matches(msg, keys.Down):
		m.moveCursor(&m.cursor, 1, m.categoryCount())
		return m, nil
	case key.Matches(msg, keys.Toggle):
		sel := m.ctrl.Selection()
		if sel == nil || len(sel.Names()) == 0 {
			return m, nil
		}
		if !m.ctrl.ToggleCategory(sel.Names()[m.cursor]) {
			m.status = "At least one category must stay enabled."
		}
		return m, nil
	case key.Matches(msg, keys.Dataset):
		next, ok := m.nextDataset()
		if !ok {
			m.status = "No other datasets installed."
			return m, nil
		}
		return m, m.startLoad(next)
	case key.Matches(msg, keys.Preset):
		return m, m.cyclePreset()
	case key.Matches(msg, keys.Settings):
		m.screen = screenSettings
		m.settingsCursor = 0
		return m, nil
	case key.Matches(msg, keys.History):
		m.screen = screenHistory
		m.historyCursor = 0
		m.confirmClear = false
		return m, nil
	case key.Matches(msg, keys.Consent):
		if m.consent != nil {
			m.screen = screenConsent
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateSession(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.ctrl.Timer()
	switch {
	case key.Matches(msg, keys.Run):
		t.ToggleRun()
	case key.Matches(msg, keys.Reset):
		t.Reset()
	case key.Matches(msg, keys.Skip):
		t.Skip()
	case key.Matches(msg, keys.Return):
		m.ctrl.Return(m.ctx)
		m.screen = screenHome
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
		m.screen = screenHome
	case key.Matches(msg, keys.Up):
		m.moveCursor(&m.settingsCursor, -1, len(settingRows))
	case key.Matches(msg, keys.Down):
		m.moveCursor(&m.settingsCursor, 1, len(settingRows))
	case key.Matches(msg, keys.Left):
		m.adjustSetting(-1)
	case key.Matches(msg, keys.Right), key.Matches(msg, keys.Toggle):
		m.adjustSetting(1)
	}
	return m, nil
}

func (m *Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmClear {
		switch {
		case key.Matches(msg, keys.Yes):
			if err := m.ctrl.ClearHistory(m.ctx); err != nil {
				m.errMsg = fmt.Sprintf("Could not clear history: %v", err)
			}
			m.historyCursor = 0
			m.confirmClear = false
		case key.Matches(msg, keys.No):
			m.confirmClear = false
		}
		return m, nil
	}
	entries := m.ctrl.History()
	switch {
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
		m.screen = screenHome
	case key.Matches(msg, keys.Up):
		m.moveCursor(&m.historyCursor, -1, len(entries))
	case key.Matches(msg, keys.Down):
		m.moveCursor(&m.historyCursor, 1, len(entries))
	case key.Matches(msg, keys.Replay):
		if m.historyCursor < len(entries) && m.ctrl.Replay(entries[m.historyCursor]) {
			m.screen = screenHome
		}
	case key.Matches(msg, keys.Clear):
		if len(entries) > 0 {
			m.confirmClear = true
		}
	}
	return m, nil
}

func (m *Model) updateConsent(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var tier prefs.Tier
	switch {
	case key.Matches(msg, keys.ConsentNone):
		tier = prefs.TierNone
	case key.Matches(msg, keys.ConsentEssential):
		tier = prefs.TierEssential
	case key.Matches(msg, keys.ConsentAll):
		tier = prefs.TierAll
	case key.Matches(msg, keys.Back):
		if m.consent.Tier() != prefs.TierUnset {
			m.screen = screenHome
		}
		return m, nil
	default:
		return m, nil
	}
	if err := m.consent.SetTier(m.ctx, tier); err != nil {
		m.errMsg = fmt.Sprintf("Could not save privacy choice: %v", err)
		return m, nil
	}
	m.ctrl.ReloadHistory(m.ctx)
	m.screen = screenHome
	m.status = fmt.Sprintf("Storage set to %s.", tier)
	return m, nil
}

func (m *Model) cyclePreset() tea.Cmd {
	presets := config.Presets()
	if len(presets) == 0 {
		return nil
	}
	p := presets[m.presetIndex%len(presets)]
	m.presetIndex++
	changed, err := m.ctrl.ApplyPreset(m.ctx, p.Name)
	if err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.status = "Preset: " + p.Label
	if changed {
		return m.startLoad(m.ctrl.Settings().Dataset)
	}
	return nil
}

func (m *Model) nextDataset() (string, bool) {
	if len(m.datasets) == 0 {
		return "", false
	}
	current := m.ctrl.Settings().Dataset
	if m.loadingKey != "" {
		current = m.loadingKey
	}
	for i, info := range m.datasets {
		if info.Key == current {
			next := m.datasets[(i+1)%len(m.datasets)].Key
			return next, next != current
		}
	}
	return m.datasets[0].Key, true
}

func (m *Model) categoryCount() int {
	sel := m.ctrl.Selection()
	if sel == nil {
		return 0
	}
	return len(sel.Names())
}

func (m *Model) moveCursor(cursor *int, delta, count int) {
	if count == 0 {
		*cursor = 0
		return
	}
	next := *cursor + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	*cursor = next
}

func (m *Model) adjustSetting(delta int) {
	row := settingRows[m.settingsCursor]
	m.ctrl.UpdateSettings(m.ctx, func(s *model.Settings) {
		row.adjust(s, delta)
	})
}

type settingRow struct {
	label  string
	value  func(model.Settings) string
	adjust func(s *model.Settings, delta int)
}

const timeStep = 15

var settingRows = []settingRow{
	{
		label: "Prompts",
		value: func(s model.Settings) string { return fmt.Sprintf("%d", s.Prompts) },
		adjust: func(s *model.Settings, d int) {
			s.Prompts = clamp(s.Prompts+d, model.MinPrompts, model.MaxPrompts)
		},
	},
	{
		label: "Preparation time",
		value: func(s model.Settings) string { return formatDuration(s.PrepTime) },
		adjust: func(s *model.Settings, d int) {
			s.PrepTime = clamp(s.PrepTime+d*timeStep, 0, model.MaxPrepTime)
		},
	},
	{
		label: "Speaking time",
		value: func(s model.Settings) string { return formatDuration(s.SpeakTime) },
		adjust: func(s *model.Settings, d int) {
			s.SpeakTime = clamp(s.SpeakTime+d*timeStep, model.MinSpeakTime, model.MaxSpeakTime)
		},
	},
	{
		label:  "Auto-start preparation",
		value:  func(s model.Settings) string { return onOff(s.AutoStart) },
		adjust: func(s *model.Settings, _ int) { s.AutoStart = !s.AutoStart },
	},
	{
		label:  "Same category for all prompts",
		value:  func(s model.Settings) string { return onOff(s.ForceSame) },
		adjust: func(s *model.Settings, _ int) { s.ForceSame = !s.ForceSame },
	},
	{
		label:  "Alert when preparation ends",
		value:  func(s model.Settings) string { return onOff(s.Alert) },
		adjust: func(s *model.Settings, _ int) { s.Alert = !s.Alert },
	},
	{
		label:  "Play a tone with the alert",
		value:  func(s model.Settings) string { return onOff(s.AlertSound) },
		adjust: func(s *model.Settings, _ int) { s.AlertSound = !s.AlertSound },
	},
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatDuration(seconds int) string {
	if seconds == 0 {
		return "off"
	}
	return timer.FormatClock(seconds)
}
