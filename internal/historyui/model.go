// Package historyui provides the Bubble Tea history browser.
package historyui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/stats"
)

type tab int

const (
	tabOverview tab = iota
	tabEntries
)

var tabNames = []string{"Overview", "Entries"}

type keyMap struct {
	Quit   key.Binding
	Switch key.Binding
	Filter key.Binding
	Open   key.Binding
	Close  key.Binding
	Top    key.Binding
	Bottom key.Binding
	Next   key.Binding
	Prev   key.Binding
	Apply  key.Binding
	Cancel key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Switch: key.NewBinding(key.WithKeys("left", "right", "h", "l", "tab"), key.WithHelp("←/→", "tab")),
	Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Close:  key.NewBinding(key.WithKeys("esc", "enter", "q"), key.WithHelp("esc", "close")),
	Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
	Apply:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

type helpKeys []key.Binding

func (h helpKeys) ShortHelp() []key.Binding  { return h }
func (h helpKeys) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

// Model implements the Bubble Tea history UI.
type Model struct {
	src stats.HistorySource
	cfg stats.ReportConfig
	now func() time.Time

	report stats.Report
	errMsg string

	active   tab
	overview viewport.Model
	entries  table.Model
	form     filterForm
	detail   bool
	help     help.Model

	width  int
	height int
}

// NewModel constructs a history UI model and loads the first report.
func NewModel(src stats.HistorySource, cfg stats.ReportConfig) *Model {
	m := &Model{
		src:      src,
		cfg:      cfg,
		now:      time.Now,
		overview: viewport.New(0, 0),
		entries:  newEntriesTable(),
		form:     newFilterForm(),
		help:     help.New(),
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch {
		case m.form.open:
			return m, m.updateForm(msg)
		case m.detail:
			if key.Matches(msg, keys.Close) {
				m.detail = false
			}
			return m, nil
		}
		return m, m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Switch):
		m.switchTab()
		return tea.ClearScreen
	case key.Matches(msg, keys.Filter):
		return m.form.show(m.cfg)
	case key.Matches(msg, keys.Open):
		if m.active == tabEntries && m.selected() != nil {
			m.detail = true
		}
		return nil
	case key.Matches(msg, keys.Top):
		if m.active == tabEntries {
			m.entries.GotoTop()
		} else {
			m.overview.GotoTop()
		}
		return nil
	case key.Matches(msg, keys.Bottom):
		if m.active == tabEntries {
			m.entries.GotoBottom()
		} else {
			m.overview.GotoBottom()
		}
		return nil
	}
	var cmd tea.Cmd
	if m.active == tabEntries {
		m.entries, cmd = m.entries.Update(msg)
	} else {
		m.overview, cmd = m.overview.Update(msg)
	}
	return cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.form.hide()
		return nil
	case key.Matches(msg, keys.Apply):
		cfg, err := m.form.apply(m.cfg)
		if err != nil {
			m.form.err = err.Error()
			return nil
		}
		m.form.hide()
		m.cfg = cfg
		m.reload()
		m.resize()
		return nil
	case key.Matches(msg, keys.Next):
		return m.form.focusField(m.form.focus + 1)
	case key.Matches(msg, keys.Prev):
		return m.form.focusField(m.form.focus - 1)
	}
	return m.form.updateField(msg)
}

func (m *Model) switchTab() {
	m.active = (m.active + 1) % tab(len(tabNames))
	if m.active == tabEntries {
		m.entries.Focus()
	} else {
		m.entries.Blur()
	}
}

func (m *Model) reload() {
	cfg := m.cfg
	cfg.Now = m.now()
	report, err := stats.BuildReport(context.Background(), m.src, cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.entries.SetRows(nil)
		m.overview.SetContent("Failed to load history.")
		return
	}
	m.errMsg = ""
	m.report = report
	m.entries.SetRows(entryRows(report.Entries))
	m.entries.GotoTop()
	m.overview.SetContent(renderOverview(report, m.contentWidth()))
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, body, _ := m.layout()
	m.overview.Width = m.width
	m.overview.Height = body
	m.entries.SetColumns(entryColumns(m.width))
	m.entries.SetWidth(m.width)
	m.entries.SetHeight(maxInt(1, body-1))
	m.form.setWidth(m.width)
	if m.errMsg == "" {
		m.overview.SetContent(renderOverview(m.report, m.contentWidth()))
	}
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) selected() *model.HistoryEntry {
	idx := m.entries.Cursor()
	if idx < 0 || idx >= len(m.report.Entries) {
		return nil
	}
	return &m.report.Entries[idx]
}

func (m *Model) helpFor() help.KeyMap {
	switch {
	case m.form.open:
		return helpKeys{keys.Next, keys.Apply, keys.Cancel}
	case m.active == tabEntries:
		return helpKeys{keys.Switch, keys.Open, keys.Top, keys.Filter, keys.Quit}
	default:
		return helpKeys{keys.Switch, keys.Top, keys.Bottom, keys.Filter, keys.Quit}
	}
}
