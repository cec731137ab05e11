package historyui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/impromptu/internal/stats"
)

const (
	fieldDataset = iota
	fieldLast
)

// filterForm edits the dataset and last-N filters of a report.
type filterForm struct {
	open   bool
	fields []textinput.Model
	focus  int
	err    string
}

func newFilterForm() filterForm {
	return filterForm{fields: []textinput.Model{
		newField("Dataset: ", "any"),
		newField("Last: ", "all"),
	}}
}

func newField(prompt, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.Cursor.SetMode(cursor.CursorBlink)
	return in
}

// show opens the form prefilled from cfg.
func (f *filterForm) show(cfg stats.ReportConfig) tea.Cmd {
	f.open = true
	f.err = ""
	f.fields[fieldDataset].SetValue(cfg.Dataset)
	last := ""
	if cfg.Last > 0 {
		last = strconv.Itoa(cfg.Last)
	}
	f.fields[fieldLast].SetValue(last)
	return f.focusField(fieldDataset)
}

func (f *filterForm) hide() {
	f.open = false
	f.err = ""
}

func (f *filterForm) focusField(idx int) tea.Cmd {
	n := len(f.fields)
	f.focus = ((idx % n) + n) % n
	var cmd tea.Cmd
	for i := range f.fields {
		if i == f.focus {
			cmd = f.fields[i].Focus()
			continue
		}
		f.fields[i].Blur()
	}
	return cmd
}

func (f *filterForm) setWidth(width int) {
	for i := range f.fields {
		f.fields[i].Width = maxInt(10, width-lipgloss.Width(f.fields[i].Prompt)-2)
	}
}

// apply returns cfg with the form's values, or an error for invalid input.
func (f *filterForm) apply(cfg stats.ReportConfig) (stats.ReportConfig, error) {
	raw := strings.TrimSpace(f.fields[fieldLast].Value())
	last := 0
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("last must be empty or a non-negative number")
		}
		last = n
	}
	cfg.Dataset = strings.TrimSpace(f.fields[fieldDataset].Value())
	cfg.Last = last
	return cfg, nil
}

func (f *filterForm) updateField(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return cmd
}

func (f *filterForm) view() string {
	lines := []string{titleStyle.Render("Filter history"), ""}
	for _, in := range f.fields {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, "", errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}
