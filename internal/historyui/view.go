package historyui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/stats"
)

const whenLayout = "2006-01-02 15:04"

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B0B0B0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	activeTabStyle = tabStyle.Copy().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	rowsStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.detail {
		return fitLines(m.renderDetail(), m.width, m.height)
	}
	headerH, bodyH, footerH := m.layout()
	return strings.Join([]string{
		fitLines(m.renderHeader(), m.width, headerH),
		fitLines(m.renderBody(), m.width, bodyH),
		fitLines(m.renderFooter(), m.width, footerH),
	}, "\n")
}

func (m *Model) layout() (header, body, footer int) {
	header = lipgloss.Height(tabStyle.Render("x")) + 1
	footer = 1
	if m.errMsg != "" && !m.form.open {
		footer++
	}
	body = maxInt(1, m.height-header-footer)
	return header, body, footer
}

func (m *Model) renderHeader() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.active {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	dataset := m.cfg.Dataset
	if dataset == "" {
		dataset = "any"
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	filter := fmt.Sprintf("dataset: %s · last: %s", dataset, last)
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" +
		mutedStyle.Render(runewidth.Truncate(filter, m.width, "..."))
}

func (m *Model) renderBody() string {
	switch {
	case m.form.open:
		return m.form.view()
	case m.active == tabEntries && len(m.report.Entries) == 0:
		return "No history found."
	case m.active == tabEntries:
		return rowsStyle.Render(m.entries.View())
	default:
		return m.overview.View()
	}
}

func (m *Model) renderFooter() string {
	line := m.help.View(m.helpFor())
	if m.errMsg != "" && !m.form.open {
		line += "\n" + errorStyle.Render(m.errMsg)
	}
	return line
}

func (m *Model) renderDetail() string {
	entry := m.selected()
	if entry == nil {
		return ""
	}
	textWidth := modalTextWidth(m.width)
	lines := []string{
		titleStyle.Render(entry.Dataset),
		mutedStyle.Render(entry.CreatedAt.Local().Format(whenLayout)),
	}
	for i, pick := range entry.Topics {
		lines = append(lines, "",
			accentStyle.Render(fmt.Sprintf("%d. %s", i+1, pick.Category)),
			runewidth.Wrap(pick.Text, textWidth))
	}
	lines = append(lines, "", mutedStyle.Render("esc to close"))
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func renderOverview(r stats.Report, width int) string {
	if len(r.Entries) == 0 {
		return "No history found."
	}
	topics := 0
	datasets := map[string]bool{}
	for _, e := range r.Entries {
		topics += len(e.Topics)
		datasets[e.Dataset] = true
	}
	cards := []string{
		card("Sessions", strconv.Itoa(len(r.Entries))),
		card("Topics", strconv.Itoa(topics)),
		card("Datasets", strconv.Itoa(len(datasets))),
		card("Latest", r.Entries[0].CreatedAt.Local().Format(whenLayout)),
	}
	sections := []string{lipgloss.JoinHorizontal(lipgloss.Top, cards...)}
	if width < 80 {
		sections[0] = lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	if len(r.Activity) > 0 {
		sections = append(sections, mutedStyle.Render(
			fmt.Sprintf("Activity, last %d days: [%s]", len(r.Activity), stats.Sparkline(r.Activity))))
	}
	if len(r.Trend) > 0 {
		sections = append(sections, mutedStyle.Render(
			fmt.Sprintf("Trend, %d-day average: [%s]", r.TrendWindow, stats.Sparkline(r.Trend))))
	}
	var buf bytes.Buffer
	if err := stats.RenderCategoryCounts(&buf, r.Counts, 0); err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Failed to render categories: %v", err)))
	} else if buf.Len() > 0 {
		sections = append(sections, strings.TrimRight(buf.String(), "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + titleStyle.Render(value))
}

func newEntriesTable() table.Model {
	t := table.New(table.WithColumns(entryColumns(0)), table.WithHeight(1))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	t.SetStyles(styles)
	return t
}

func entryColumns(width int) []table.Column {
	when := runewidth.StringWidth(whenLayout)
	const dataset = 22
	return []table.Column{
		{Title: "When", Width: when},
		{Title: "Dataset", Width: dataset},
		{Title: "Topics", Width: maxInt(20, width-when-dataset-4)},
	}
}

func entryRows(entries []model.HistoryEntry) []table.Row {
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		texts := make([]string, len(e.Topics))
		for j, pick := range e.Topics {
			texts[j] = pick.Text
		}
		rows[i] = table.Row{e.CreatedAt.Local().Format(whenLayout), e.Dataset, strings.Join(texts, " | ")}
	}
	return rows
}
