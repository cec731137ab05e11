package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/timer"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	clockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	warnStyle     = clockStyle.Copy().Foreground(lipgloss.Color("#FF4D4F"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	topicStyle    = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// View implements tea.Model.
func (m *Model) View() string {
	contentWidth := m.contentWidth()
	var body string
	switch {
	case m.screen == screenConsent:
		body = m.renderConsent(contentWidth)
	case m.ctrl.Mode() != model.PhaseIdle:
		body = m.renderSession(contentWidth)
	case m.screen == screenSettings:
		body = m.renderSettings()
	case m.screen == screenHistory:
		body = m.renderHistory(contentWidth)
	default:
		body = m.renderHome(contentWidth)
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return body + "\n\n" + footer
	}
	content := lipgloss.NewStyle().Width(contentWidth).Render(body)
	footerHeight := lipgloss.Height(footer)
	if m.height <= footerHeight+2 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - footerHeight
	main := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Bottom, footer)
	return main + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 72
	}
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = m.width
	}
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) renderFooter() string {
	lines := []string{}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	}
	if m.status != "" {
		lines = append(lines, mutedStyle.Render(m.status))
	}
	lines = append(lines, m.help.View(m.helpFor()))
	return strings.Join(lines, "\n")
}

func (m *Model) renderHome(width int) string {
	lines := []string{titleStyle.Render("Impromptu Practice")}
	ds, ok := m.ctrl.Dataset()
	if m.ctrl.Loading() {
		lines = append(lines, m.spinner.View()+" Loading "+m.loadingKey+"...")
	}
	if !ok {
		return strings.Join(lines, "\n")
	}
	lines = append(lines, accentStyle.Render(ds.Name))
	if ds.Tagline != "" {
		for _, l := range wrapText(ds.Tagline, width) {
			lines = append(lines, mutedStyle.Render(l))
		}
	}
	lines = append(lines, "")
	if sel := m.ctrl.Selection(); sel != nil {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Categories (%d of %d enabled)", sel.EnabledCount(), len(sel.Names()))))
		counts := map[string]int{}
		for _, c := range ds.Categories {
			counts[c.Name] = len(c.Topics)
		}
		for i, name := range sel.Names() {
			mark := "[ ]"
			if sel.IsEnabled(name) {
				mark = "[x]"
			}
			row := fmt.Sprintf("%s %s (%d)", mark, name, counts[name])
			if i == m.cursor {
				lines = append(lines, selectedStyle.Render("> "+row))
			} else {
				lines = append(lines, "  "+row)
			}
		}
	}
	s := m.ctrl.Settings()
	summary := fmt.Sprintf("%d prompt(s) · prep %s · speak %s", s.Prompts, formatDuration(s.PrepTime), timer.FormatClock(s.SpeakTime))
	if s.ForceSame {
		summary += " · same category"
	}
	lines = append(lines, "", mutedStyle.Render(summary))
	return strings.Join(lines, "\n")
}

func (m *Model) renderSession(width int) string {
	st := m.ctrl.Timer().Snapshot()
	style := clockStyle
	if m.ctrl.Timer().Warning() {
		style = warnStyle
	}
	label := "Preparation"
	clock := style.Render(timer.FormatClock(st.Seconds))
	if st.Phase == model.PhaseSpeaking {
		label = "Speaking"
		if st.Target > 0 {
			clock += mutedStyle.Render(" / " + timer.FormatClock(st.Target))
		}
	}
	state := "paused"
	switch {
	case st.Running:
		state = "running"
	case st.Completed:
		state = "done"
	}
	lines := []string{
		accentStyle.Render(label) + mutedStyle.Render(" ("+state+")"),
		clock,
		"",
	}
	inner := width - 4
	for i, pick := range m.ctrl.Picks() {
		text := strings.Join(wrapText(pick.Text, inner), "\n")
		card := mutedStyle.Render(fmt.Sprintf("%d. %s", i+1, pick.Category)) + "\n" + titleStyle.Render(text)
		lines = append(lines, topicStyle.Width(width-2).Render(card))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSettings() string {
	s := m.ctrl.Settings()
	lines := []string{titleStyle.Render("Settings"), ""}
	labelWidth := 0
	for _, row := range settingRows {
		if w := runewidth.StringWidth(row.label); w > labelWidth {
			labelWidth = w
		}
	}
	for i, row := range settingRows {
		label := runewidth.FillRight(row.label, labelWidth)
		line := fmt.Sprintf("%s  %s", label, row.value(s))
		if i == m.settingsCursor {
			lines = append(lines, selectedStyle.Render("> "+line))
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHistory(width int) string {
	lines := []string{titleStyle.Render("History"), ""}
	entries := m.ctrl.History()
	if len(entries) == 0 {
		msg := "No history yet."
		if m.consent != nil && !m.consent.Tier().AllowsHistory() {
			msg = "History is only kept when storage is set to all (press c on the home screen)."
		}
		return strings.Join(append(lines, mutedStyle.Render(msg)), "\n")
	}
	if m.confirmClear {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Delete all %d entries? (y/n)", len(entries))), "")
	}
	const maxRows = 12
	start := 0
	if m.historyCursor >= maxRows {
		start = m.historyCursor - maxRows + 1
	}
	for i := start; i < len(entries) && i < start+maxRows; i++ {
		e := entries[i]
		first := ""
		if len(e.Topics) > 0 {
			first = e.Topics[0].Text
		}
		head := fmt.Sprintf("%s  %s  ", e.CreatedAt.Local().Format("Jan 02 15:04"), e.Dataset)
		row := head + runewidth.Truncate(first, width-runewidth.StringWidth(head)-2, "...")
		if i == m.historyCursor {
			lines = append(lines, selectedStyle.Render("> "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderConsent(width int) string {
	intro := "Impromptu can remember your settings and the topics you have practiced. " +
		"Nothing leaves this computer. Choose what may be stored:"
	lines := []string{titleStyle.Render("Storage"), ""}
	lines = append(lines, wrapText(intro, width)...)
	lines = append(lines,
		"",
		"  1  Nothing",
		"  2  Settings only",
		"  3  Settings and practice history",
	)
	if m.consent != nil && m.consent.Tier() != prefs.TierUnset {
		lines = append(lines, "", mutedStyle.Render("Current: "+m.consent.Tier().String()+" (esc to keep)"))
	}
	return strings.Join(lines, "\n")
}
