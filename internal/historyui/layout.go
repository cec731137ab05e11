package historyui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

// modalTextWidth is the modal width minus border and horizontal padding.
func modalTextWidth(width int) int {
	return maxInt(10, modalWidth(width)-6)
}

func padLine(line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		return line + strings.Repeat(" ", width-w)
	}
	return line
}

// fitLines pads every line to width and crops or fills to height.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i := range lines {
		lines[i] = padLine(lines[i], width)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
