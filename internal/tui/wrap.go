package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type cell struct {
	r       rune
	width   int
	isSpace bool
}

func toCells(text string) []cell {
	out := make([]cell, 0, len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		out = append(out, cell{r: r, width: runewidth.RuneWidth(r), isSpace: r == ' '})
	}
	return out
}

func renderCells(cells []cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteRune(c.r)
	}
	return b.String()
}

// wrapText breaks text into lines no wider than width display cells,
// preferring the last space on a line. Words longer than width are split.
func wrapText(text string, width int) []string {
	cells := toCells(strings.TrimSpace(text))
	if width <= 0 || len(cells) == 0 {
		return []string{renderCells(cells)}
	}
	var lines []string
	line := make([]cell, 0, len(cells))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(cells); {
		item := cells[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if item.isSpace {
				lines = append(lines, renderCells(line))
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
				i++
				continue
			}
			if lastSpaceIdx >= 0 {
				lines = append(lines, renderCells(line[:lastSpaceIdx]))
				line = append([]cell{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				lines = append(lines, renderCells(line))
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	lines = append(lines, renderCells(line))
	return lines
}

func lineWidthOf(line []cell) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []cell) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
