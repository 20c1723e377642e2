package main

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"boxelab/internal/pipeline"
)

const maxFuncColumn = 32

var statsHeader = []string{"func", "places", "temps", "debug", "blocks"}

func statsRow(fs pipeline.FuncStats) []string {
	return []string{
		truncate(fs.Func, maxFuncColumn),
		strconv.Itoa(fs.Places),
		strconv.Itoa(fs.Temps),
		strconv.Itoa(fs.DebugInfo),
		strconv.Itoa(fs.Blocks),
	}
}

// renderStats draws one row per function plus a total row. The first column
// is left aligned, counters are right aligned.
func renderStats(w io.Writer, stats pipeline.Stats) error {
	rows := [][]string{statsHeader}
	for _, fs := range stats.Funcs {
		rows = append(rows, statsRow(fs))
	}
	rows = append(rows, statsRow(stats.Totals()))

	widths := make([]int, len(statsHeader))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	styled := !color.NoColor
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	totalStyle := lipgloss.NewStyle().Bold(true)
	ruleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var sb strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == 0 {
				cells[i] = runewidth.FillRight(cell, widths[i])
			} else {
				cells[i] = runewidth.FillLeft(cell, widths[i])
			}
		}
		line := strings.Join(cells, "  ")
		if styled {
			switch r {
			case 0:
				line = headerStyle.Render(line)
			case len(rows) - 1:
				line = totalStyle.Render(line)
			}
		}
		if r == len(rows)-1 {
			rule := strings.Repeat("-", runewidth.StringWidth(strings.Join(cells, "  ")))
			if styled {
				rule = ruleStyle.Render(rule)
			}
			sb.WriteString(rule + "\n")
		}
		sb.WriteString(line + "\n")
	}
	if stats.BoxTypes > 0 {
		sb.WriteString("box types: " + strconv.Itoa(stats.BoxTypes) + "\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
