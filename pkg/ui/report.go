package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"heapstore/pkg/primitives"
)

// PageSummary is the slot occupancy of one heap page.
type PageSummary struct {
	PageNo   primitives.PageNumber
	Used     int
	Capacity int
}

// Fill returns the used fraction of the page's slots.
func (s PageSummary) Fill() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Capacity)
}

// RenderTitle renders a report heading.
func RenderTitle(title string) string {
	return TitleStyle.Render(title)
}

// RenderError renders an error line.
func RenderError(err error) string {
	return ErrorStyle.Render("error: " + err.Error())
}

// RenderKeyValues renders aligned "label  value" lines.
func RenderKeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}

	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = LabelStyle.Render(PadString(p[0], width)) + "  " + ValueStyle.Render(p[1])
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderOccupancy draws one bar of barWidth cells per page, colored by how
// full the page is.
func RenderOccupancy(pages []PageSummary, barWidth int) string {
	if len(pages) == 0 {
		return MutedStyle.Render("(empty file)")
	}

	labelWidth := len(fmt.Sprintf("page %d", pages[len(pages)-1].PageNo))
	lines := make([]string, len(pages))
	for i, p := range pages {
		filled := int(p.Fill() * float64(barWidth))
		if p.Used > 0 && filled == 0 {
			filled = 1
		}

		bar := fillStyle(p).Render(strings.Repeat("█", filled)) +
			MutedStyle.Render(strings.Repeat("░", barWidth-filled))
		label := LabelStyle.Render(PadString(fmt.Sprintf("page %d", p.PageNo), labelWidth))
		lines[i] = fmt.Sprintf("%s %s %d/%d", label, bar, p.Used, p.Capacity)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func fillStyle(p PageSummary) lipgloss.Style {
	switch {
	case p.Used == p.Capacity:
		return lipgloss.NewStyle().Foreground(ErrorColor)
	case p.Fill() >= 0.5:
		return lipgloss.NewStyle().Foreground(WarningColor)
	default:
		return lipgloss.NewStyle().Foreground(SuccessColor)
	}
}

// RenderTable renders headers and rows with columns sized to their widest
// cell, capped at maxCellWidth.
func RenderTable(headers []string, rows [][]string, maxCellWidth int) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = min(len(h), maxCellWidth)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = min(max(widths[i], len(cell)), maxCellWidth)
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = TableHeaderStyle.Render(PadString(TruncateString(h, widths[i]), widths[i]))
	}
	b.WriteString(strings.Join(cells, " ") + "\n")

	for _, row := range rows {
		cells = cells[:0]
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			cells = append(cells, CellStyle.Render(PadString(TruncateString(cell, widths[i]), widths[i])))
		}
		b.WriteString(strings.Join(cells, " ") + "\n")
	}
	return b.String()
}

// PadString pads a string to the specified width with spaces
func PadString(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// TruncateString truncates a string to maxWidth with ellipsis
func TruncateString(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return s[:maxWidth]
	}
	return s[:maxWidth-3] + "..."
}
