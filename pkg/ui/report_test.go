package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadAndTruncate(t *testing.T) {
	assert.Equal(t, "ab   ", PadString("ab", 5))
	assert.Equal(t, "abcdef", PadString("abcdef", 3))
	assert.Equal(t, "abcdef", TruncateString("abcdef", 6))
	assert.Equal(t, "ab...", TruncateString("abcdefgh", 5))
	assert.Equal(t, "ab", TruncateString("abcdefgh", 2))
}

func TestPageSummary_Fill(t *testing.T) {
	assert.Equal(t, 0.5, PageSummary{Used: 2, Capacity: 4}.Fill())
	assert.Zero(t, PageSummary{}.Fill())
}

func TestRenderOccupancy(t *testing.T) {
	out := RenderOccupancy([]PageSummary{
		{PageNo: 0, Used: 10, Capacity: 10},
		{PageNo: 1, Used: 1, Capacity: 100},
		{PageNo: 2, Used: 0, Capacity: 100},
	}, 20)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "10/10")
	assert.Equal(t, 20, strings.Count(lines[0], "█"))
	assert.Equal(t, 1, strings.Count(lines[1], "█"), "a used page always shows one cell")
	assert.Equal(t, 0, strings.Count(lines[2], "█"))
	assert.Equal(t, lipgloss.Width(lines[1]), lipgloss.Width(lines[2]))

	assert.Contains(t, RenderOccupancy(nil, 20), "empty file")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"id", "name"}, [][]string{
		{"1", "ada"},
		{"2", "a very long name that is cut"},
	}, 10)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "ada")
	assert.Contains(t, lines[2], "a very ...")
	assert.NotContains(t, out, "cut")
}

func TestRenderKeyValuesAndError(t *testing.T) {
	out := RenderKeyValues([][2]string{{"file", "a.dat"}, {"page size", "4096"}})
	assert.Contains(t, out, "a.dat")
	assert.Contains(t, out, "4096")
	assert.Contains(t, RenderError(errors.New("boom")), "boom")
}
