package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/vismem/internal/model"
)

const gridColumns = 5

func gridPosition(index int) (row, col int) {
	return index / gridColumns, index % gridColumns
}

func gridRows(count int) int {
	return (count + gridColumns - 1) / gridColumns
}

// moveCursor moves within a grid of count items, clamping at the edges.
func moveCursor(cursor, count, dRow, dCol int) int {
	if count == 0 {
		return 0
	}
	row, col := gridPosition(cursor)
	row += dRow
	col += dCol
	if col < 0 {
		col = 0
	}
	if col >= gridColumns {
		col = gridColumns - 1
	}
	if row < 0 {
		row = 0
	}
	next := row*gridColumns + col
	if next >= count {
		if dRow > 0 {
			return cursor
		}
		next = count - 1
	}
	return next
}

// gridCellWidth fits five cells plus separators into width.
func gridCellWidth(labels []model.StimulusID, width, minWidth int) int {
	w := minWidth
	for _, l := range labels {
		if lw := runewidth.StringWidth(string(l)) + 4; lw > w {
			w = lw
		}
	}
	if width > 0 {
		if limit := (width - (gridColumns - 1)) / gridColumns; limit > 0 && w > limit {
			w = limit
		}
	}
	return w
}

type gridCell struct {
	id       model.StimulusID
	selected bool
	cursor   bool
	art      [][]string
}

// renderGrid lays cells out in rows of five. It returns the rendered lines
// and the line span of the cursor's row.
func renderGrid(cells []gridCell, cellWidth int) (lines []string, cursorTop, cursorBottom int) {
	for start := 0; start < len(cells); start += gridColumns {
		end := start + gridColumns
		if end > len(cells) {
			end = len(cells)
		}
		row := cells[start:end]
		artRows := 0
		hasCursor := false
		for _, c := range row {
			if len(c.art) > artRows {
				artRows = len(c.art)
			}
			hasCursor = hasCursor || c.cursor
		}
		top := len(lines)
		for a := 0; a < artRows; a++ {
			parts := make([]string, len(row))
			for i, c := range row {
				parts[i] = artLine(c.art, a, cellWidth)
			}
			lines = append(lines, strings.Join(parts, " "))
		}
		parts := make([]string, len(row))
		for i, c := range row {
			parts[i] = captionCell(c, cellWidth)
		}
		lines = append(lines, strings.Join(parts, " "))
		if artRows > 0 {
			lines = append(lines, "")
		}
		if hasCursor {
			cursorTop, cursorBottom = top, len(lines)
		}
	}
	return lines, cursorTop, cursorBottom
}

func artLine(art [][]string, index, width int) string {
	if index >= len(art) {
		return strings.Repeat(" ", width)
	}
	line := art[index]
	if len(line) > width {
		line = line[:width]
	}
	return strings.Join(line, "") + strings.Repeat(" ", width-len(line))
}

func captionCell(c gridCell, width int) string {
	mark := "[ ]"
	if c.selected {
		mark = "[x]"
	}
	text := runewidth.Truncate(mark+" "+string(c.id), width, "…")
	text = runewidth.FillRight(text, width)
	switch {
	case c.cursor:
		return cursorStyle.Render(text)
	case c.selected:
		return selectedStyle.Render(text)
	default:
		return candidateStyle.Render(text)
	}
}
