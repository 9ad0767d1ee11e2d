package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/vismem/internal/model"
)

// A terminal cell stands for a cellWidthPx x cellHeightPx block of the
// pixel region the placement engine works in.
const (
	cellWidthPx  = 16
	cellHeightPx = 32
)

// styledCell is one rendered terminal cell. Wide runes occupy two cells; the
// second one is a zero-width continuation.
type styledCell struct {
	s     string
	width int
}

type canvas struct {
	cols  int
	rows  int
	cells [][]styledCell
}

func newCanvas(cols, rows int) *canvas {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	cells := make([][]styledCell, rows)
	for r := range cells {
		cells[r] = make([]styledCell, cols)
		for c := range cells[r] {
			cells[r][c] = styledCell{s: " ", width: 1}
		}
	}
	return &canvas{cols: cols, rows: rows, cells: cells}
}

// drawText writes s starting at (col, row), clipped at the right edge.
func (c *canvas) drawText(col, row int, s string, style lipgloss.Style) {
	if row < 0 || row >= c.rows {
		return
	}
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col < 0 || col+w > c.cols {
			return
		}
		c.cells[row][col] = styledCell{s: style.Render(string(r)), width: w}
		if w == 2 {
			c.cells[row][col+1] = styledCell{}
		}
		col += w
	}
}

// drawBlock writes pre-rendered single-width cells, one slice per line.
func (c *canvas) drawBlock(col, row int, lines [][]string) {
	for dy, line := range lines {
		y := row + dy
		if y < 0 || y >= c.rows {
			continue
		}
		for dx, cell := range line {
			x := col + dx
			if x < 0 || x >= c.cols {
				continue
			}
			c.cells[y][x] = styledCell{s: cell, width: 1}
		}
	}
}

func (c *canvas) String() string {
	lines := make([]string, c.rows)
	var b strings.Builder
	for r, row := range c.cells {
		b.Reset()
		for _, cell := range row {
			if cell.width == 0 {
				continue
			}
			b.WriteString(cell.s)
		}
		lines[r] = b.String()
	}
	return strings.Join(lines, "\n")
}

// regionFor converts a terminal area to the pixel region in which top-left
// anchors are drawn, leaving room for a footprint of footCols x footRows.
func regionFor(cols, rows, footCols, footRows int) model.Region {
	w := cols - footCols
	h := rows - footRows
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return model.Region{Width: w * cellWidthPx, Height: h * cellHeightPx}
}

func cellOf(p model.Position) (col, row int) {
	return p.X / cellWidthPx, p.Y / cellHeightPx
}
