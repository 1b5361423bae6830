package ui

import "sync/atomic"

// Grid is a width x height array of cells in row-major order together with
// the cursor and a draw tick that increases with every flush.
type Grid struct {
	width  int
	height int
	cells  []Cell
	cursor Cursor
	tick   atomic.Uint64
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// DrawTick returns the number of flushes the grid contents reflect.
func (g *Grid) DrawTick() uint64 { return g.tick.Load() }

// Cursor returns the cursor state.
func (g *Grid) Cursor() Cursor { return g.cursor }

// Cell returns the cell at row, col. It panics when out of range.
func (g *Grid) Cell(row, col int) *Cell {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		panic("ui: cell index out of range")
	}
	return &g.cells[row*g.width+col]
}

// Row returns the cells of one row.
func (g *Grid) Row(row int) []Cell {
	start := row * g.width
	return g.cells[start : start+g.width : start+g.width]
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.height && col >= 0 && col < g.width
}

// resize replaces the contents with blank cells.
func (g *Grid) resize(width, height int, blank Cell) {
	g.width = width
	g.height = height
	n := width * height
	if cap(g.cells) >= n {
		g.cells = g.cells[:n]
	} else {
		g.cells = make([]Cell, n)
	}
	g.fill(blank)

	if g.cursor.Row >= height {
		g.cursor.Row = max(height-1, 0)
	}
	if g.cursor.Col >= width {
		g.cursor.Col = max(width-1, 0)
	}
}

func (g *Grid) fill(blank Cell) {
	for i := range g.cells {
		g.cells[i] = blank
	}
}

// copyFrom makes g an exact copy of src, reusing g's storage.
func (g *Grid) copyFrom(src *Grid) {
	g.width = src.width
	g.height = src.height
	if cap(g.cells) >= len(src.cells) {
		g.cells = g.cells[:len(src.cells)]
	} else {
		g.cells = make([]Cell, len(src.cells))
	}
	copy(g.cells, src.cells)
	g.cursor = src.cursor
	g.tick.Store(src.tick.Load())
}

// scroll moves the rows of the region [top, bottom) x [left, right) by rows.
// Positive rows move contents up, negative rows move them down. Rows that
// are scrolled in keep their old contents; Neovim redraws them.
func (g *Grid) scroll(top, bottom, left, right, rows int) {
	height := bottom - top
	if rows <= -height || rows >= height {
		return
	}
	if rows >= 0 {
		for y := top; y < top+height-rows; y++ {
			copy(g.cells[y*g.width+left:y*g.width+right], g.cells[(y+rows)*g.width+left:(y+rows)*g.width+right])
		}
		return
	}
	for y := bottom - 1; y >= top-rows; y-- {
		copy(g.cells[y*g.width+left:y*g.width+right], g.cells[(y+rows)*g.width+left:(y+rows)*g.width+right])
	}
}
