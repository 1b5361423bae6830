package ui

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// labeledGrid returns a grid whose rows are filled with "a", "b", ...
func labeledGrid(width, height int) *Grid {
	g := &Grid{}
	g.resize(width, height, newCell(" ", 0, defaultAttrs()))
	for y := 0; y < height; y++ {
		for x := range g.Row(y) {
			g.Row(y)[x].setText(string(rune('a' + y)))
		}
	}
	return g
}

func columns(g *Grid, col int) string {
	var s string
	for y := 0; y < g.Height(); y++ {
		s += g.Cell(y, col).Text()
	}
	return s
}

func TestGrid_Scroll(t *testing.T) {
	tests := []struct {
		name                           string
		top, bottom, left, right, rows int
		want0, want2                   string
	}{
		{"up", 0, 5, 0, 3, 2, "cdede", "cdede"},
		{"down", 0, 5, 0, 3, -2, "ababc", "ababc"},
		{"up by one inside region", 1, 4, 0, 3, 1, "acdde", "acdde"},
		{"down by one inside region", 1, 4, 0, 3, -1, "abbce", "abbce"},
		{"column range", 0, 5, 0, 1, 1, "bcdee", "abcde"},
		{"whole region", 0, 5, 0, 3, 5, "abcde", "abcde"},
		{"whole region down", 0, 5, 0, 3, -5, "abcde", "abcde"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := labeledGrid(3, 5)
			g.scroll(tt.top, tt.bottom, tt.left, tt.right, tt.rows)
			assert.Equal(t, tt.want0, columns(g, 0))
			assert.Equal(t, tt.want2, columns(g, 2))
		})
	}
}

func TestGrid_ScrollRegion(t *testing.T) {
	tests := []struct {
		name        string
		height      int
		top, bottom int
		rows        int
		want        string
	}{
		{"up by three", 12, 2, 10, 3, "abfghijhijkl"},
		{"down by three", 12, 2, 10, -3, "abcdecdefgkl"},
		{"two rows up", 2, 0, 2, 1, "bb"},
		{"two rows down", 2, 0, 2, -1, "aa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := labeledGrid(1, tt.height)
			g.scroll(tt.top, tt.bottom, 0, 1, tt.rows)
			assert.Equal(t, tt.want, columns(g, 0))
		})
	}
}

func TestGrid_ResizeClampsCursor(t *testing.T) {
	g := labeledGrid(10, 10)
	g.cursor.Row, g.cursor.Col = 8, 9

	g.resize(4, 3, newCell(" ", 0, defaultAttrs()))
	assert.Equal(t, 2, g.Cursor().Row)
	assert.Equal(t, 3, g.Cursor().Col)
	assert.Equal(t, " ", g.Cell(2, 3).Text())
}

func TestGrid_CopyFrom(t *testing.T) {
	src := labeledGrid(2, 2)
	src.tick.Store(7)
	src.cursor.Col = 1

	var dst Grid
	dst.copyFrom(src)
	assert.Equal(t, uint64(7), dst.DrawTick())
	assert.Equal(t, "ab", columns(&dst, 1))
	assert.Equal(t, 1, dst.Cursor().Col)

	src.Cell(0, 0).setText("z")
	assert.Equal(t, "a", dst.Cell(0, 0).Text())
}

func TestGrid_CellPanicsOutOfRange(t *testing.T) {
	g := labeledGrid(2, 2)
	assert.Panics(t, func() { g.Cell(2, 0) })
	assert.Panics(t, func() { g.Cell(0, -1) })
}

func TestCell_TextTruncatesOnRuneBoundary(t *testing.T) {
	var c Cell
	c.setText("a" + strings.Repeat("é", 12))
	assert.Equal(t, "a"+strings.Repeat("é", 11), c.Text())
}
