package ui

import "unicode/utf8"

// CellTextCapacity is the maximum number of UTF-8 bytes a cell holds.
const CellTextCapacity = 24

// Cell is one grid position. Its text is stored inline so that grids can be
// copied wholesale without per-cell allocations.
type Cell struct {
	text  [CellTextCapacity]byte
	size  uint8
	hl    uint32
	attrs Attrs
}

func newCell(text string, hl uint32, attrs Attrs) Cell {
	c := Cell{hl: hl, attrs: attrs}
	c.setText(text)
	return c
}

func (c *Cell) setText(s string) {
	if len(s) > CellTextCapacity {
		n := CellTextCapacity
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	c.size = uint8(copy(c.text[:], s))
}

// setBytes is setText for text borrowed from a decoded message.
func (c *Cell) setBytes(p []byte) {
	if len(p) > CellTextCapacity {
		n := CellTextCapacity
		for n > 0 && !utf8.RuneStart(p[n]) {
			n--
		}
		p = p[:n]
	}
	c.size = uint8(copy(c.text[:], p))
}

// Text returns the text of the cell. It is empty for blank cells and for
// the right half of a double width character.
func (c *Cell) Text() string {
	return string(c.text[:c.size])
}

// TextBytes returns the text of the cell without copying.
func (c *Cell) TextBytes() []byte {
	return c.text[:c.size]
}

// HL returns the highlight id the cell was drawn with.
func (c *Cell) HL() uint32 {
	return c.hl
}

// Attrs returns the resolved attributes of the cell.
func (c *Cell) Attrs() Attrs {
	return c.attrs
}

// IsDoubleWidth reports whether the cell is part of a double width
// character, either its left or its right half.
func (c *Cell) IsDoubleWidth() bool {
	return c.attrs.Flags.Has(DoubleWidth)
}
