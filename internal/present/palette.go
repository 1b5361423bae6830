package present

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// palette maps RGB colors to the nearest entry of the terminal palette,
// measured in Lab space. Results are cached per color.
type palette struct {
	colors []colorful.Color
	cache  map[uint32]tcell.Color
}

func newPalette(size int) *palette {
	p := &palette{cache: make(map[uint32]tcell.Color)}
	for i := 0; i < size; i++ {
		r, g, b := tcell.PaletteColor(i).RGB()
		p.colors = append(p.colors, colorful.Color{
			R: float64(r) / 255,
			G: float64(g) / 255,
			B: float64(b) / 255,
		})
	}
	return p
}

func (p *palette) nearest(rgb uint32) tcell.Color {
	if c, ok := p.cache[rgb]; ok {
		return c
	}
	if len(p.colors) == 0 {
		return tcell.ColorDefault
	}

	target := colorful.Color{
		R: float64(rgb>>16&0xff) / 255,
		G: float64(rgb>>8&0xff) / 255,
		B: float64(rgb&0xff) / 255,
	}
	best, bestDist := 0, math.MaxFloat64
	for i, c := range p.colors {
		if d := target.DistanceLab(c); d < bestDist {
			best, bestDist = i, d
		}
	}

	c := tcell.PaletteColor(best)
	p.cache[rgb] = c
	return c
}
