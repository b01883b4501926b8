package terminal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlyphRamp(t *testing.T) {
	assert.Equal(t, ' ', glyph(0))
	assert.Equal(t, ' ', glyph(-3))
	assert.Equal(t, '@', glyph(1))
	assert.Equal(t, '@', glyph(42))

	prev := -1
	for d := 0.0; d <= 1.0; d += 0.01 {
		idx := indexOf(glyph(d))
		assert.GreaterOrEqual(t, idx, prev, "density %g", d)
		prev = idx
	}
}

func indexOf(r rune) int {
	for i, g := range ramp {
		if g == r {
			return i
		}
	}
	return -1
}

func TestCellAt(t *testing.T) {
	// A 4x2 grid on an 8x4 terminal: each grid cell covers 2x2 glyphs.
	x, y := cellAt(0, 3, 8, 4, 4, 2)
	assert.Equal(t, []int{0, 0}, []int{x, y}, "bottom left")

	x, y = cellAt(7, 0, 8, 4, 4, 2)
	assert.Equal(t, []int{3, 1}, []int{x, y}, "top right")

	x, y = cellAt(3, 2, 8, 4, 4, 2)
	assert.Equal(t, []int{1, 0}, []int{x, y})
}

func TestClicksAreMappedToWorld(t *testing.T) {
	var log bytes.Buffer
	term := New(&log)
	term.bbw, term.bbh = 10, 5
	term.worldW, term.worldH = 2, 1

	term.click(0, 4)
	term.click(9, 0)

	clicks := term.Clicks()
	if assert.Len(t, clicks, 2) {
		assert.InDelta(t, 0.1, clicks[0].X, 1e-12)
		assert.InDelta(t, 0.1, clicks[0].Y, 1e-12)
		assert.InDelta(t, 1.9, clicks[1].X, 1e-12)
		assert.InDelta(t, 0.9, clicks[1].Y, 1e-12)
	}
	assert.Empty(t, term.Clicks())
	assert.Contains(t, log.String(), "X:9")
}

func TestQuitIsIdempotent(t *testing.T) {
	term := New(nil)
	term.quit()
	term.quit()

	select {
	case <-term.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.ErrorIs(t, term.Accept(nil), ErrClosed)
}
