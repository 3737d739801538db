package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeGlyph returns a 6x10 glyph with its baseline at y.
func makeGlyph(s string, x, y float64) glyph {
	return glyph{
		text:       s,
		box:        Rect{Left: x, Right: x + 6, Bottom: y - 2, Top: y + 8},
		origin:     Point{X: x, Y: y},
		fontSize:   10,
		spaceWidth: 6,
	}
}

func runes(chars []char) string {
	out := make([]rune, len(chars))
	for i, c := range chars {
		out[i] = c.r
	}
	return string(out)
}

func TestLayoutPage(t *testing.T) {
	tests := []struct {
		name   string
		glyphs []glyph
		want   string
	}{
		{
			name:   "adjacent glyphs",
			glyphs: []glyph{makeGlyph("a", 0, 100), makeGlyph("b", 6, 100)},
			want:   "ab",
		},
		{
			name:   "gap becomes generated space",
			glyphs: []glyph{makeGlyph("a", 0, 100), makeGlyph("b", 12, 100)},
			want:   "a b",
		},
		{
			name:   "small gap ignored",
			glyphs: []glyph{makeGlyph("a", 0, 100), makeGlyph("b", 8, 100)},
			want:   "ab",
		},
		{
			name:   "explicit space suppresses generated one",
			glyphs: []glyph{makeGlyph("a", 0, 100), makeGlyph(" ", 20, 100), makeGlyph("b", 40, 100)},
			want:   "a b",
		},
		{
			name:   "baseline change becomes line break",
			glyphs: []glyph{makeGlyph("a", 0, 100), makeGlyph("b", 0, 88)},
			want:   "a\r\nb",
		},
		{
			name:   "unmapped code dropped",
			glyphs: []glyph{makeGlyph("a", 0, 100), makeGlyph("", 6, 100), makeGlyph("b", 12, 100)},
			want:   "a b",
		},
		{
			name:   "multi-rune code",
			glyphs: []glyph{makeGlyph("fi", 0, 100)},
			want:   "fi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runes(layoutPage(tt.glyphs)))
		})
	}
}

func TestLayoutPageSplitsMultiRuneBox(t *testing.T) {
	chars := layoutPage([]glyph{makeGlyph("ffi", 0, 100)})
	require.Len(t, chars, 3)
	assert.InDelta(t, 0, chars[0].box.Left, 1e-9)
	assert.InDelta(t, 2, chars[0].box.Right, 1e-9)
	assert.InDelta(t, 2, chars[1].box.Left, 1e-9)
	assert.InDelta(t, 6, chars[2].box.Right, 1e-9)
}

func TestLayoutPageGeneratedCharsHaveZeroBoxes(t *testing.T) {
	chars := layoutPage([]glyph{makeGlyph("a", 0, 100), makeGlyph("b", 0, 80)})
	require.Len(t, chars, 4)
	for _, c := range chars[1:3] {
		assert.True(t, c.generated)
		assert.True(t, c.box.IsZero())
	}
}

func newTestPage(glyphs ...glyph) *textPage {
	return &textPage{chars: layoutPage(glyphs)}
}

// twoLines is "abc" on one line and "de" on the next: a b c \r \n d e.
func twoLines() *textPage {
	return newTestPage(
		makeGlyph("a", 0, 100), makeGlyph("b", 6, 100), makeGlyph("c", 12, 100),
		makeGlyph("d", 0, 80), makeGlyph("e", 6, 80),
	)
}

func TestTextPageText(t *testing.T) {
	p := twoLines()

	tests := []struct {
		name         string
		start, count int
		want         string
		wantErr      bool
	}{
		{"whole page", 0, 7, "abc\r\nde", false},
		{"prefix", 0, 2, "ab", false},
		{"clipped at end", 5, 10, "de", false},
		{"start at end", 7, 3, "", false},
		{"huge count", 1, math.MaxInt, "bc\r\nde", false},
		{"huge count at end", 7, math.MaxInt, "", false},
		{"start past end", 8, 1, "", true},
		{"negative start", -1, 1, "", true},
		{"negative count", 0, -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.text(tt.start, tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIndex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCharIndexAtPos(t *testing.T) {
	p := twoLines()

	tests := []struct {
		name       string
		x, y       float64
		xTol, yTol float64
		want       int
	}{
		{"inside first", 3, 103, 0, 0, 0},
		{"inside second line", 9, 83, 0, 0, 6},
		{"outside without tolerance", 30, 103, 0, 0, NotFound},
		{"outside within tolerance", 19, 103, 2, 2, 2},
		{"nearest wins", 19, 103, 20, 2, 2},
		{"far away", 500, 500, 5, 5, NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.charIndexAtPos(tt.x, tt.y, tt.xTol, tt.yTol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := p.charIndexAtPos(0, 0, -1, 0)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestCharIndexAtPosRoundTrip(t *testing.T) {
	p := twoLines()
	for i, c := range p.chars {
		if c.generated {
			continue
		}
		ctr := c.box.Center()
		got, err := p.charIndexAtPos(ctr.X, ctr.Y, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
}

func TestCountRects(t *testing.T) {
	p := twoLines()

	n, err := p.countRects(0, -1)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	r0, err := p.rect(0)
	require.NoError(t, err)
	assert.Equal(t, Rect{Left: 0, Top: 108, Right: 18, Bottom: 98}, r0)

	r1, err := p.rect(1)
	require.NoError(t, err)
	assert.Equal(t, Rect{Left: 0, Top: 88, Right: 12, Bottom: 78}, r1)

	_, err = p.rect(2)
	assert.ErrorIs(t, err, ErrIndex)

	n, err = p.countRects(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	r0, err = p.rect(0)
	require.NoError(t, err)
	assert.Equal(t, Rect{Left: 6, Top: 108, Right: 12, Bottom: 98}, r0)
}

func TestCountRectsMonotonic(t *testing.T) {
	p := twoLines()
	counts := []int{}
	for count := 0; count <= len(p.chars)+2; count++ {
		counts = append(counts, count)
	}
	counts = append(counts, math.MaxInt-1, math.MaxInt)

	for _, start := range []int{0, 1} {
		prev := 0
		for _, count := range counts {
			n, err := p.countRects(start, count)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, prev, "start %d count %d", start, count)
			prev = n
		}
		toEnd, err := p.countRects(start, -1)
		require.NoError(t, err)
		assert.Equal(t, toEnd, prev, "start %d", start)
	}
}

func TestRectBeforeCountRects(t *testing.T) {
	p := twoLines()
	for _, i := range []int{0, 1, 5} {
		r, err := p.rect(i)
		require.NoError(t, err)
		assert.True(t, r.IsZero(), "rect %d", i)
	}

	_, err := p.countRects(0, -1)
	require.NoError(t, err)
	_, err = p.rect(5)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestCountRectsDegenerateRun(t *testing.T) {
	blank := makeGlyph(" ", 0, 100)
	blank.box = Rect{Left: 0, Right: 0, Bottom: 98, Top: 108}
	p := newTestPage(blank, makeGlyph("x", 0, 80))

	n, err := p.countRects(0, -1)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	r, err := p.rect(0)
	require.NoError(t, err)
	assert.True(t, r.IsZero())
}

func TestBoundedText(t *testing.T) {
	p := twoLines()

	tests := []struct {
		name   string
		region Rect
		max    int
		want   string
	}{
		{"first two", Rect{Left: 1, Top: 101, Right: 11, Bottom: 104}, 100, "ab"},
		{"inverted region", Rect{Left: 11, Top: 104, Right: 1, Bottom: 101}, 100, "ab"},
		{"clipped", Rect{Left: 0, Top: 120, Right: 100, Bottom: 70}, 4, "abc\r"},
		{"across lines keeps break", Rect{Left: 0, Top: 120, Right: 100, Bottom: 70}, -1, "abc\r\nde"},
		{"nothing", Rect{Left: 200, Top: 300, Right: 300, Bottom: 200}, 10, ""},
		{"zero max", Rect{Left: 0, Top: 120, Right: 100, Bottom: 70}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.boundedText(tt.region, tt.max))
		})
	}
}

func TestBoundedTextDropsTrailingBreak(t *testing.T) {
	p := twoLines()
	got := p.boundedText(Rect{Left: 0, Top: 110, Right: 100, Bottom: 95}, -1)
	assert.Equal(t, "abc", got)
}
