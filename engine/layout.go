package engine

import (
	"fmt"
	"math"
	"sync"
)

// Generated characters are inserted by the layout, not shown by the page.
const (
	generatedSpace = ' '
	generatedCR    = '\r'
	generatedLF    = '\n'
)

// gapFactor is the fraction of a space width that a horizontal gap between
// two glyphs must exceed before a generated space is inserted.
const gapFactor = 0.5

// char is one character of a text page.
type char struct {
	r         rune
	box       Rect
	origin    Point
	fontSize  float64
	generated bool
}

// textPage is the laid-out text layer of one page. chars never changes
// after layout; rects holds the result of the last countRects call.
type textPage struct {
	doc       DocRef
	pageIndex int
	chars     []char

	mu    sync.Mutex
	rects []Rect
	ready bool
}

// layoutPage turns glyphs in content order into characters, inserting a
// generated space across visible gaps and a generated "\r\n" at each line
// change.
func layoutPage(glyphs []glyph) []char {
	chars := make([]char, 0, len(glyphs))
	var prev *glyph

	for i := range glyphs {
		g := &glyphs[i]
		runes := []rune(g.text)
		if len(runes) == 0 {
			continue
		}

		if prev != nil {
			switch {
			case newLine(prev, g):
				chars = append(chars,
					char{r: generatedCR, generated: true},
					char{r: generatedLF, generated: true})
			case needsSpace(prev, g, chars[len(chars)-1].r, runes[0]):
				chars = append(chars, char{r: generatedSpace, generated: true})
			}
		}

		// A code that decodes to several runes shares its box out evenly.
		step := g.box.Width() / float64(len(runes))
		for j, r := range runes {
			box := g.box
			if len(runes) > 1 {
				box.Left = g.box.Left + step*float64(j)
				box.Right = box.Left + step
			}
			chars = append(chars, char{r: r, box: box, origin: g.origin, fontSize: g.fontSize})
		}
		prev = g
	}
	return chars
}

// newLine reports whether g starts a new line: its baseline moved by more
// than half the larger font size.
func newLine(prev, g *glyph) bool {
	size := math.Max(prev.fontSize, g.fontSize)
	return math.Abs(g.origin.Y-prev.origin.Y) > size/2
}

func needsSpace(prev, g *glyph, last, next rune) bool {
	if last == ' ' || next == ' ' {
		return false
	}
	width := g.spaceWidth
	if width <= 0 {
		width = g.fontSize / 4
	}
	return g.box.Left-prev.box.Right > width*gapFactor
}

func (p *textPage) checkIndex(index int) error {
	if index < 0 || index >= len(p.chars) {
		return fmt.Errorf("%w: character %d of %d", ErrIndex, index, len(p.chars))
	}
	return nil
}

func (p *textPage) text(start, count int) (string, error) {
	if start < 0 || count < 0 || start > len(p.chars) {
		return "", fmt.Errorf("%w: text range %d+%d of %d", ErrIndex, start, count, len(p.chars))
	}
	end := start + min(count, len(p.chars)-start)
	runes := make([]rune, 0, end-start)
	for _, c := range p.chars[start:end] {
		runes = append(runes, c.r)
	}
	return string(runes), nil
}

// charIndexAtPos returns the first character whose box contains (x, y).
// Failing that it returns the character whose box is nearest to the point
// among those reaching into the tolerance rectangle, or NotFound.
func (p *textPage) charIndexAtPos(x, y, xTol, yTol float64) (int, error) {
	if xTol < 0 || yTol < 0 {
		return 0, fmt.Errorf("%w: negative tolerance", ErrIndex)
	}
	pt := Point{X: x, Y: y}

	for i, c := range p.chars {
		if c.generated || c.box.IsEmpty() {
			continue
		}
		if c.box.Contains(pt) {
			return i, nil
		}
	}

	area := Rect{Left: x, Right: x, Top: y, Bottom: y}.Expand(xTol, yTol)
	best, bestDist := NotFound, math.Inf(1)
	for i, c := range p.chars {
		if c.generated || c.box.IsEmpty() || !c.box.Intersects(area) {
			continue
		}
		if d := c.box.Distance(pt); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// countRects computes the selection rectangles of a range and caches them
// for rect. Each rectangle covers a run of real characters on one line.
func (p *textPage) countRects(start, count int) (int, error) {
	if start < 0 || start > len(p.chars) || count < -1 {
		return 0, fmt.Errorf("%w: rect range %d+%d of %d", ErrIndex, start, count, len(p.chars))
	}
	end := len(p.chars)
	if count >= 0 {
		end = start + min(count, end-start)
	}

	var (
		rects   []Rect
		cur     Rect
		line    *char
		hasArea bool
	)
	flush := func() {
		if line != nil {
			rects = append(rects, cur)
		}
		cur, line, hasArea = Rect{}, nil, false
	}

	for i := start; i < end; i++ {
		c := &p.chars[i]
		if c.generated {
			continue
		}
		if line != nil && !sameLine(line, c) {
			flush()
		}
		if line == nil {
			line = c
		}
		if c.box.IsEmpty() {
			continue
		}
		if hasArea {
			cur = cur.Union(c.box)
		} else {
			cur, hasArea = c.box, true
		}
	}
	flush()

	p.mu.Lock()
	p.rects, p.ready = rects, true
	p.mu.Unlock()
	return len(rects), nil
}

func sameLine(a, b *char) bool {
	size := math.Max(a.fontSize, b.fontSize)
	return math.Abs(a.origin.Y-b.origin.Y) <= size/2
}

// rect returns a rectangle from the last countRects call. Before any call
// there are no rectangles and every index reads as the zero Rect.
func (p *textPage) rect(index int) (Rect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return Rect{}, nil
	}
	if index < 0 || index >= len(p.rects) {
		return Rect{}, fmt.Errorf("%w: rect %d of %d", ErrIndex, index, len(p.rects))
	}
	return p.rects[index], nil
}

// boundedText returns the real characters whose boxes intersect region, in
// page order. Generated characters are kept when they sit between two
// selected characters.
func (p *textPage) boundedText(region Rect, maxChars int) string {
	region = region.Normalize()
	var (
		out      []rune
		pending  []rune
		selected bool // last real character was selected
	)
	for _, c := range p.chars {
		if maxChars >= 0 && len(out) >= maxChars {
			break
		}
		switch {
		case c.generated:
			if selected {
				pending = append(pending, c.r)
			}
		case !c.box.IsEmpty() && c.box.Intersects(region):
			out = append(out, pending...)
			out = append(out, c.r)
			pending, selected = pending[:0], true
		default:
			pending, selected = pending[:0], false
		}
	}
	if maxChars >= 0 && len(out) > maxChars {
		out = out[:maxChars]
	}
	return string(out)
}
