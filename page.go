package textpage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tsawler/textpage/dispatch"
	"github.com/tsawler/textpage/engine"
	"github.com/tsawler/textpage/internal/registry"
)

// TextPage is the text layer of one page. It is safe for concurrent use.
//
// Characters are indexed from 0 in reading order of the page's content.
// Besides the characters shown by the page, the index space contains
// generated characters: a space where a visible gap separates two glyphs
// and "\r\n" at each line change. Generated characters have an all-zero
// box.
type TextPage struct {
	doc   *Document
	ref   engine.TextPageRef
	index int
	lane  dispatch.Lane

	mu     sync.Mutex
	closed bool
}

func (p *TextPage) key() registry.Key {
	return registry.Key{Kind: registry.TextPage, ID: uint64(p.ref)}
}

func (p *TextPage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// call runs fn on the page's lane, failing if the page is closed by the
// time fn would start.
func call[T any](ctx context.Context, p *TextPage, op string, fn func(engine.Engine, engine.TextPageRef) (T, error)) (T, error) {
	v, err := dispatch.Call(ctx, &p.lane, p.doc.core.disp, func() (T, error) {
		if p.isClosed() {
			var zero T
			return zero, ErrClosedHandle
		}
		return fn(p.doc.core.eng, p.ref)
	})
	return v, translate(op, err)
}

// PageIndex returns the 0-based index of the page in its document.
func (p *TextPage) PageIndex() int {
	return p.index
}

// Document returns the document the page was opened from.
func (p *TextPage) Document() *Document {
	return p.doc
}

// CountChars returns the number of characters on the page, generated
// characters included.
func (p *TextPage) CountChars(ctx context.Context) (int, error) {
	return call(ctx, p, "CountChars", engine.Engine.TextCountChars)
}

// Text returns count characters starting at start, or fewer if the page
// ends first. start may equal CountChars, which yields "".
func (p *TextPage) Text(ctx context.Context, start, count int) (string, error) {
	return call(ctx, p, "Text", func(e engine.Engine, ref engine.TextPageRef) (string, error) {
		return e.TextGetText(ref, start, count)
	})
}

// Unicode returns the character at index.
func (p *TextPage) Unicode(ctx context.Context, index int) (rune, error) {
	return call(ctx, p, "Unicode", func(e engine.Engine, ref engine.TextPageRef) (rune, error) {
		return e.TextGetUnicode(ref, index)
	})
}

// CharBox returns the glyph box of the character at index.
func (p *TextPage) CharBox(ctx context.Context, index int) (CharBox, error) {
	return call(ctx, p, "CharBox", func(e engine.Engine, ref engine.TextPageRef) (CharBox, error) {
		return e.TextGetCharBox(ref, index)
	})
}

// FontSize returns the effective font size of the character at index, in
// points. Generated characters report 0.
func (p *TextPage) FontSize(ctx context.Context, index int) (float64, error) {
	return call(ctx, p, "FontSize", func(e engine.Engine, ref engine.TextPageRef) (float64, error) {
		return e.TextGetFontSize(ref, index)
	})
}

// CharIndexAtPos returns the index of the character whose box contains
// (x, y). If there is none, the character with the nearest box reaching
// into the tolerance rectangle around the point is returned. Otherwise the
// result is NotFound.
func (p *TextPage) CharIndexAtPos(ctx context.Context, x, y, xTolerance, yTolerance float64) (int, error) {
	return call(ctx, p, "CharIndexAtPos", func(e engine.Engine, ref engine.TextPageRef) (int, error) {
		return e.TextGetCharIndexAtPos(ref, x, y, xTolerance, yTolerance)
	})
}

// CountRects computes the selection rectangles covering count characters
// from start and returns how many there are. A count of -1 selects to the
// end of the page. Rect reads the rectangles of the most recent call.
func (p *TextPage) CountRects(ctx context.Context, start, count int) (int, error) {
	return call(ctx, p, "CountRects", func(e engine.Engine, ref engine.TextPageRef) (int, error) {
		return e.TextCountRects(ref, start, count)
	})
}

// Rect returns selection rectangle rectIndex from the most recent
// CountRects call. A run of characters with no visible extent yields an
// all-zero rectangle, as does any index before CountRects is first called.
func (p *TextPage) Rect(ctx context.Context, rectIndex int) (TextRect, error) {
	return call(ctx, p, "Rect", func(e engine.Engine, ref engine.TextPageRef) (TextRect, error) {
		return e.TextGetRect(ref, rectIndex)
	})
}

// BoundedText returns the characters whose boxes intersect region, in
// index order, at most maxChars of them. A negative maxChars means no
// limit.
func (p *TextPage) BoundedText(ctx context.Context, region TextRect, maxChars int) (string, error) {
	return call(ctx, p, "BoundedText", func(e engine.Engine, ref engine.TextPageRef) (string, error) {
		return e.TextGetBoundedText(ref, region, maxChars)
	})
}

// Close releases the page. Calls already queued on the page finish first.
// A second Close fails with ErrClosedHandle.
func (p *TextPage) Close() error {
	core := p.doc.core
	err := p.lane.Do(context.Background(), dispatch.Unconfined(), func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return ErrClosedHandle
		}
		p.closed = true

		err := core.eng.CloseTextPage(p.ref)
		p.doc.forget(p)
		return errors.Join(err, core.reg.Release(p.key()))
	})
	if err != nil {
		return translate("Close", err)
	}
	core.log.Debug("text page closed", slog.Uint64("page", uint64(p.ref)))
	return nil
}
