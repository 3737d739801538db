package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"

	"github.com/tsawler/textpage/logging"
)

// ErrBusy is returned by CloseDocument while text pages loaded from the
// document are still open.
var ErrBusy = errors.New("engine: document has open text pages")

// Native is an Engine backed by the tabula PDF reader. It is safe for
// concurrent use. Calls on one document are serialized internally because
// the reader caches objects without locking.
type Native struct {
	opts options
	log  *slog.Logger

	mu    sync.Mutex
	next  uint64
	docs  map[DocRef]*nativeDoc
	pages map[TextPageRef]*textPage
}

var _ Engine = (*Native)(nil)

// nativeDoc is one loaded document.
type nativeDoc struct {
	mu sync.Mutex // serializes reader access
	r  *reader.Reader

	data  []byte // backing bytes, held until close
	spool string // temp file behind r, removed on close
	open  int    // text pages not yet closed; guarded by Native.mu
}

// NewNative returns an engine with no documents loaded.
func NewNative(opts ...Option) *Native {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.Or(o.logger).With(slog.String("component", "engine"))

	return &Native{
		opts:  o,
		log:   o.logger,
		docs:  make(map[DocRef]*nativeDoc),
		pages: make(map[TextPageRef]*textPage),
	}
}

// LoadDocument implements Engine. The reader works on files, so data is
// spooled to a temporary file that lives as long as the document.
func (n *Native) LoadDocument(data []byte) (DocRef, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty input", ErrLoad)
	}

	f, err := os.CreateTemp(n.opts.tempDir, "textpage-*.pdf")
	if err != nil {
		return 0, fmt.Errorf("%w: spool: %w", ErrLoad, err)
	}
	spool := f.Name()
	fail := func(err error) (DocRef, error) {
		f.Close()
		os.Remove(spool)
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if _, err := f.Write(data); err != nil {
		return fail(fmt.Errorf("spool: %w", err))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("spool: %w", err))
	}
	r, err := reader.NewReader(f)
	if err != nil {
		return fail(err)
	}
	if _, err := r.PageCount(); err != nil {
		r.Close()
		os.Remove(spool)
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	ref := n.addDoc(&nativeDoc{r: r, data: data, spool: spool})
	n.log.Debug("document loaded", slog.Uint64("doc", uint64(ref)), slog.Int("bytes", len(data)))
	return ref, nil
}

// LoadDocumentFile implements Engine.
func (n *Native) LoadDocumentFile(path string) (DocRef, error) {
	r, err := reader.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if _, err := r.PageCount(); err != nil {
		r.Close()
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	ref := n.addDoc(&nativeDoc{r: r})
	n.log.Debug("document loaded", slog.Uint64("doc", uint64(ref)), slog.String("path", path))
	return ref, nil
}

func (n *Native) addDoc(d *nativeDoc) DocRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	ref := DocRef(n.next)
	n.docs[ref] = d
	return ref
}

func (n *Native) doc(ref DocRef) (*nativeDoc, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	d, ok := n.docs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: document %d", ErrInvalidRef, ref)
	}
	return d, nil
}

// CloseDocument implements Engine.
func (n *Native) CloseDocument(ref DocRef) error {
	n.mu.Lock()
	d, ok := n.docs[ref]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("%w: document %d", ErrInvalidRef, ref)
	}
	if d.open > 0 {
		open := d.open
		n.mu.Unlock()
		return fmt.Errorf("%w: document %d has %d", ErrBusy, ref, open)
	}
	delete(n.docs, ref)
	n.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.r.Close()
	if d.spool != "" {
		if rmErr := os.Remove(d.spool); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	d.r, d.data = nil, nil

	n.log.Debug("document closed", slog.Uint64("doc", uint64(ref)))
	if err != nil {
		return fmt.Errorf("close document %d: %w", ref, err)
	}
	return nil
}

// PageCount implements Engine.
func (n *Native) PageCount(ref DocRef) (int, error) {
	d, err := n.doc(ref)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return 0, fmt.Errorf("%w: document %d", ErrInvalidRef, ref)
	}
	return d.r.PageCount()
}

// LoadTextPage implements Engine. The page's content is extracted and laid
// out once here; later queries only read the result.
func (n *Native) LoadTextPage(ref DocRef, pageIndex int) (TextPageRef, error) {
	d, err := n.doc(ref)
	if err != nil {
		return 0, err
	}

	glyphs, err := n.extractPage(d, ref, pageIndex)
	if err != nil {
		return 0, err
	}
	tp := &textPage{doc: ref, pageIndex: pageIndex, chars: layoutPage(glyphs)}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.docs[ref] != d {
		return 0, fmt.Errorf("%w: document %d closed during load", ErrInvalidRef, ref)
	}
	d.open++
	n.next++
	pref := TextPageRef(n.next)
	n.pages[pref] = tp

	n.log.Debug("text page loaded",
		slog.Uint64("doc", uint64(ref)),
		slog.Uint64("page", uint64(pref)),
		slog.Int("index", pageIndex),
		slog.Int("chars", len(tp.chars)))
	return pref, nil
}

func (n *Native) extractPage(d *nativeDoc, ref DocRef, pageIndex int) ([]glyph, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return nil, fmt.Errorf("%w: document %d", ErrInvalidRef, ref)
	}

	count, err := d.r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if pageIndex < 0 || pageIndex >= count {
		return nil, fmt.Errorf("%w: page %d of %d", ErrIndex, pageIndex, count)
	}
	page, err := d.r.GetPage(pageIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrLoad, pageIndex, err)
	}

	glyphs, err := n.extractGlyphs(d.r, page)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrLoad, pageIndex, err)
	}
	return glyphs, nil
}

// extractGlyphs decodes and concatenates the page's content streams, then
// runs them through a glyph extractor primed with the page's resources.
func (n *Native) extractGlyphs(r *reader.Reader, page *pages.Page) ([]glyph, error) {
	contents, err := page.Contents()
	if err != nil {
		return nil, fmt.Errorf("contents: %w", err)
	}

	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode content stream: %w", err)
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}
	if len(data) == 0 {
		return nil, nil
	}

	ops, err := parseContent(data)
	if err != nil {
		return nil, fmt.Errorf("parse content stream: %w", err)
	}

	ex := newGlyphExtractor(n.opts)
	resources, err := page.Resources()
	if err != nil {
		n.log.Debug("page resources unresolved", slog.Any("error", err))
	}
	ex.setResources(resources, r.ResolveReference)
	return ex.extract(ops), nil
}

// CloseTextPage implements Engine.
func (n *Native) CloseTextPage(ref TextPageRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	tp, ok := n.pages[ref]
	if !ok {
		return fmt.Errorf("%w: text page %d", ErrInvalidRef, ref)
	}
	delete(n.pages, ref)
	if d, ok := n.docs[tp.doc]; ok {
		d.open--
	}
	n.log.Debug("text page closed", slog.Uint64("page", uint64(ref)))
	return nil
}

func (n *Native) page(ref TextPageRef) (*textPage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tp, ok := n.pages[ref]
	if !ok {
		return nil, fmt.Errorf("%w: text page %d", ErrInvalidRef, ref)
	}
	return tp, nil
}

// TextCountChars implements Engine.
func (n *Native) TextCountChars(ref TextPageRef) (int, error) {
	tp, err := n.page(ref)
	if err != nil {
		return 0, err
	}
	return len(tp.chars), nil
}

// TextGetText implements Engine.
func (n *Native) TextGetText(ref TextPageRef, start, count int) (string, error) {
	tp, err := n.page(ref)
	if err != nil {
		return "", err
	}
	return tp.text(start, count)
}

// TextGetUnicode implements Engine.
func (n *Native) TextGetUnicode(ref TextPageRef, index int) (rune, error) {
	tp, err := n.page(ref)
	if err != nil {
		return 0, err
	}
	if err := tp.checkIndex(index); err != nil {
		return 0, err
	}
	return tp.chars[index].r, nil
}

// TextGetCharBox implements Engine. Generated characters have a zero box.
func (n *Native) TextGetCharBox(ref TextPageRef, index int) (Rect, error) {
	tp, err := n.page(ref)
	if err != nil {
		return Rect{}, err
	}
	if err := tp.checkIndex(index); err != nil {
		return Rect{}, err
	}
	return tp.chars[index].box, nil
}

// TextGetFontSize implements Engine. Generated characters report 0.
func (n *Native) TextGetFontSize(ref TextPageRef, index int) (float64, error) {
	tp, err := n.page(ref)
	if err != nil {
		return 0, err
	}
	if err := tp.checkIndex(index); err != nil {
		return 0, err
	}
	return tp.chars[index].fontSize, nil
}

// TextGetCharIndexAtPos implements Engine.
func (n *Native) TextGetCharIndexAtPos(ref TextPageRef, x, y, xTolerance, yTolerance float64) (int, error) {
	tp, err := n.page(ref)
	if err != nil {
		return 0, err
	}
	return tp.charIndexAtPos(x, y, xTolerance, yTolerance)
}

// TextCountRects implements Engine.
func (n *Native) TextCountRects(ref TextPageRef, start, count int) (int, error) {
	tp, err := n.page(ref)
	if err != nil {
		return 0, err
	}
	return tp.countRects(start, count)
}

// TextGetRect implements Engine.
func (n *Native) TextGetRect(ref TextPageRef, rectIndex int) (Rect, error) {
	tp, err := n.page(ref)
	if err != nil {
		return Rect{}, err
	}
	return tp.rect(rectIndex)
}

// TextGetBoundedText implements Engine.
func (n *Native) TextGetBoundedText(ref TextPageRef, region Rect, maxChars int) (string, error) {
	tp, err := n.page(ref)
	if err != nil {
		return "", err
	}
	return tp.boundedText(region, maxChars), nil
}

// Live returns the number of documents and text pages currently loaded.
func (n *Native) Live() (docs, textPages int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.docs), len(n.pages)
}
