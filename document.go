package textpage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tsawler/textpage/dispatch"
	"github.com/tsawler/textpage/engine"
	"github.com/tsawler/textpage/internal/registry"
)

// Document is an open PDF document. It is safe for concurrent use.
type Document struct {
	core *Core
	ref  engine.DocRef
	data []byte // kept alive until Close
	lane dispatch.Lane

	mu     sync.Mutex
	closed bool
	pages  map[engine.TextPageRef]*TextPage
}

func (d *Document) key() registry.Key {
	return registry.Key{Kind: registry.Document, ID: uint64(d.ref)}
}

func (d *Document) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// PageCount returns the number of pages.
func (d *Document) PageCount(ctx context.Context) (int, error) {
	n, err := dispatch.Call(ctx, &d.lane, d.core.disp, func() (int, error) {
		if d.isClosed() {
			return 0, ErrClosedHandle
		}
		return d.core.eng.PageCount(d.ref)
	})
	return n, translate("PageCount", err)
}

// OpenTextPage loads the text layer of the page at pageIndex (0-based).
func (d *Document) OpenTextPage(ctx context.Context, pageIndex int) (*TextPage, error) {
	var p *TextPage
	err := d.lane.Do(ctx, d.core.disp, func() error {
		if d.isClosed() {
			return ErrClosedHandle
		}
		ref, err := d.core.eng.LoadTextPage(d.ref, pageIndex)
		if err != nil {
			return err
		}
		p = &TextPage{doc: d, ref: ref, index: pageIndex}
		if err := d.core.reg.RegisterChild(d.key(), p.key()); err != nil {
			p = nil
			return errors.Join(err, d.core.eng.CloseTextPage(ref))
		}
		d.mu.Lock()
		d.pages[ref] = p
		d.mu.Unlock()
		return nil
	})
	if err != nil {
		if p != nil {
			// Loaded, but the caller stopped waiting.
			if cerr := p.Close(); cerr != nil {
				d.core.log.Warn("release abandoned text page",
					slog.Uint64("page", uint64(p.ref)),
					slog.Any("error", cerr))
			}
		}
		return nil, translate("OpenTextPage", err)
	}

	d.core.log.Debug("text page opened",
		slog.Uint64("doc", uint64(d.ref)),
		slog.Uint64("page", uint64(p.ref)),
		slog.Int("index", pageIndex))
	return p, nil
}

// WithTextPage opens the text page at pageIndex, calls fn with it and
// closes it afterwards, also when fn fails or panics.
func (d *Document) WithTextPage(ctx context.Context, pageIndex int, fn func(*TextPage) error) (err error) {
	p, err := d.OpenTextPage(ctx, pageIndex)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, p.Close())
	}()
	return fn(p)
}

// openPages returns the text pages the registry still holds under the
// document, oldest first.
func (d *Document) openPages() []*TextPage {
	keys := d.core.reg.Children(d.key())
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*TextPage, 0, len(keys))
	for _, k := range keys {
		if p, ok := d.pages[engine.TextPageRef(k.ID)]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (d *Document) forget(p *TextPage) {
	d.mu.Lock()
	delete(d.pages, p.ref)
	d.mu.Unlock()
}

// Close closes every text page still open on the document, then the
// document itself. Calls already queued on the document finish first.
// A second Close fails with ErrClosedHandle.
func (d *Document) Close() error {
	ctx := context.Background()

	// Closes run on the calling goroutine; they must still work after the
	// dispatcher is closed.
	err := d.lane.Do(ctx, dispatch.Unconfined(), func() error {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return ErrClosedHandle
		}
		d.closed = true
		d.mu.Unlock()

		var errs []error
		if pages := d.openPages(); len(pages) > 0 {
			d.core.log.Warn("closing document with open text pages",
				slog.Uint64("doc", uint64(d.ref)),
				slog.Int("pages", len(pages)))
			for _, p := range pages {
				if err := p.Close(); err != nil && !errors.Is(err, ErrClosedHandle) {
					errs = append(errs, fmt.Errorf("close text page %d: %w", p.index, err))
				}
			}
		}

		if err := d.core.eng.CloseDocument(d.ref); err != nil {
			errs = append(errs, err)
		}
		if err := d.core.reg.Release(d.key()); err != nil {
			errs = append(errs, err)
		}
		d.data = nil
		return errors.Join(errs...)
	})
	if err != nil {
		return translate("Close", err)
	}
	d.core.log.Debug("document closed", slog.Uint64("doc", uint64(d.ref)))
	return nil
}
