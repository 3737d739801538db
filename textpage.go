// Package textpage provides lifecycle-safe handles over the text layer of
// PDF pages.
//
// Basic usage:
//
//	core := textpage.NewCore()
//	doc, err := core.OpenDocument(ctx, "document.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer doc.Close()
//
//	page, err := doc.OpenTextPage(ctx, 0)
//	if err != nil {
//	    // handle error
//	}
//	defer page.Close()
//
//	n, err := page.CountChars(ctx)
//	text, err := page.Text(ctx, 0, n)
//
// Every method may be called from any goroutine. Calls on one handle run
// one at a time in the order they were made; calls on different handles
// may run in parallel. Engine work runs on the Core's dispatcher (see
// package dispatch), and callers wait for it on their context.
//
// Closing a handle is final. Any later call, including a second Close,
// fails with ErrClosedHandle. Closing a document closes its text pages
// first. The scoped helpers Core.WithDocument and Document.WithTextPage
// close their handle on every exit path.
//
// Boxes and rectangles are in PDF user space, with the origin at the
// bottom-left of the page.
package textpage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tsawler/textpage/dispatch"
	"github.com/tsawler/textpage/engine"
	"github.com/tsawler/textpage/internal/registry"
	"github.com/tsawler/textpage/logging"
)

// NotFound is returned by TextPage.CharIndexAtPos when no character is
// near the point.
const NotFound = engine.NotFound

// CharBox is the box of one character.
type CharBox = engine.Rect

// TextRect is one selection rectangle, or a region passed to BoundedText.
type TextRect = engine.Rect

// Point is a position in page space.
type Point = engine.Point

// Core opens documents. It is safe for concurrent use.
type Core struct {
	eng  engine.Engine
	disp dispatch.Dispatcher
	log  *slog.Logger

	reg registry.Registry
}

// NewCore returns a Core. Without WithEngine it creates a Native engine.
func NewCore(opts ...Option) *Core {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.clone()

	log := logging.Or(cfg.logger)
	eng := cfg.engine
	if eng == nil {
		engOpts := append([]engine.Option{engine.WithLogger(log)}, cfg.engineOpts...)
		eng = engine.NewNative(engOpts...)
	}

	return &Core{
		eng:  eng,
		disp: cfg.dispatcher,
		log:  log.With(slog.String("component", "textpage")),
	}
}

// NewDocument loads a PDF held in memory. The document owns data from
// then on; the caller must not modify it.
func (c *Core) NewDocument(ctx context.Context, data []byte) (*Document, error) {
	return c.load(ctx, "NewDocument", data, func() (engine.DocRef, error) {
		return c.eng.LoadDocument(data)
	})
}

// OpenDocument loads the PDF at path.
func (c *Core) OpenDocument(ctx context.Context, path string) (*Document, error) {
	return c.load(ctx, "OpenDocument", nil, func() (engine.DocRef, error) {
		return c.eng.LoadDocumentFile(path)
	})
}

func (c *Core) load(ctx context.Context, op string, data []byte, fn func() (engine.DocRef, error)) (*Document, error) {
	d := &Document{core: c, data: data, pages: make(map[engine.TextPageRef]*TextPage)}

	var ref engine.DocRef
	err := d.lane.Do(ctx, c.disp, func() error {
		r, err := fn()
		if err != nil {
			return err
		}
		ref = r
		return nil
	})
	if err != nil {
		if ref != 0 {
			// Loaded, but the caller stopped waiting.
			if cerr := c.eng.CloseDocument(ref); cerr != nil {
				c.log.Warn("release abandoned document",
					slog.Uint64("doc", uint64(ref)),
					slog.Any("error", cerr))
			}
		}
		return nil, translate(op, err)
	}

	d.ref = ref
	if err := c.reg.Register(d.key()); err != nil {
		return nil, translate(op, errors.Join(err, c.eng.CloseDocument(ref)))
	}
	c.log.Debug("document opened", slog.Uint64("doc", uint64(ref)))
	return d, nil
}

// WithDocument loads data, calls fn with the document and closes it
// afterwards, also when fn fails or panics.
func (c *Core) WithDocument(ctx context.Context, data []byte, fn func(*Document) error) (err error) {
	d, err := c.NewDocument(ctx, data)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, d.Close())
	}()
	return fn(d)
}

// LiveHandles returns the number of documents and text pages opened through
// c that are not yet closed.
func (c *Core) LiveHandles() (documents, textPages int) {
	return c.reg.Len(registry.Document), c.reg.Len(registry.TextPage)
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	n := textpage.Must(page.CountChars(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
