package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/font"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"golang.org/x/text/unicode/norm"
)

// Fallback vertical metrics in 1000ths of an em, used when a font has no
// descriptor (the standard 14 fonts usually don't).
const (
	defaultAscent  = 800.0
	defaultDescent = -200.0
)

// glyph is one shown character code.
type glyph struct {
	text       string  // decoded Unicode, possibly empty or several runes
	box        Rect    // glyph box in page space
	origin     Point   // baseline origin in page space
	fontSize   float64 // effective size in page space
	spaceWidth float64 // width of a space in the same font, page space
}

// glyphFont is a registered font plus what the extractor needs to split a
// string into codes and measure them.
type glyphFont struct {
	f         *font.Font
	cid       *font.CIDFont // descendant of a Type0 font
	codeLen   int           // bytes per code
	firstChar int
	widths    []float64 // by code - firstChar, simple fonts only
	ascent    float64
	descent   float64
}

func newGlyphFont(f *font.Font) *glyphFont {
	return &glyphFont{f: f, codeLen: 1, ascent: defaultAscent, descent: defaultDescent}
}

func (g *glyphFont) setMetrics(fd *font.FontDescriptor) {
	if fd == nil {
		return
	}
	if fd.Ascent > 0 {
		g.ascent = fd.Ascent
	}
	if fd.Descent < 0 {
		g.descent = fd.Descent
	}
}

// width returns the advance of code in 1000ths of an em.
func (g *glyphFont) width(code []byte, decoded string) float64 {
	if g.cid != nil {
		cid := 0
		for _, b := range code {
			cid = cid<<8 | int(b)
		}
		return g.cid.GetWidthForCID(cid)
	}
	if len(code) == 1 {
		if i := int(code[0]) - g.firstChar; i >= 0 && i < len(g.widths) {
			return g.widths[i]
		}
	}
	if r, _ := utf8.DecodeRuneInString(decoded); r != utf8.RuneError {
		return g.f.GetWidth(r)
	}
	return g.f.GetWidth(rune(code[0]))
}

func (g *glyphFont) decode(code []byte) string {
	return g.f.DecodeString(code)
}

// glyphExtractor walks content stream operations and records every shown
// character code. It tracks the graphics and text state the same way the
// tabula text extractor does, but advances the text matrix per code so
// that each character gets its own box.
type glyphExtractor struct {
	gs    *graphicsstate.GraphicsState
	fonts map[string]*glyphFont

	resources core.Dict
	resolver  func(core.IndirectRef) (core.Object, error)
	depth     int
	maxDepth  int

	expandLigatures bool
	log             *slog.Logger

	glyphs []glyph
}

func newGlyphExtractor(opts options) *glyphExtractor {
	return &glyphExtractor{
		gs:              graphicsstate.NewGraphicsState(),
		fonts:           make(map[string]*glyphFont),
		maxDepth:        opts.maxFormDepth,
		expandLigatures: opts.expandLigatures,
		log:             opts.logger,
	}
}

// setResources installs the resource dictionary that font and XObject names
// are looked up in, and registers its fonts.
func (e *glyphExtractor) setResources(resources core.Dict, resolver func(core.IndirectRef) (core.Object, error)) {
	e.resources = resources
	e.resolver = resolver
	e.registerFonts(resources)
}

func (e *glyphExtractor) resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok && e.resolver != nil {
		return e.resolver(ref)
	}
	return obj, nil
}

func (e *glyphExtractor) registerFonts(resources core.Dict) {
	if resources == nil {
		return
	}
	obj, err := e.resolve(resources.Get("Font"))
	if err != nil {
		e.log.Debug("font dictionary unresolved", slog.Any("error", err))
		return
	}
	fonts, ok := obj.(core.Dict)
	if !ok {
		return
	}

	for name, fontObj := range fonts {
		resolved, err := e.resolve(fontObj)
		if err != nil {
			continue
		}
		dict, ok := resolved.(core.Dict)
		if !ok {
			continue
		}
		if gf := e.parseFont(dict); gf != nil {
			e.fonts[strings.TrimPrefix(name, "/")] = gf
		}
	}
}

func (e *glyphExtractor) parseFont(dict core.Dict) *glyphFont {
	subtype, _ := dict.GetName("Subtype")

	switch string(subtype) {
	case "Type1", "MMType1":
		t1, err := font.NewType1Font(dict, e.resolver)
		if err != nil {
			e.log.Debug("type1 font skipped", slog.Any("error", err))
			return nil
		}
		gf := newGlyphFont(t1.Font)
		gf.firstChar, gf.widths = t1.FirstChar, t1.Widths
		gf.setMetrics(t1.FontDescriptor)
		return gf
	case "TrueType":
		tt, err := font.NewTrueTypeFont(dict, e.resolver)
		if err != nil {
			e.log.Debug("truetype font skipped", slog.Any("error", err))
			return nil
		}
		gf := newGlyphFont(tt.Font)
		gf.firstChar, gf.widths = tt.FirstChar, tt.Widths
		gf.setMetrics(tt.FontDescriptor)
		return gf
	case "Type0":
		t0, err := font.NewType0Font(dict, e.resolver)
		if err != nil {
			e.log.Debug("type0 font skipped", slog.Any("error", err))
			return nil
		}
		gf := newGlyphFont(t0.Font)
		// Two-byte codes, as in Identity-H/V and the predefined CJK CMaps.
		// Variable-length codes from embedded CMaps are not split.
		gf.codeLen = 2
		gf.cid = t0.DescendantFont
		if t0.DescendantFont != nil {
			gf.setMetrics(t0.DescendantFont.FontDescriptor)
		}
		return gf
	}
	return nil
}

// currentFont returns the font selected by the last Tf, falling back to
// Helvetica metrics for names missing from the resources.
func (e *glyphExtractor) currentFont() *glyphFont {
	name := strings.TrimPrefix(e.gs.GetFontName(), "/")
	if gf, ok := e.fonts[name]; ok {
		return gf
	}
	gf := newGlyphFont(font.NewFont(name, "Helvetica", "Type1"))
	e.fonts[name] = gf
	return gf
}

// extract runs the operations and returns the glyphs in content order.
func (e *glyphExtractor) extract(ops []contentstream.Operation) []glyph {
	for _, op := range ops {
		e.process(op)
	}
	return e.glyphs
}

func (e *glyphExtractor) process(op contentstream.Operation) {
	args := op.Operands

	switch op.Operator {
	case "q":
		e.gs.Save()
	case "Q":
		if err := e.gs.Restore(); err != nil {
			e.log.Debug("unbalanced Q", slog.Any("error", err))
		}
	case "cm":
		if len(args) == 6 {
			e.gs.Transform(toMatrix(args))
		}

	case "BT":
		e.gs.BeginText()
	case "ET":
		e.gs.EndText()
	case "Tf":
		if len(args) == 2 {
			name, ok := args[0].(core.Name)
			size, ok2 := toFloat(args[1])
			if ok && ok2 {
				e.gs.SetFont(string(name), size)
			}
		}
	case "Tc":
		if v, ok := oneFloat(args); ok {
			e.gs.SetCharSpacing(v)
		}
	case "Tw":
		if v, ok := oneFloat(args); ok {
			e.gs.SetWordSpacing(v)
		}
	case "Tz":
		if v, ok := oneFloat(args); ok {
			e.gs.SetHorizontalScaling(v)
		}
	case "TL":
		if v, ok := oneFloat(args); ok {
			e.gs.SetLeading(v)
		}
	case "Ts":
		if v, ok := oneFloat(args); ok {
			e.gs.SetTextRise(v)
		}
	case "Tr":
		if v, ok := oneFloat(args); ok {
			e.gs.SetRenderingMode(int(v))
		}

	case "Tm":
		if len(args) == 6 {
			e.gs.SetTextMatrix(toMatrix(args))
		}
	case "Td", "TD":
		if len(args) == 2 {
			tx, _ := toFloat(args[0])
			ty, _ := toFloat(args[1])
			if op.Operator == "TD" {
				e.gs.TranslateTextSetLeading(tx, ty)
			} else {
				e.gs.TranslateText(tx, ty)
			}
		}
	case "T*":
		e.gs.NextLine()

	case "Tj":
		if len(args) == 1 {
			if s, ok := args[0].(core.String); ok {
				e.show([]byte(s))
			}
		}
	case "TJ":
		if len(args) == 1 {
			if arr, ok := args[0].(core.Array); ok {
				e.showArray(arr)
			}
		}
	case "'":
		e.gs.NextLine()
		if len(args) == 1 {
			if s, ok := args[0].(core.String); ok {
				e.show([]byte(s))
			}
		}
	case "\"":
		if len(args) == 3 {
			if v, ok := toFloat(args[0]); ok {
				e.gs.SetWordSpacing(v)
			}
			if v, ok := toFloat(args[1]); ok {
				e.gs.SetCharSpacing(v)
			}
			e.gs.NextLine()
			if s, ok := args[2].(core.String); ok {
				e.show([]byte(s))
			}
		}

	case "Do":
		if len(args) == 1 {
			if name, ok := args[0].(core.Name); ok {
				if err := e.invokeForm(string(name)); err != nil {
					e.log.Debug("form xobject skipped", slog.String("name", string(name)), slog.Any("error", err))
				}
			}
		}
	}
}

// show emits one glyph per character code of a Tj string and advances the
// text matrix after each one.
func (e *glyphExtractor) show(data []byte) {
	gf := e.currentFont()
	ts := e.gs.Text
	size := ts.FontSize
	hscale := ts.HorizontalScaling / 100

	for i := 0; i < len(data); {
		n := gf.codeLen
		if i+n > len(data) {
			n = len(data) - i
		}
		code := data[i : i+n]
		i += n

		text := gf.decode(code)
		if e.expandLigatures {
			text = expandLigatures(text)
		}
		w0 := gf.width(code, text) / 1000

		trm := model.Matrix{size * hscale, 0, 0, size, 0, e.gs.Text.Rise}.
			Multiply(e.gs.Text.TextMatrix).
			Multiply(e.gs.CTM)

		origin := trm.Transform(model.Point{})
		box := transformBox(trm, 0, gf.descent/1000, w0, gf.ascent/1000)
		scale := math.Hypot(trm[2], trm[3])
		space := gf.f.GetWidth(' ') / 1000 * math.Hypot(trm[0], trm[1])

		e.glyphs = append(e.glyphs, glyph{
			text:       text,
			box:        box,
			origin:     Point{X: origin.X, Y: origin.Y},
			fontSize:   scale,
			spaceWidth: space,
		})

		tx := w0*size + e.gs.Text.CharSpacing
		if n == 1 && code[0] == ' ' {
			tx += e.gs.Text.WordSpacing
		}
		e.advance(tx * hscale)
	}
}

// showArray handles TJ: strings are shown, numbers move the text position
// left by thousandths of the font size.
func (e *glyphExtractor) showArray(arr core.Array) {
	for _, item := range arr {
		switch v := item.(type) {
		case core.String:
			e.show([]byte(v))
		case core.Int, core.Real:
			adj, _ := toFloat(v)
			e.advance(-adj / 1000 * e.gs.Text.FontSize * e.gs.Text.HorizontalScaling / 100)
		}
	}
}

// advance moves the text matrix (but not the line matrix) by tx in text
// space.
func (e *glyphExtractor) advance(tx float64) {
	e.gs.Text.TextMatrix = model.Translate(tx, 0).Multiply(e.gs.Text.TextMatrix)
}

// invokeForm runs the content stream of a Form XObject with its own
// resources and matrix.
func (e *glyphExtractor) invokeForm(name string) error {
	if e.resources == nil {
		return nil
	}
	if e.depth >= e.maxDepth {
		return fmt.Errorf("form nesting deeper than %d", e.maxDepth)
	}

	xobjs, err := e.resolve(e.resources.Get("XObject"))
	if err != nil {
		return fmt.Errorf("resolve XObject dictionary: %w", err)
	}
	dict, ok := xobjs.(core.Dict)
	if !ok {
		return nil
	}
	obj := dict.Get(strings.TrimPrefix(name, "/"))
	if obj == nil {
		return nil
	}
	resolved, err := e.resolve(obj)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return nil
	}
	if subtype, _ := stream.Dict.GetName("Subtype"); subtype != "Form" {
		return nil
	}

	data, err := stream.Decode()
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	ops, err := parseContent(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	// Font names are scoped to a resource dictionary; the form's fonts
	// must not replace the page's after the form returns.
	parentResources, parentFonts := e.resources, e.fonts
	if res, err := e.resolve(stream.Dict.Get("Resources")); err == nil {
		if rd, ok := res.(core.Dict); ok {
			e.resources = rd
			e.fonts = maps.Clone(parentFonts)
			e.registerFonts(rd)
		}
	}
	defer func() {
		e.resources, e.fonts = parentResources, parentFonts
	}()

	e.gs.Save()
	e.depth++
	if m, ok := stream.Dict.Get("Matrix").(core.Array); ok && len(m) == 6 {
		e.gs.Transform(toMatrix(m))
	}

	for _, op := range ops {
		e.process(op)
	}

	e.depth--
	return e.gs.Restore()
}

// parseMu serializes content stream parsing. The tabula parser keeps its
// operand stack in a package variable.
var parseMu sync.Mutex

// parseContent parses a content stream. A trailing "n" operator drains any
// dangling operands so they cannot leak into the next parse.
func parseContent(data []byte) ([]contentstream.Operation, error) {
	buf := make([]byte, 0, len(data)+3)
	buf = append(buf, data...)
	buf = append(buf, "\nn\n"...)

	parseMu.Lock()
	defer parseMu.Unlock()
	return contentstream.NewParser(buf).Parse()
}

// expandLigatures replaces Alphabetic Presentation Form ligatures (U+FB00
// to U+FB06) with their compatibility decomposition, so "ﬁ" reads as "fi".
func expandLigatures(s string) string {
	for _, r := range s {
		if r >= 0xFB00 && r <= 0xFB06 {
			return norm.NFKC.String(s)
		}
	}
	return s
}

// transformBox maps the text-space rectangle (x0, y0)-(x1, y1) through m
// and returns its bounding box.
func transformBox(m model.Matrix, x0, y0, x1, y1 float64) Rect {
	corners := [4]model.Point{
		m.Transform(model.Point{X: x0, Y: y0}),
		m.Transform(model.Point{X: x1, Y: y0}),
		m.Transform(model.Point{X: x0, Y: y1}),
		m.Transform(model.Point{X: x1, Y: y1}),
	}
	r := Rect{Left: corners[0].X, Right: corners[0].X, Top: corners[0].Y, Bottom: corners[0].Y}
	for _, c := range corners[1:] {
		r.Left = math.Min(r.Left, c.X)
		r.Right = math.Max(r.Right, c.X)
		r.Bottom = math.Min(r.Bottom, c.Y)
		r.Top = math.Max(r.Top, c.Y)
	}
	return r
}

func toFloat(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}

func oneFloat(args []core.Object) (float64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	return toFloat(args[0])
}

func toMatrix(args []core.Object) model.Matrix {
	var m model.Matrix
	for i := 0; i < 6 && i < len(args); i++ {
		m[i], _ = toFloat(args[i])
	}
	return m
}
