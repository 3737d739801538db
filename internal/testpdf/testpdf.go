// Package testpdf builds small PDF files for tests.
//
// Every page uses one font, F1: Courier with an explicit Widths array that
// makes every code from 32 to 126 exactly 600 units wide, and no font
// descriptor, so glyph boxes fall back to an 800/-200 ascent and descent.
// At size 10 a character is therefore 6 points wide and its box spans from
// 2 points below the baseline to 8 points above it.
package testpdf

import (
	"bytes"
	"fmt"
	"strings"
)

// Font is the resource name of the test font.
const Font = "F1"

// Advance is the width of one character at size 1.
const Advance = 0.6

// Line returns a content stream fragment showing s at (x, y).
func Line(x, y, size float64, s string) string {
	return fmt.Sprintf("BT /%s %g Tf %g %g Td (%s) Tj ET\n", Font, size, x, y, Escape(s))
}

// Escape escapes s for use inside a PDF literal string.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Build returns a PDF with one page per content stream.
func Build(contents ...string) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 page tree, 3 font, then a page and its stream per page.
	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))

	widths := make([]string, 126-32+1)
	for i := range widths {
		widths[i] = "600"
	}
	obj(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " ")))

	for i, content := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /%s 3 0 R >> >> /Contents %d 0 R >>",
			Font, 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content)+1, content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Reference page layout: ReferenceLines lines of ReferenceLineLen
// characters, joined by generated "\r\n" pairs.
const (
	ReferenceLines   = 10
	ReferenceLineLen = 345
	ReferenceChars   = ReferenceLines*ReferenceLineLen + 2*(ReferenceLines-1)
)

const referenceText = "The quick brown fox jumps over the lazy dog. "

// ReferenceLine returns line i of the reference page.
func ReferenceLine(i int) string {
	s := strings.Repeat(referenceText, ReferenceLineLen/len(referenceText)+2)
	off := (i * 7) % len(referenceText)
	if i == 0 {
		off = 0
	}
	return s[off : off+ReferenceLineLen]
}

// Reference returns a one-page document with ReferenceChars characters on
// its page, starting with 'T'.
func Reference() []byte {
	var b strings.Builder
	for i := 0; i < ReferenceLines; i++ {
		b.WriteString(Line(20, 760-float64(i)*4, 2, ReferenceLine(i)))
	}
	return Build(b.String())
}
