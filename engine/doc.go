// Package engine is the C-style text extraction API that the textpage
// handles sit on.
//
// An Engine hands out opaque references instead of objects:
//
//	doc, err := eng.LoadDocument(data)
//	tp, err := eng.LoadTextPage(doc, 0)
//	n, err := eng.TextCountChars(tp)
//	eng.CloseTextPage(tp)
//	eng.CloseDocument(doc)
//
// References stay valid until they are closed. Using a closed or unknown
// reference returns ErrInvalidRef. An Engine does not serialize calls on the
// same reference; that is the caller's job (see package dispatch).
//
// # Native
//
// Native implements Engine on top of the tabula PDF reader. Loading a text
// page walks the page's content streams once, decoding every shown string
// into one record per character code with its Unicode value and glyph box.
// The records are then laid out in content order, with generated spaces
// where a visible gap separates two glyphs and a generated "\r\n" at each
// line change. All text page queries read that immutable layout.
//
// # Coordinates
//
// Boxes are in PDF user space: the origin is the bottom-left corner of the
// page and Top is greater than Bottom for any glyph with height.
package engine
