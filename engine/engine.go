package engine

import "errors"

// NotFound is returned by TextGetCharIndexAtPos when no character matches.
const NotFound = -1

// DocRef identifies a document loaded by an Engine. The zero value is never
// a valid reference.
type DocRef uint64

// TextPageRef identifies a text page loaded by an Engine. The zero value is
// never a valid reference.
type TextPageRef uint64

var (
	// ErrInvalidRef is returned for a reference that was never issued or
	// has been closed.
	ErrInvalidRef = errors.New("engine: invalid reference")

	// ErrIndex is returned for a page, character or rectangle index (or a
	// count) outside the valid range.
	ErrIndex = errors.New("engine: index out of range")

	// ErrLoad is returned when a document cannot be read or parsed.
	ErrLoad = errors.New("engine: cannot load document")
)

// Engine is the text extraction API consumed by the textpage handles.
type Engine interface {
	// LoadDocument parses a PDF held in memory. The engine may keep data
	// until the document is closed; callers must not modify it.
	LoadDocument(data []byte) (DocRef, error)
	// LoadDocumentFile parses the PDF at path.
	LoadDocumentFile(path string) (DocRef, error)
	// CloseDocument releases a document. Text pages loaded from it must
	// be closed first.
	CloseDocument(doc DocRef) error
	// PageCount returns the number of pages in a document.
	PageCount(doc DocRef) (int, error)

	// LoadTextPage extracts the text layer of the page at pageIndex
	// (0-based).
	LoadTextPage(doc DocRef, pageIndex int) (TextPageRef, error)
	// CloseTextPage releases a text page.
	CloseTextPage(tp TextPageRef) error

	// TextCountChars returns the number of characters on the page,
	// generated characters included.
	TextCountChars(tp TextPageRef) (int, error)
	// TextGetText returns up to count characters starting at start.
	TextGetText(tp TextPageRef, start, count int) (string, error)
	// TextGetUnicode returns the character at index.
	TextGetUnicode(tp TextPageRef, index int) (rune, error)
	// TextGetCharBox returns the glyph box of the character at index.
	TextGetCharBox(tp TextPageRef, index int) (Rect, error)
	// TextGetFontSize returns the effective font size of the character at
	// index.
	TextGetFontSize(tp TextPageRef, index int) (float64, error)
	// TextGetCharIndexAtPos returns the character at (x, y), searching
	// within the given tolerances, or NotFound.
	TextGetCharIndexAtPos(tp TextPageRef, x, y, xTolerance, yTolerance float64) (int, error)
	// TextCountRects computes the selection rectangles of a character
	// range and returns how many there are. A count of -1 extends the
	// range to the end of the page.
	TextCountRects(tp TextPageRef, start, count int) (int, error)
	// TextGetRect returns a rectangle computed by the last TextCountRects
	// call on the page.
	TextGetRect(tp TextPageRef, rectIndex int) (Rect, error)
	// TextGetBoundedText returns the characters whose boxes intersect
	// region, at most maxChars of them (maxChars < 0 means no limit).
	TextGetBoundedText(tp TextPageRef, region Rect, maxChars int) (string, error)
}
