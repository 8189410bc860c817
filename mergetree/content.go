package mergetree

import (
	"fmt"
)

// Content is the payload of a segment.
//
// Content values are immutable: splitting returns new values and leaves the receiver
// untouched, so a payload may be shared between segments and snapshots.
type Content interface {
	// Len returns the number of positions the content occupies in the sequence.
	Len() int
	// Split returns the content before and after offset, with 0 < offset < Len().
	Split(offset int) (Content, Content)
}

// +------+
// | Text |
// +------+

// TextContent is a run of text, measured in runes.
type TextContent struct {
	text []rune
}

// Text returns text content holding s.
func Text(s string) TextContent {
	return TextContent{text: []rune(s)}
}

func (c TextContent) Len() int { return len(c.text) }

func (c TextContent) Split(offset int) (Content, Content) {
	if offset <= 0 || offset >= len(c.text) {
		panic(fmt.Sprintf("text split offset %d out of (0, %d)", offset, len(c.text)))
	}
	// Full slice expressions keep appends on one half from clobbering the other.
	return TextContent{text: c.text[:offset:offset]}, TextContent{text: c.text[offset:]}
}

func (c TextContent) String() string { return string(c.text) }

// +--------+
// | Marker |
// +--------+

// MarkerContent is a single-position placeholder, like a paragraph break or a tile.
//
// Markers have length 1, so a position can never fall strictly inside one.
type MarkerContent struct {
	// RefType is an application-defined label.
	RefType string
}

// Marker returns marker content with the given label.
func Marker(refType string) MarkerContent {
	return MarkerContent{RefType: refType}
}

func (m MarkerContent) Len() int { return 1 }

func (m MarkerContent) Split(offset int) (Content, Content) {
	panic(fmt.Sprintf("marker %q can't be split at %d", m.RefType, offset))
}

func (m MarkerContent) String() string { return "¶" + m.RefType }

// Returns the visible text of a content, skipping non-text payloads.
func contentText(c Content) string {
	if text, ok := c.(TextContent); ok {
		return text.String()
	}
	return ""
}

// Returns a printable representation of any content, for debugging.
func contentString(c Content) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T(len=%d)", c, c.Len())
}
