// Package term implements the terminal emulation core: the cell grid,
// scrollback ring, and the VT100/xterm byte-stream parser that drives them.
package term

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// Attr represents text attributes (bold, italic, etc.).
type Attr uint16

// Text attribute flags.
const (
	AttrNone      Attr = 0
	AttrBold      Attr = 1 << iota
	AttrDim            // Faint/dim text
	AttrItalic         // Italic text
	AttrUnderline      // Underlined text
	AttrBlink          // Blinking text (rarely supported)
	AttrReverse        // Reverse video (swap fg/bg)
	AttrHidden         // Hidden/invisible text
	AttrStrike         // Strikethrough text
)

// Has returns true if the attribute set contains the given attribute.
func (a Attr) Has(attr Attr) bool {
	return a&attr != 0
}

// With returns a new attribute set with the given attribute added.
func (a Attr) With(attr Attr) Attr {
	return a | attr
}

// Without returns a new attribute set with the given attribute removed.
func (a Attr) Without(attr Attr) Attr {
	return a &^ attr
}

// ColorMode distinguishes the three color encodings a cell can carry.
type ColorMode uint8

const (
	// ColorModeDefault is the terminal's default foreground or background.
	ColorModeDefault ColorMode = iota
	// ColorModeIndexed is a 256-color palette index.
	ColorModeIndexed
	// ColorModeRGB is a 24-bit truecolor value.
	ColorModeRGB
)

// Color represents a terminal color: default, palette-indexed, or truecolor.
type Color struct {
	Mode    ColorMode
	Index   uint8
	R, G, B uint8
}

// ColorDefault is the terminal's default color.
var ColorDefault = Color{}

// ColorIndexed creates a palette color.
func ColorIndexed(index uint8) Color {
	return Color{Mode: ColorModeIndexed, Index: index}
}

// ColorRGB creates a truecolor value.
func ColorRGB(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, R: r, G: g, B: b}
}

// IsDefault returns true if this is the default color.
func (c Color) IsDefault() bool {
	return c.Mode == ColorModeDefault
}

// String returns a string representation of the color.
func (c Color) String() string {
	switch c.Mode {
	case ColorModeIndexed:
		return fmt.Sprintf("colour%d", c.Index)
	case ColorModeRGB:
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	default:
		return "default"
	}
}

// Style is the visual style carried by a cell.
type Style struct {
	FG    Color
	BG    Color
	Attrs Attr
}

// DefaultStyle returns the default terminal style.
func DefaultStyle() Style {
	return Style{}
}

// WithFG returns a new style with the given foreground color.
func (s Style) WithFG(fg Color) Style {
	s.FG = fg
	return s
}

// WithBG returns a new style with the given background color.
func (s Style) WithBG(bg Color) Style {
	s.BG = bg
	return s
}

// WithAttrs returns a new style with the given attributes.
func (s Style) WithAttrs(attrs Attr) Style {
	s.Attrs = attrs
	return s
}

// Reverse returns a new style with reverse video added.
func (s Style) Reverse() Style {
	s.Attrs |= AttrReverse
	return s
}

// IsDefault returns true if this is the default style.
func (s Style) IsDefault() bool {
	return s.FG.IsDefault() && s.BG.IsDefault() && s.Attrs == AttrNone
}

// Cell is a single terminal cell.
type Cell struct {
	// Rune is the character to display. Zero for wide-glyph continuations.
	Rune rune

	// Width is the display width: 1 for normal, 2 for wide, 0 for the
	// continuation cell that follows a wide glyph.
	Width int

	// Style is the visual style for this cell.
	Style Style
}

// EmptyCell returns a blank cell with default style.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Width: 1}
}

// NewCell creates a cell with the given rune and default style.
func NewCell(r rune) Cell {
	return Cell{Rune: r, Width: RuneWidth(r)}
}

// NewStyledCell creates a cell with the given rune and style.
func NewStyledCell(r rune, style Style) Cell {
	return Cell{Rune: r, Width: RuneWidth(r), Style: style}
}

// ContinuationCell returns the placeholder cell that follows a wide glyph.
func ContinuationCell(style Style) Cell {
	return Cell{Rune: 0, Width: 0, Style: style}
}

// IsContinuation returns true if this cell is a wide-glyph continuation.
func (c Cell) IsContinuation() bool {
	return c.Width == 0 && c.Rune == 0
}

// IsBlank returns true if the cell displays nothing but background.
func (c Cell) IsBlank() bool {
	return c.Rune == ' ' || c.Rune == 0
}

// RuneWidth returns the display width of a rune under East Asian Width
// rules: 0 for combining/control, 1 for narrow, 2 for wide glyphs.
func RuneWidth(r rune) int {
	if r < 32 || r == 0x7F {
		return 0
	}
	return runewidth.RuneWidth(r)
}
