package term

import (
	"errors"
	"fmt"
)

// ErrBadSize is returned when a resize to a non-positive dimension is
// requested.
var ErrBadSize = errors.New("term: rows and cols must be positive")

// MouseMode describes which mouse events the application asked for.
type MouseMode uint8

const (
	// MouseOff reports nothing.
	MouseOff MouseMode = iota
	// MouseClick reports button presses and releases (DECSET 1000).
	MouseClick
	// MouseDrag additionally reports motion with a button held (DECSET 1002).
	MouseDrag
)

type cursor struct {
	col     int
	row     int
	style   Style
	visible bool
}

type savedCursor struct {
	cursor
	charset   int
	g0, g1    charsetKind
	originSet bool
	valid     bool
}

type charsetKind uint8

const (
	charsetASCII charsetKind = iota
	charsetLineDrawing
)

type screen struct {
	grid      *Grid
	saved     savedCursor
	scrollTop int
	scrollBot int // exclusive
}

// Emulator consumes a PTY byte stream and maintains the terminal grid,
// scrollback, alternate screen, and cursor state. It implements Performer
// for the Parser. Malformed input never fails; unknown sequences are
// consumed silently.
type Emulator struct {
	parser *Parser

	primary screen
	alt     screen
	onAlt   bool

	cur         cursor
	pendingWrap bool

	scrollback *Scrollback

	tabStops map[int]bool

	// Modes.
	origin         bool
	autoWrap       bool
	insert         bool
	lnm            bool
	bracketedPaste bool
	focusEvents    bool
	appCursor      bool
	mouse          MouseMode
	mouseSGR       bool

	charset int // 0 = G0, 1 = G1
	g0, g1  charsetKind

	title     string
	dirty     bool
	bellCount int
	responses []byte
}

// NewEmulator creates an emulator with the given screen size and
// scrollback limit.
func NewEmulator(cols, rows, historyLimit int) *Emulator {
	e := &Emulator{
		parser:     NewParser(),
		scrollback: NewScrollback(historyLimit),
	}
	e.primary = newScreen(cols, rows)
	e.alt = newScreen(cols, rows)
	e.cur = cursor{visible: true}
	e.autoWrap = true
	e.tabStops = defaultTabStops(cols)
	e.dirty = true
	return e
}

func newScreen(cols, rows int) screen {
	return screen{grid: NewGrid(cols, rows), scrollBot: rows}
}

func defaultTabStops(cols int) map[int]bool {
	stops := make(map[int]bool)
	for x := 8; x < cols; x += 8 {
		stops[x] = true
	}
	return stops
}

func (e *Emulator) screen() *screen {
	if e.onAlt {
		return &e.alt
	}
	return &e.primary
}

// Grid returns the active screen grid (primary or alternate).
func (e *Emulator) Grid() *Grid {
	return e.screen().grid
}

// Scrollback returns the primary screen's scrollback ring.
func (e *Emulator) Scrollback() *Scrollback {
	return e.scrollback
}

// Cols returns the screen width.
func (e *Emulator) Cols() int { return e.screen().grid.Cols() }

// Rows returns the screen height.
func (e *Emulator) Rows() int { return e.screen().grid.Rows() }

// Cursor returns the cursor column, row, and visibility.
func (e *Emulator) Cursor() (col, row int, visible bool) {
	return e.cur.col, e.cur.row, e.cur.visible
}

// Title returns the window title set via OSC 0/2.
func (e *Emulator) Title() string { return e.title }

// AltScreen reports whether the alternate screen is active.
func (e *Emulator) AltScreen() bool { return e.onAlt }

// BracketedPaste reports whether the application requested bracketed paste.
func (e *Emulator) BracketedPaste() bool { return e.bracketedPaste }

// Mouse returns the active mouse reporting mode.
func (e *Emulator) Mouse() MouseMode { return e.mouse }

// Dirty reports whether the grid changed since the last ClearDirty.
func (e *Emulator) Dirty() bool { return e.dirty }

// ClearDirty resets the dirty flag after a render pass.
func (e *Emulator) ClearDirty() { e.dirty = false }

// TakeBell returns true once per BEL received since the last call.
func (e *Emulator) TakeBell() bool {
	if e.bellCount > 0 {
		e.bellCount = 0
		return true
	}
	return false
}

// TakeResponses drains bytes the emulator owes the application (DA, DSR
// replies). The caller writes them to the PTY input.
func (e *Emulator) TakeResponses() []byte {
	r := e.responses
	e.responses = nil
	return r
}

// Feed applies a chunk of PTY output to the grid.
func (e *Emulator) Feed(data []byte) {
	e.parser.Feed(data, e)
}

// Resize re-lays out both screens. Content is not reflowed: shrink
// truncates, grow pads with blanks. Margins reset and the cursor clamps.
func (e *Emulator) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, cols, rows)
	}
	e.primary.grid.Resize(cols, rows)
	e.primary.scrollTop = 0
	e.primary.scrollBot = rows
	e.alt.grid.Resize(cols, rows)
	e.alt.scrollTop = 0
	e.alt.scrollBot = rows
	e.cur.col = min(e.cur.col, cols-1)
	e.cur.row = min(e.cur.row, rows-1)
	e.pendingWrap = false
	e.tabStops = defaultTabStops(cols)
	e.dirty = true
	return nil
}

// Print implements Performer.
func (e *Emulator) Print(r rune) {
	r = e.mapCharset(r)
	width := RuneWidth(r)
	if width == 0 {
		// Combining marks and other zero-width runes are dropped.
		return
	}

	scr := e.screen()
	cols := scr.grid.Cols()

	if e.pendingWrap && e.autoWrap {
		e.cur.col = 0
		e.lineFeed()
	}
	e.pendingWrap = false

	// A wide glyph never straddles a line end: wrap first, leaving the
	// last column blank.
	if width == 2 && e.cur.col == cols-1 {
		if e.autoWrap {
			scr.grid.SetCell(e.cur.col, e.cur.row, Cell{Rune: ' ', Width: 1, Style: e.cur.style})
			e.cur.col = 0
			e.lineFeed()
		} else {
			e.cur.col = cols - 2
			if e.cur.col < 0 {
				return
			}
		}
	}

	if e.insert {
		scr.grid.InsertChars(e.cur.row, e.cur.col, width)
	}

	scr.grid.SetCell(e.cur.col, e.cur.row, Cell{Rune: r, Width: width, Style: e.cur.style})
	if width == 2 {
		scr.grid.SetCell(e.cur.col+1, e.cur.row, ContinuationCell(e.cur.style))
	}

	if e.cur.col+width >= cols {
		e.cur.col = cols - 1
		if e.autoWrap {
			e.pendingWrap = true
		}
	} else {
		e.cur.col += width
	}
	e.dirty = true
}

func (e *Emulator) mapCharset(r rune) rune {
	kind := e.g0
	if e.charset == 1 {
		kind = e.g1
	}
	if kind == charsetLineDrawing {
		if mapped, ok := lineDrawing[r]; ok {
			return mapped
		}
	}
	return r
}

// DEC special graphics characters used by the line-drawing charset.
var lineDrawing = map[rune]rune{
	'j': '┘', 'k': '┐', 'l': '┌', 'm': '└', 'n': '┼',
	'q': '─', 't': '├', 'u': '┤', 'v': '┴', 'w': '┬',
	'x': '│', 'a': '▒', '`': '◆', '~': '·', 'o': '⎺',
	's': '⎽', '0': '█', 'f': '°', 'g': '±', 'y': '≤', 'z': '≥',
}

func (e *Emulator) lineFeed() {
	scr := e.screen()
	if e.cur.row == scr.scrollBot-1 {
		e.scrollRegionUp()
	} else if e.cur.row < scr.grid.Rows()-1 {
		e.cur.row++
	}
	e.dirty = true
}

// scrollRegionUp scrolls the margin region, retiring the top row to
// scrollback when the region is the full primary screen.
func (e *Emulator) scrollRegionUp() {
	scr := e.screen()
	removed := scr.grid.ScrollUp(scr.scrollTop, scr.scrollBot)
	if removed != nil && !e.onAlt && scr.scrollTop == 0 && scr.scrollBot == scr.grid.Rows() {
		e.scrollback.Push(removed)
	}
}

// Execute implements Performer.
func (e *Emulator) Execute(b byte) {
	switch b {
	case 0x07: // BEL
		e.bellCount++
	case 0x08: // BS
		if e.cur.col > 0 {
			e.cur.col--
		}
		e.pendingWrap = false
	case 0x09: // HT
		e.cur.col = e.nextTabStop()
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		e.lineFeed()
		if e.lnm {
			e.cur.col = 0
		}
		e.pendingWrap = false
	case 0x0D: // CR
		e.cur.col = 0
		e.pendingWrap = false
	case 0x0E: // SO: invoke G1
		e.charset = 1
	case 0x0F: // SI: invoke G0
		e.charset = 0
	}
}

func (e *Emulator) nextTabStop() int {
	cols := e.screen().grid.Cols()
	for x := e.cur.col + 1; x < cols; x++ {
		if e.tabStops[x] {
			return x
		}
	}
	return cols - 1
}

// param returns the idx-th parameter, treating missing and zero values as
// the default (VT convention).
func param(params []int, idx, def int) int {
	if idx < len(params) && params[idx] != 0 {
		return params[idx]
	}
	return def
}

// CSIDispatch implements Performer.
func (e *Emulator) CSIDispatch(prefix byte, params []int, intermediates []byte, final byte) {
	if len(intermediates) > 0 {
		// Unknown intermediates are consumed silently.
		return
	}
	if prefix == '?' {
		switch final {
		case 'h':
			e.setPrivateModes(params, true)
		case 'l':
			e.setPrivateModes(params, false)
		case 'n':
			// DSR with a private prefix: not reported.
		}
		return
	}
	if prefix != 0 {
		// Secondary DA (CSI > c) is answered; other '>' and '=' prefixed
		// sequences are ignored.
		if final == 'c' && prefix == '>' {
			e.responses = append(e.responses, "\x1b[>0;10;1c"...)
		}
		return
	}

	scr := e.screen()
	rows := scr.grid.Rows()
	cols := scr.grid.Cols()

	switch final {
	case 'A': // CUU
		e.cur.row = max(e.cur.row-param(params, 0, 1), e.topLimit())
		e.pendingWrap = false
	case 'B': // CUD
		e.cur.row = min(e.cur.row+param(params, 0, 1), e.bottomLimit())
		e.pendingWrap = false
	case 'C': // CUF
		e.cur.col = min(e.cur.col+param(params, 0, 1), cols-1)
		e.pendingWrap = false
	case 'D': // CUB
		e.cur.col = max(e.cur.col-param(params, 0, 1), 0)
		e.pendingWrap = false
	case 'E': // CNL
		e.cur.row = min(e.cur.row+param(params, 0, 1), e.bottomLimit())
		e.cur.col = 0
		e.pendingWrap = false
	case 'F': // CPL
		e.cur.row = max(e.cur.row-param(params, 0, 1), e.topLimit())
		e.cur.col = 0
		e.pendingWrap = false
	case 'G': // CHA
		e.cur.col = clamp(param(params, 0, 1)-1, 0, cols-1)
		e.pendingWrap = false
	case 'H', 'f': // CUP, HVP
		e.moveTo(param(params, 0, 1)-1, param(params, 1, 1)-1)
	case 'J': // ED
		e.eraseDisplay(params)
	case 'K': // EL
		e.eraseLine(params)
	case 'L': // IL
		if e.cur.row >= scr.scrollTop && e.cur.row < scr.scrollBot {
			scr.grid.InsertLines(e.cur.row, param(params, 0, 1), scr.scrollBot)
		}
	case 'M': // DL
		if e.cur.row >= scr.scrollTop && e.cur.row < scr.scrollBot {
			scr.grid.DeleteLines(e.cur.row, param(params, 0, 1), scr.scrollBot)
		}
	case 'P': // DCH
		scr.grid.DeleteChars(e.cur.row, e.cur.col, param(params, 0, 1))
	case 'S': // SU
		for i := 0; i < param(params, 0, 1); i++ {
			e.scrollRegionUp()
		}
	case 'T': // SD
		for i := 0; i < param(params, 0, 1); i++ {
			scr.grid.ScrollDown(scr.scrollTop, scr.scrollBot)
		}
	case 'X': // ECH
		scr.grid.EraseChars(e.cur.row, e.cur.col, param(params, 0, 1))
	case '@': // ICH
		scr.grid.InsertChars(e.cur.row, e.cur.col, param(params, 0, 1))
	case 'd': // VPA
		e.cur.row = clamp(param(params, 0, 1)-1, 0, rows-1)
		e.pendingWrap = false
	case 'g': // TBC
		switch param(params, 0, 0) {
		case 0:
			delete(e.tabStops, e.cur.col)
		case 3:
			e.tabStops = make(map[int]bool)
		}
	case 'h': // SM
		e.setModes(params, true)
	case 'l': // RM
		e.setModes(params, false)
	case 'm': // SGR
		e.selectGraphicRendition(params)
	case 'r': // DECSTBM
		top := clamp(param(params, 0, 1)-1, 0, rows-1)
		bot := clamp(param(params, 1, rows), 1, rows)
		if top < bot {
			scr.scrollTop = top
			scr.scrollBot = bot
			e.moveTo(0, 0)
		}
	case 's': // DECSC (ANSI.SYS form)
		e.saveCursor()
	case 'u': // DECRC (ANSI.SYS form)
		e.restoreCursor()
	case 'c': // DA
		e.responses = append(e.responses, "\x1b[?1;2c"...)
	case 'n': // DSR
		switch param(params, 0, 0) {
		case 5:
			e.responses = append(e.responses, "\x1b[0n"...)
		case 6:
			row := e.cur.row + 1
			if e.origin {
				row -= scr.scrollTop
			}
			e.responses = append(e.responses, fmt.Sprintf("\x1b[%d;%dR", row, e.cur.col+1)...)
		}
	}
	e.dirty = true
}

func (e *Emulator) topLimit() int {
	if e.origin {
		return e.screen().scrollTop
	}
	return 0
}

func (e *Emulator) bottomLimit() int {
	if e.origin {
		return e.screen().scrollBot - 1
	}
	return e.screen().grid.Rows() - 1
}

// moveTo positions the cursor, honoring origin mode.
func (e *Emulator) moveTo(row, col int) {
	scr := e.screen()
	if e.origin {
		row += scr.scrollTop
		row = clamp(row, scr.scrollTop, scr.scrollBot-1)
	} else {
		row = clamp(row, 0, scr.grid.Rows()-1)
	}
	e.cur.row = row
	e.cur.col = clamp(col, 0, scr.grid.Cols()-1)
	e.pendingWrap = false
}

func (e *Emulator) eraseDisplay(params []int) {
	scr := e.screen()
	switch param(params, 0, 0) {
	case 0: // cursor to end
		scr.grid.EraseToEOL(e.cur.row, e.cur.col)
		for row := e.cur.row + 1; row < scr.grid.Rows(); row++ {
			scr.grid.ClearRow(row)
		}
	case 1: // start to cursor
		scr.grid.EraseToBOL(e.cur.row, e.cur.col)
		for row := 0; row < e.cur.row; row++ {
			scr.grid.ClearRow(row)
		}
	case 2:
		scr.grid.Clear()
	case 3:
		scr.grid.Clear()
		if !e.onAlt {
			e.scrollback.Clear()
		}
	}
}

func (e *Emulator) eraseLine(params []int) {
	scr := e.screen()
	switch param(params, 0, 0) {
	case 0:
		scr.grid.EraseToEOL(e.cur.row, e.cur.col)
	case 1:
		scr.grid.EraseToBOL(e.cur.row, e.cur.col)
	case 2:
		scr.grid.ClearRow(e.cur.row)
	}
}

func (e *Emulator) setModes(params []int, set bool) {
	for _, p := range params {
		switch p {
		case 4:
			e.insert = set
		case 20:
			e.lnm = set
		}
	}
}

func (e *Emulator) setPrivateModes(params []int, set bool) {
	for _, p := range params {
		switch p {
		case 1:
			e.appCursor = set
		case 6:
			e.origin = set
			e.moveTo(0, 0)
		case 7:
			e.autoWrap = set
			if !set {
				e.pendingWrap = false
			}
		case 25:
			e.cur.visible = set
		case 47, 1047:
			e.switchScreen(set, false)
		case 1048:
			if set {
				e.saveCursor()
			} else {
				e.restoreCursor()
			}
		case 1049:
			if set {
				e.saveCursor()
				e.switchScreen(true, true)
			} else {
				e.switchScreen(false, false)
				e.restoreCursor()
			}
		case 1000:
			e.setMouse(MouseClick, set)
		case 1002:
			e.setMouse(MouseDrag, set)
		case 1004:
			e.focusEvents = set
		case 1006:
			e.mouseSGR = set
		case 2004:
			e.bracketedPaste = set
		}
	}
	e.dirty = true
}

func (e *Emulator) setMouse(mode MouseMode, set bool) {
	if set {
		e.mouse = mode
	} else if e.mouse == mode {
		e.mouse = MouseOff
	}
}

// switchScreen swaps between the primary and alternate screens. The alt
// screen is cleared on entry when clear is set (DECSET 1049 semantics).
// Scrollback is never written while the alternate screen is active.
func (e *Emulator) switchScreen(toAlt, clear bool) {
	if toAlt == e.onAlt {
		return
	}
	e.onAlt = toAlt
	if toAlt {
		if clear {
			e.alt.grid.Clear()
		}
		e.alt.scrollTop = 0
		e.alt.scrollBot = e.alt.grid.Rows()
		e.cur.col = 0
		e.cur.row = 0
	}
	e.pendingWrap = false
	e.dirty = true
}

func (e *Emulator) saveCursor() {
	scr := e.screen()
	scr.saved = savedCursor{
		cursor:    e.cur,
		charset:   e.charset,
		g0:        e.g0,
		g1:        e.g1,
		originSet: e.origin,
		valid:     true,
	}
}

func (e *Emulator) restoreCursor() {
	scr := e.screen()
	if !scr.saved.valid {
		e.cur = cursor{visible: e.cur.visible}
		return
	}
	e.cur = scr.saved.cursor
	e.charset = scr.saved.charset
	e.g0 = scr.saved.g0
	e.g1 = scr.saved.g1
	e.origin = scr.saved.originSet
	e.cur.col = min(e.cur.col, scr.grid.Cols()-1)
	e.cur.row = min(e.cur.row, scr.grid.Rows()-1)
	e.pendingWrap = false
}

func (e *Emulator) selectGraphicRendition(params []int) {
	if len(params) == 0 {
		e.cur.style = DefaultStyle()
		return
	}
	i := 0
	for i < len(params) {
		switch p := params[i]; {
		case p == 0:
			e.cur.style = DefaultStyle()
		case p == 1:
			e.cur.style.Attrs |= AttrBold
		case p == 2:
			e.cur.style.Attrs |= AttrDim
		case p == 3:
			e.cur.style.Attrs |= AttrItalic
		case p == 4:
			e.cur.style.Attrs |= AttrUnderline
		case p == 5:
			e.cur.style.Attrs |= AttrBlink
		case p == 7:
			e.cur.style.Attrs |= AttrReverse
		case p == 8:
			e.cur.style.Attrs |= AttrHidden
		case p == 9:
			e.cur.style.Attrs |= AttrStrike
		case p == 22:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrBold).Without(AttrDim)
		case p == 23:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrItalic)
		case p == 24:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrUnderline)
		case p == 25:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrBlink)
		case p == 27:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrReverse)
		case p == 28:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrHidden)
		case p == 29:
			e.cur.style.Attrs = e.cur.style.Attrs.Without(AttrStrike)
		case p >= 30 && p <= 37:
			e.cur.style.FG = ColorIndexed(uint8(p - 30))
		case p == 38:
			if c, n := extendedColor(params[i+1:]); n > 0 {
				e.cur.style.FG = c
				i += n
			}
		case p == 39:
			e.cur.style.FG = ColorDefault
		case p >= 40 && p <= 47:
			e.cur.style.BG = ColorIndexed(uint8(p - 40))
		case p == 48:
			if c, n := extendedColor(params[i+1:]); n > 0 {
				e.cur.style.BG = c
				i += n
			}
		case p == 49:
			e.cur.style.BG = ColorDefault
		case p >= 90 && p <= 97:
			e.cur.style.FG = ColorIndexed(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			e.cur.style.BG = ColorIndexed(uint8(p - 100 + 8))
		}
		i++
	}
}

// extendedColor parses the tail of a 38/48 SGR parameter: 5;N or 2;R;G;B.
// Returns the color and the number of parameters consumed.
func extendedColor(rest []int) (Color, int) {
	if len(rest) == 0 {
		return Color{}, 0
	}
	switch rest[0] {
	case 5:
		if len(rest) >= 2 {
			return ColorIndexed(uint8(rest[1])), 2
		}
	case 2:
		if len(rest) >= 4 {
			return ColorRGB(uint8(rest[1]), uint8(rest[2]), uint8(rest[3])), 4
		}
	}
	return Color{}, 0
}

// ESCDispatch implements Performer.
func (e *Emulator) ESCDispatch(intermediates []byte, final byte) {
	if len(intermediates) == 1 {
		switch intermediates[0] {
		case '(': // designate G0
			e.g0 = charsetFromFinal(final)
			return
		case ')': // designate G1
			e.g1 = charsetFromFinal(final)
			return
		case '#':
			if final == '8' { // DECALN screen alignment test
				scr := e.screen()
				for row := 0; row < scr.grid.Rows(); row++ {
					for col := 0; col < scr.grid.Cols(); col++ {
						scr.grid.SetCell(col, row, NewCell('E'))
					}
				}
				e.dirty = true
			}
			return
		}
	}
	if len(intermediates) != 0 {
		return
	}
	switch final {
	case '7': // DECSC
		e.saveCursor()
	case '8': // DECRC
		e.restoreCursor()
		e.dirty = true
	case 'D': // IND
		e.lineFeed()
	case 'E': // NEL
		e.cur.col = 0
		e.lineFeed()
	case 'M': // RI
		scr := e.screen()
		if e.cur.row == scr.scrollTop {
			scr.grid.ScrollDown(scr.scrollTop, scr.scrollBot)
		} else if e.cur.row > 0 {
			e.cur.row--
		}
		e.dirty = true
	case 'H': // HTS
		e.tabStops[e.cur.col] = true
	case 'c': // RIS
		e.reset()
	case '=', '>': // DECKPAM / DECKPNM keypad modes, not tracked
	}
}

func charsetFromFinal(final byte) charsetKind {
	if final == '0' {
		return charsetLineDrawing
	}
	return charsetASCII
}

// reset restores power-on state: both screens cleared, modes defaulted,
// scrollback retained.
func (e *Emulator) reset() {
	cols, rows := e.primary.grid.Cols(), e.primary.grid.Rows()
	e.primary = newScreen(cols, rows)
	e.alt = newScreen(cols, rows)
	e.onAlt = false
	e.cur = cursor{visible: true}
	e.pendingWrap = false
	e.origin = false
	e.autoWrap = true
	e.insert = false
	e.lnm = false
	e.bracketedPaste = false
	e.focusEvents = false
	e.appCursor = false
	e.mouse = MouseOff
	e.mouseSGR = false
	e.charset = 0
	e.g0 = charsetASCII
	e.g1 = charsetASCII
	e.tabStops = defaultTabStops(cols)
	e.dirty = true
}

// OSCDispatch implements Performer.
func (e *Emulator) OSCDispatch(data []byte) {
	// Split "Ps;Pt".
	sep := -1
	for i, b := range data {
		if b == ';' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return
	}
	switch string(data[:sep]) {
	case "0", "2":
		e.title = string(data[sep+1:])
		e.dirty = true
	case "4", "52", "104":
		// Color set/query and clipboard are accepted and ignored.
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
