package server

import (
	"strings"

	"github.com/blackwitch/wtmux/internal/input/key"
	"github.com/blackwitch/wtmux/internal/term"
)

// CopyMode is the per-pane modal state for scrollback navigation and text
// selection. The cursor addresses a virtual grid that concatenates the
// scrollback ring with the primary active region; row 0 is the oldest
// retired row.
type CopyMode struct {
	emu *term.Emulator

	// Cursor position in virtual-grid coordinates.
	CursorRow int
	CursorCol int

	// Top is the first virtual row of the viewport.
	Top int

	anchorSet bool
	anchorRow int
	anchorCol int
	lineMode  bool

	// Search state. A pending search collects pattern characters until
	// Enter.
	pattern        string
	searchBack     bool
	searchPending  bool
	pendingBack    bool
	pendingPattern strings.Builder

	wrapSearch bool
}

// CopyResult reports the outcome of one copy-mode key.
type CopyResult struct {
	// Exited is true when copy mode ended; the pane returns to live view.
	Exited bool

	// Copied holds selected text to push onto the paste-buffer stack.
	// Non-empty only with Exited.
	Copied string

	// HasCopied distinguishes an empty selection from no copy at all.
	HasCopied bool
}

// NewCopyMode enters copy mode over a pane's emulator, anchoring the
// viewport to the live screen with the cursor at the emulator's cursor.
func NewCopyMode(emu *term.Emulator, wrapSearch bool) *CopyMode {
	col, row, _ := emu.Cursor()
	sb := emu.Scrollback().Len()
	return &CopyMode{
		emu:        emu,
		CursorRow:  sb + row,
		CursorCol:  col,
		Top:        sb,
		wrapSearch: wrapSearch,
	}
}

// TotalRows returns the virtual grid height.
func (c *CopyMode) TotalRows() int {
	return c.emu.Scrollback().Len() + c.emu.Rows()
}

// Line returns a virtual-grid row.
func (c *CopyMode) Line(row int) []term.Cell {
	sb := c.emu.Scrollback()
	if row < sb.Len() {
		return sb.Line(row)
	}
	row -= sb.Len()
	if row >= c.emu.Rows() {
		return nil
	}
	return c.emu.Grid().Row(row)
}

// LineText returns the visible text of a virtual row.
func (c *CopyMode) LineText(row int) string {
	return term.LineText(c.Line(row))
}

// ScrollUp moves the viewport toward the scrollback by n rows, pinning
// the cursor inside the viewport.
func (c *CopyMode) ScrollUp(n int) {
	c.Top = max(c.Top-n, 0)
	c.clampCursorToViewport()
}

// ScrollDown moves the viewport toward the live screen by n rows.
func (c *CopyMode) ScrollDown(n int) {
	c.Top = min(c.Top+n, c.emu.Scrollback().Len())
	c.clampCursorToViewport()
}

func (c *CopyMode) clampCursorToViewport() {
	rows := c.emu.Rows()
	c.CursorRow = clampInt(c.CursorRow, c.Top, c.Top+rows-1)
}

func (c *CopyMode) ensureVisible() {
	rows := c.emu.Rows()
	if c.CursorRow < c.Top {
		c.Top = c.CursorRow
	}
	if c.CursorRow >= c.Top+rows {
		c.Top = c.CursorRow - rows + 1
	}
	c.Top = clampInt(c.Top, 0, c.emu.Scrollback().Len())
}

// Selecting reports whether a selection anchor is set.
func (c *CopyMode) Selecting() bool {
	return c.anchorSet
}

// InSelection reports whether a virtual cell lies inside the current
// selection.
func (c *CopyMode) InSelection(row, col int) bool {
	if !c.anchorSet {
		return false
	}
	sr, sc, er, ec := c.selectionBounds()
	if row < sr || row > er {
		return false
	}
	if c.lineMode {
		return true
	}
	if row == sr && col < sc {
		return false
	}
	if row == er && col > ec {
		return false
	}
	return true
}

func (c *CopyMode) selectionBounds() (sr, sc, er, ec int) {
	sr, sc = c.anchorRow, c.anchorCol
	er, ec = c.CursorRow, c.CursorCol
	if sr > er || (sr == er && sc > ec) {
		sr, sc, er, ec = er, ec, sr, sc
	}
	return sr, sc, er, ec
}

// SearchActive reports whether a search pattern is being typed; the
// renderer shows the pending pattern in place of the indicator.
func (c *CopyMode) SearchActive() bool {
	return c.searchPending
}

// SearchPrompt returns the pending search prompt for display.
func (c *CopyMode) SearchPrompt() string {
	if !c.searchPending {
		return ""
	}
	lead := "/"
	if c.pendingBack {
		lead = "?"
	}
	return lead + c.pendingPattern.String()
}

// HandleKey applies one chord to the copy-mode state machine.
func (c *CopyMode) HandleKey(ch key.Chord) CopyResult {
	if c.searchPending {
		return c.handleSearchKey(ch)
	}

	rows := c.emu.Rows()
	switch {
	case ch == key.RuneChord('q') || ch == key.Special(key.CodeEscape):
		return CopyResult{Exited: true}

	case ch == key.RuneChord('h') || ch == key.Special(key.CodeLeft):
		c.CursorCol = max(c.CursorCol-1, 0)
	case ch == key.RuneChord('l') || ch == key.Special(key.CodeRight):
		c.CursorCol = min(c.CursorCol+1, c.emu.Cols()-1)
	case ch == key.RuneChord('k') || ch == key.Special(key.CodeUp):
		c.CursorRow = max(c.CursorRow-1, 0)
		c.ensureVisible()
	case ch == key.RuneChord('j') || ch == key.Special(key.CodeDown):
		c.CursorRow = min(c.CursorRow+1, c.TotalRows()-1)
		c.ensureVisible()

	case ch == key.RuneChord('0'):
		c.CursorCol = 0
	case ch == key.RuneChord('$'):
		c.CursorCol = c.endOfLine(c.CursorRow)

	case ch == key.RuneChord('g'):
		c.CursorRow = 0
		c.ensureVisible()
	case ch == key.RuneChord('G'):
		c.CursorRow = c.TotalRows() - 1
		c.ensureVisible()

	case ch == key.Ctrl('u'):
		c.CursorRow = max(c.CursorRow-rows/2, 0)
		c.ensureVisible()
	case ch == key.Ctrl('d'):
		c.CursorRow = min(c.CursorRow+rows/2, c.TotalRows()-1)
		c.ensureVisible()
	case ch == key.Special(key.CodePageUp):
		c.CursorRow = max(c.CursorRow-rows, 0)
		c.ensureVisible()
	case ch == key.Special(key.CodePageDown):
		c.CursorRow = min(c.CursorRow+rows, c.TotalRows()-1)
		c.ensureVisible()

	case ch == key.RuneChord(' '):
		c.anchorSet = true
		c.anchorRow = c.CursorRow
		c.anchorCol = c.CursorCol
		c.lineMode = false
	case ch == key.RuneChord('V'):
		c.anchorSet = true
		c.anchorRow = c.CursorRow
		c.anchorCol = c.CursorCol
		c.lineMode = true

	case ch == key.Special(key.CodeEnter):
		if c.anchorSet {
			return CopyResult{Exited: true, Copied: c.extractSelection(), HasCopied: true}
		}
		return CopyResult{Exited: true}

	case ch == key.RuneChord('/'):
		c.searchPending = true
		c.pendingBack = false
		c.pendingPattern.Reset()
	case ch == key.RuneChord('?'):
		c.searchPending = true
		c.pendingBack = true
		c.pendingPattern.Reset()
	case ch == key.RuneChord('n'):
		c.search(c.searchBack)
	case ch == key.RuneChord('N'):
		c.search(!c.searchBack)
	}
	return CopyResult{}
}

func (c *CopyMode) handleSearchKey(ch key.Chord) CopyResult {
	switch {
	case ch == key.Special(key.CodeEnter):
		c.searchPending = false
		if c.pendingPattern.Len() > 0 {
			c.pattern = c.pendingPattern.String()
			c.searchBack = c.pendingBack
			c.search(c.searchBack)
		}
	case ch == key.Special(key.CodeEscape):
		c.searchPending = false
	case ch == key.Special(key.CodeBackspace):
		s := c.pendingPattern.String()
		if len(s) > 0 {
			c.pendingPattern.Reset()
			c.pendingPattern.WriteString(s[:len(s)-1])
		}
	case ch.Code == key.CodeRune && ch.Modifiers == key.ModNone:
		c.pendingPattern.WriteRune(ch.Rune)
	}
	return CopyResult{}
}

// endOfLine returns the column of the last non-blank cell, or zero.
func (c *CopyMode) endOfLine(row int) int {
	text := c.LineText(row)
	if text == "" {
		return 0
	}
	// Trailing blanks were trimmed from text; the last rune's column is
	// the display width of the trimmed text minus one.
	w := 0
	for _, r := range text {
		w += max(term.RuneWidth(r), 1)
	}
	return max(w-1, 0)
}

// search moves the cursor to the next literal, case-sensitive match of
// the pattern. back reverses the direction for this jump only.
// wrap-search controls wrap-around at the ends.
func (c *CopyMode) search(back bool) {
	if c.pattern == "" {
		return
	}
	total := c.TotalRows()
	if total == 0 {
		return
	}

	if !back {
		// Rest of the cursor row, after the cursor.
		if col, ok := findFrom(c.LineText(c.CursorRow), c.pattern, c.CursorCol+1); ok {
			c.moveToMatch(c.CursorRow, col)
			return
		}
		for row := c.CursorRow + 1; row < total; row++ {
			if col := strings.Index(c.LineText(row), c.pattern); col >= 0 {
				c.moveToMatch(row, col)
				return
			}
		}
		if !c.wrapSearch {
			return
		}
		for row := 0; row <= c.CursorRow; row++ {
			if col := strings.Index(c.LineText(row), c.pattern); col >= 0 {
				c.moveToMatch(row, col)
				return
			}
		}
		return
	}

	// Backward: the cursor row before the cursor, then up.
	if col, ok := rfindBefore(c.LineText(c.CursorRow), c.pattern, c.CursorCol); ok {
		c.moveToMatch(c.CursorRow, col)
		return
	}
	for row := c.CursorRow - 1; row >= 0; row-- {
		if col := strings.LastIndex(c.LineText(row), c.pattern); col >= 0 {
			c.moveToMatch(row, col)
			return
		}
	}
	if !c.wrapSearch {
		return
	}
	for row := total - 1; row >= c.CursorRow; row-- {
		if col := strings.LastIndex(c.LineText(row), c.pattern); col >= 0 {
			c.moveToMatch(row, col)
			return
		}
	}
}

func findFrom(text, pattern string, from int) (int, bool) {
	if from >= len(text) {
		return 0, false
	}
	if idx := strings.Index(text[from:], pattern); idx >= 0 {
		return from + idx, true
	}
	return 0, false
}

func rfindBefore(text, pattern string, before int) (int, bool) {
	if before > len(text) {
		before = len(text)
	}
	if before <= 0 {
		return 0, false
	}
	if idx := strings.LastIndex(text[:before], pattern); idx >= 0 {
		return idx, true
	}
	return 0, false
}

func (c *CopyMode) moveToMatch(row, col int) {
	c.CursorRow = row
	c.CursorCol = col
	c.ensureVisible()
}

// extractSelection walks the selected cells in row order: continuation
// cells are skipped, trailing blanks on each line are trimmed, and lines
// join with newlines.
func (c *CopyMode) extractSelection() string {
	sr, sc, er, ec := c.selectionBounds()
	var lines []string
	for row := sr; row <= er; row++ {
		cells := c.Line(row)
		startCol, endCol := 0, len(cells)-1
		if !c.lineMode {
			if row == sr {
				startCol = sc
			}
			if row == er {
				endCol = ec
			}
		}
		var b strings.Builder
		for col := startCol; col <= endCol && col < len(cells); col++ {
			cell := cells[col]
			if cell.Width == 0 {
				continue // wide-glyph continuation
			}
			if cell.Rune == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(cell.Rune)
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(lines, "\n")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
