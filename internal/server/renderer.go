package server

import (
	"fmt"
	"time"

	"github.com/blackwitch/wtmux/internal/config"
	"github.com/blackwitch/wtmux/internal/layout"
	"github.com/blackwitch/wtmux/internal/term"
)

// Frame is one composed screen for a client: a cell matrix plus the final
// cursor placement. Frames are diffed against the client's previous frame
// to emit minimal terminal updates.
type Frame struct {
	cols, rows int
	cells      [][]term.Cell

	cursorCol     int
	cursorRow     int
	cursorVisible bool
}

// NewFrame creates a blank frame.
func NewFrame(cols, rows int) *Frame {
	f := &Frame{cols: cols, rows: rows}
	f.cells = make([][]term.Cell, rows)
	for y := range f.cells {
		row := make([]term.Cell, cols)
		for x := range row {
			row[x] = term.EmptyCell()
		}
		f.cells[y] = row
	}
	return f
}

// Cell returns a frame cell; out of bounds yields a blank.
func (f *Frame) Cell(col, row int) term.Cell {
	if col < 0 || col >= f.cols || row < 0 || row >= f.rows {
		return term.EmptyCell()
	}
	return f.cells[row][col]
}

func (f *Frame) setCell(col, row int, c term.Cell) {
	if col < 0 || col >= f.cols || row < 0 || row >= f.rows {
		return
	}
	f.cells[row][col] = c
}

func (f *Frame) setRow(row int, cells []term.Cell) {
	for x := 0; x < f.cols && x < len(cells); x++ {
		f.cells[row][x] = cells[x]
	}
}

// Equal reports whether two frames are cell-for-cell identical with the
// same cursor placement.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || f.cols != other.cols || f.rows != other.rows {
		return false
	}
	if f.cursorCol != other.cursorCol || f.cursorRow != other.cursorRow ||
		f.cursorVisible != other.cursorVisible {
		return false
	}
	for y := range f.cells {
		for x := range f.cells[y] {
			if f.cells[y][x] != other.cells[y][x] {
				return false
			}
		}
	}
	return true
}

// Text returns the visible text of a frame row, for tests.
func (f *Frame) Text(row int) string {
	if row < 0 || row >= f.rows {
		return ""
	}
	return term.LineText(f.cells[row])
}

// Renderer composes frames for attached clients.
type Renderer struct {
	opts *config.Options
}

// NewRenderer creates a renderer reading styles and status formats from
// the option map.
func NewRenderer(opts *config.Options) *Renderer {
	return &Renderer{opts: opts}
}

// overlayState carries the per-client bits that alter the composed frame.
type overlayState struct {
	prompt       string
	promptOpen   bool
	message      string
	messageShown bool
}

// Compose builds the full frame for a client viewing a session.
func (r *Renderer) Compose(sess *Session, cols, rows int, overlay overlayState, now time.Time) *Frame {
	f := NewFrame(cols, rows)
	win := sess.ActiveWindow()
	rects := win.Rects()

	r.drawBorders(f, win, rects)

	for id, rect := range rects {
		pane, ok := win.Pane(id)
		if !ok {
			continue
		}
		if pane.CopyMode != nil && id == win.ActivePaneID() {
			r.drawCopyPane(f, pane, rect)
		} else {
			drawLivePane(f, pane, rect)
		}
	}

	if r.opts.Status && rows > 0 {
		f.setRow(rows-1, statusLine(sess, r.opts, cols, now))
	}
	switch {
	case overlay.promptOpen && rows > 0:
		cells, cursor := promptLine(overlay.prompt, r.opts, cols)
		f.setRow(rows-1, cells)
		f.cursorCol = cursor
		f.cursorRow = rows - 1
		f.cursorVisible = true
		return f
	case overlay.messageShown && rows > 0:
		f.setRow(rows-1, messageLine(overlay.message, r.opts, cols))
	}

	r.placeCursor(f, win, rects)
	return f
}

func (r *Renderer) placeCursor(f *Frame, win *Window, rects map[layout.PaneID]layout.Rect) {
	pane := win.ActivePane()
	rect, ok := rects[win.ActivePaneID()]
	if !ok || pane == nil {
		f.cursorVisible = false
		return
	}
	if cm := pane.CopyMode; cm != nil {
		col := cm.CursorCol
		row := cm.CursorRow - cm.Top
		if row >= 0 && row < rect.H && col < rect.W {
			f.cursorCol = rect.X + col
			f.cursorRow = rect.Y + row
			f.cursorVisible = true
		} else {
			f.cursorVisible = false
		}
		return
	}
	col, row, visible := pane.Emulator().Cursor()
	if col >= rect.W || row >= rect.H {
		f.cursorVisible = false
		return
	}
	f.cursorCol = rect.X + col
	f.cursorRow = rect.Y + row
	f.cursorVisible = visible
}

// drawLivePane copies a pane's visible grid into its window rectangle.
func drawLivePane(f *Frame, pane *Pane, rect layout.Rect) {
	grid := pane.Emulator().Grid()
	for y := 0; y < rect.H && y < grid.Rows(); y++ {
		for x := 0; x < rect.W && x < grid.Cols(); x++ {
			f.setCell(rect.X+x, rect.Y+y, grid.Cell(x, y))
		}
	}
}

// drawCopyPane renders a pane from its copy-mode viewport, highlighting
// the selection with reverse video and placing the position indicator in
// the pane's top-right corner.
func (r *Renderer) drawCopyPane(f *Frame, pane *Pane, rect layout.Rect) {
	cm := pane.CopyMode
	for y := 0; y < rect.H; y++ {
		row := cm.Top + y
		cells := cm.Line(row)
		for x := 0; x < rect.W; x++ {
			cell := term.EmptyCell()
			if x < len(cells) {
				cell = cells[x]
			}
			if cm.InSelection(row, x) {
				cell.Style = cell.Style.Reverse()
			}
			f.setCell(rect.X+x, rect.Y+y, cell)
		}
	}

	indicator := fmt.Sprintf("[copy] %d/%d", cm.Top, cm.emu.Scrollback().Len())
	if cm.SearchActive() {
		indicator = cm.SearchPrompt()
	}
	style := term.DefaultStyle().WithFG(term.ColorIndexed(0)).WithBG(term.ColorIndexed(3))
	startX := rect.X + rect.W - len(indicator)
	for i, ch := range indicator {
		f.setCell(startX+i, rect.Y, term.NewStyledCell(ch, style))
	}
}

// drawBorders paints the 1-cell gaps between panes with line-drawing
// glyphs. Borders adjacent to the active pane use the active style.
func (r *Renderer) drawBorders(f *Frame, win *Window, rects map[layout.PaneID]layout.Rect) {
	if win.Zoomed() != 0 || len(rects) < 2 {
		return
	}
	normal, err := config.ParseStyle(r.opts.PaneBorderStyle)
	if err != nil {
		normal = term.DefaultStyle()
	}
	active, err := config.ParseStyle(r.opts.PaneActiveBorderStyle)
	if err != nil {
		active = term.DefaultStyle()
	}

	area := win.Area()
	activeID := win.ActivePaneID()

	draw := func(id layout.PaneID, rect layout.Rect) {
		style := normal
		if id == activeID {
			style = active
		}
		if right := rect.Right(); right < area.X+area.W {
			for y := rect.Y; y < rect.Bottom(); y++ {
				f.setCell(right, y, term.NewStyledCell('│', style))
			}
		}
		if bottom := rect.Bottom(); bottom < area.Y+area.H {
			for x := rect.X; x < rect.Right(); x++ {
				cell := f.Cell(x, bottom)
				glyph := '─'
				if cell.Rune == '│' {
					glyph = '┼'
				}
				f.setCell(x, bottom, term.NewStyledCell(glyph, style))
			}
		}
	}

	// Active pane drawn last so its border style wins on shared edges.
	for id, rect := range rects {
		if id != activeID {
			draw(id, rect)
		}
	}
	if rect, ok := rects[activeID]; ok {
		draw(activeID, rect)
	}
}

// Encode produces the terminal byte stream updating prev to next. A nil
// or mismatched prev forces a full redraw. The cursor is positioned and
// its visibility set last.
func Encode(prev, next *Frame) []byte {
	var out []byte
	out = append(out, "\x1b[?25l"...) // hide cursor during update

	full := prev == nil || prev.cols != next.cols || prev.rows != next.rows
	if full {
		out = append(out, "\x1b[2J"...)
	}

	last := term.DefaultStyle()
	styled := false
	for y := 0; y < next.rows; y++ {
		x := 0
		for x < next.cols {
			cell := next.cells[y][x]
			if cell.Width == 0 {
				x++
				continue
			}
			if !full && cell == prev.Cell(x, y) {
				x++
				continue
			}
			// Start of a run: position the cursor, then emit until the
			// run goes clean.
			out = append(out, fmt.Sprintf("\x1b[%d;%dH", y+1, x+1)...)
			for x < next.cols {
				cell = next.cells[y][x]
				if cell.Width == 0 {
					x++
					continue
				}
				if !full && cell == prev.Cell(x, y) {
					break
				}
				if !styled || cell.Style != last {
					out = appendSGR(out, cell.Style)
					last = cell.Style
					styled = true
				}
				r := cell.Rune
				if r == 0 {
					r = ' '
				}
				out = append(out, string(r)...)
				x += max(cell.Width, 1)
			}
		}
	}

	out = append(out, "\x1b[0m"...)
	out = append(out, fmt.Sprintf("\x1b[%d;%dH", next.cursorRow+1, next.cursorCol+1)...)
	if next.cursorVisible {
		out = append(out, "\x1b[?25h"...)
	}
	return out
}

// appendSGR emits a reset followed by the style's attributes and colors.
func appendSGR(out []byte, s term.Style) []byte {
	out = append(out, "\x1b[0"...)
	if s.Attrs.Has(term.AttrBold) {
		out = append(out, ";1"...)
	}
	if s.Attrs.Has(term.AttrDim) {
		out = append(out, ";2"...)
	}
	if s.Attrs.Has(term.AttrItalic) {
		out = append(out, ";3"...)
	}
	if s.Attrs.Has(term.AttrUnderline) {
		out = append(out, ";4"...)
	}
	if s.Attrs.Has(term.AttrBlink) {
		out = append(out, ";5"...)
	}
	if s.Attrs.Has(term.AttrReverse) {
		out = append(out, ";7"...)
	}
	if s.Attrs.Has(term.AttrHidden) {
		out = append(out, ";8"...)
	}
	if s.Attrs.Has(term.AttrStrike) {
		out = append(out, ";9"...)
	}
	out = appendColor(out, s.FG, true)
	out = appendColor(out, s.BG, false)
	return append(out, 'm')
}

func appendColor(out []byte, c term.Color, fg bool) []byte {
	switch c.Mode {
	case term.ColorModeDefault:
		return out
	case term.ColorModeIndexed:
		n := int(c.Index)
		switch {
		case n < 8 && fg:
			return append(out, fmt.Sprintf(";%d", 30+n)...)
		case n < 8:
			return append(out, fmt.Sprintf(";%d", 40+n)...)
		case n < 16 && fg:
			return append(out, fmt.Sprintf(";%d", 90+n-8)...)
		case n < 16:
			return append(out, fmt.Sprintf(";%d", 100+n-8)...)
		case fg:
			return append(out, fmt.Sprintf(";38;5;%d", n)...)
		default:
			return append(out, fmt.Sprintf(";48;5;%d", n)...)
		}
	default: // RGB
		if fg {
			return append(out, fmt.Sprintf(";38;2;%d;%d;%d", c.R, c.G, c.B)...)
		}
		return append(out, fmt.Sprintf(";48;2;%d;%d;%d", c.R, c.G, c.B)...)
	}
}
