package server

import (
	"time"

	"github.com/blackwitch/wtmux/internal/term"
)

// clockGlyphs renders HH:MM in a 5-row block font, one string per row
// per glyph. Rows are drawn with full-block cells.
var clockGlyphs = map[rune][5]string{
	'0': {"###", "# #", "# #", "# #", "###"},
	'1': {"  #", "  #", "  #", "  #", "  #"},
	'2': {"###", "  #", "###", "#  ", "###"},
	'3': {"###", "  #", "###", "  #", "###"},
	'4': {"# #", "# #", "###", "  #", "  #"},
	'5': {"###", "#  ", "###", "  #", "###"},
	'6': {"###", "#  ", "###", "# #", "###"},
	'7': {"###", "  #", "  #", "  #", "  #"},
	'8': {"###", "# #", "###", "# #", "###"},
	'9': {"###", "# #", "###", "  #", "###"},
	':': {"   ", " # ", "   ", " # ", "   "},
}

// ComposeClock builds the clock-mode frame: the current time drawn in
// block digits centered over a blank window, with the status bar kept.
func (r *Renderer) ComposeClock(sess *Session, cols, rows int, now time.Time) *Frame {
	f := NewFrame(cols, rows)

	text := now.Format("15:04")
	glyphW := 4 // 3 cells plus a gap
	totalW := len(text)*glyphW - 1
	startX := max((cols-totalW)/2, 0)
	startY := max((rows-5)/2, 0)

	style := term.DefaultStyle().WithFG(term.ColorIndexed(2))
	for i, ch := range text {
		glyph, ok := clockGlyphs[ch]
		if !ok {
			continue
		}
		for row := 0; row < 5; row++ {
			for col, c := range glyph[row] {
				if c == '#' {
					f.setCell(startX+i*glyphW+col, startY+row, term.NewStyledCell('█', style))
				}
			}
		}
	}

	if r.opts.Status && rows > 0 {
		f.setRow(rows-1, statusLine(sess, r.opts, cols, now))
	}
	f.cursorVisible = false
	return f
}
