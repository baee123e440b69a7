package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/blackwitch/wtmux/internal/config"
	"github.com/blackwitch/wtmux/internal/term"
)

// ExpandFormat substitutes status-line format variables: #{session_name}
// and the strftime specifiers %H %M %Y %m %d against the given time.
// Unrecognized specifiers pass through literally.
func ExpandFormat(format, sessionName string, now time.Time) string {
	var b strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '#' && strings.HasPrefix(string(runes[i:]), "#{session_name}") {
			b.WriteString(sessionName)
			i += len("#{session_name}") - 1
			continue
		}
		if r == '%' && i+1 < len(runes) {
			switch runes[i+1] {
			case 'H':
				fmt.Fprintf(&b, "%02d", now.Hour())
			case 'M':
				fmt.Fprintf(&b, "%02d", now.Minute())
			case 'Y':
				fmt.Fprintf(&b, "%04d", now.Year())
			case 'm':
				fmt.Fprintf(&b, "%02d", int(now.Month()))
			case 'd':
				fmt.Fprintf(&b, "%02d", now.Day())
			default:
				b.WriteRune(r)
				b.WriteRune(runes[i+1])
			}
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// statusLine builds the status row: left segment, window list, and a
// right-aligned right segment, styled per status-style.
func statusLine(sess *Session, opts *config.Options, cols int, now time.Time) []term.Cell {
	style, err := config.ParseStyle(opts.StatusStyle)
	if err != nil {
		style = term.DefaultStyle()
	}

	cells := make([]term.Cell, cols)
	for i := range cells {
		cells[i] = term.NewStyledCell(' ', style)
	}

	pos := 0
	put := func(s string, st term.Style) {
		for _, r := range s {
			w := max(term.RuneWidth(r), 1)
			if pos+w > cols {
				return
			}
			cells[pos] = term.NewStyledCell(r, st)
			if w == 2 {
				cells[pos+1] = term.ContinuationCell(st)
			}
			pos += w
		}
	}

	put(ExpandFormat(opts.StatusLeft, sess.Name, now), style)

	active := sess.ActiveWindow()
	for _, w := range sess.Windows() {
		st := style
		flag := " "
		if w == active {
			st = style.Reverse()
			flag = "*"
			if w.Zoomed() != 0 {
				flag = "*Z"
			}
		}
		put(fmt.Sprintf("%d:%s%s", w.Index, w.Name, flag), st)
		put(" ", style)
	}

	right := ExpandFormat(opts.StatusRight, sess.Name, now)
	rightWidth := runewidth.StringWidth(right)
	start := cols - rightWidth
	if start > pos {
		pos = start
		put(right, style)
	}

	return cells
}

// messageLine builds a message overlay row: the status style with reverse
// video, per the error-surface convention.
func messageLine(text string, opts *config.Options, cols int) []term.Cell {
	style, err := config.ParseStyle(opts.StatusStyle)
	if err != nil {
		style = term.DefaultStyle()
	}
	style = style.Reverse()

	cells := make([]term.Cell, cols)
	for i := range cells {
		cells[i] = term.NewStyledCell(' ', style)
	}
	pos := 0
	for _, r := range text {
		w := max(term.RuneWidth(r), 1)
		if pos+w > cols {
			break
		}
		cells[pos] = term.NewStyledCell(r, style)
		if w == 2 {
			cells[pos+1] = term.ContinuationCell(style)
		}
		pos += w
	}
	return cells
}

// promptLine builds the ':' command-prompt overlay row. The returned
// cursor column trails the typed text.
func promptLine(buffer string, opts *config.Options, cols int) ([]term.Cell, int) {
	style, err := config.ParseStyle(opts.StatusStyle)
	if err != nil {
		style = term.DefaultStyle()
	}

	cells := make([]term.Cell, cols)
	for i := range cells {
		cells[i] = term.NewStyledCell(' ', style)
	}
	text := ":" + buffer
	pos := 0
	for _, r := range text {
		w := max(term.RuneWidth(r), 1)
		if pos+w > cols {
			break
		}
		cells[pos] = term.NewStyledCell(r, style)
		if w == 2 {
			cells[pos+1] = term.ContinuationCell(style)
		}
		pos += w
	}
	return cells, min(pos, cols-1)
}
