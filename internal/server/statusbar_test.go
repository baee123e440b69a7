package server

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwitch/wtmux/internal/config"
	"github.com/blackwitch/wtmux/internal/term"
)

func TestExpandFormat(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 5, 0, 0, time.Local)
	tests := []struct {
		format string
		want   string
	}{
		{"[#{session_name}] ", "[work] "},
		{"%H:%M", "09:05"},
		{"%Y-%m-%d", "2024-03-07"},
		{"%q stays", "%q stays"},
		{"plain", "plain"},
		{"#{session_name} %H", "work 09"},
	}
	for _, tt := range tests {
		if got := ExpandFormat(tt.format, "work", at); got != tt.want {
			t.Errorf("ExpandFormat(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestStatusLineSegments(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	at := time.Date(2024, 3, 7, 9, 5, 0, 0, time.Local)

	cells := statusLine(c.session, s.opts, 80, at)
	text := term.LineText(cells)

	if !strings.HasPrefix(text, "[0] ") {
		t.Errorf("status %q missing left segment", text)
	}
	if !strings.Contains(text, "*") {
		t.Errorf("status %q missing active window flag", text)
	}
	if !strings.HasSuffix(text, "09:05 2024-03-07") {
		t.Errorf("status %q missing right segment", text)
	}
}

func TestStatusLineStyle(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)

	cells := statusLine(c.session, s.opts, 80, time.Now())
	want, err := config.ParseStyle(s.opts.StatusStyle)
	if err != nil {
		t.Fatalf("parse style: %v", err)
	}
	if cells[0].Style.FG != want.FG || cells[0].Style.BG != want.BG {
		t.Errorf("status cell style = %+v, want %+v", cells[0].Style, want)
	}
}

func TestStatusLineActiveWindowReversed(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	at := time.Now()

	cells := statusLine(c.session, s.opts, 80, at)
	// Find the window-list entry (after "[0] ").
	idx := len("[0] ")
	if !cells[idx].Style.Attrs.Has(term.AttrReverse) {
		t.Error("active window entry should be reverse video")
	}
}

func TestStatusLineTruncatesAtWidth(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)

	cells := statusLine(c.session, s.opts, 10, time.Now())
	if len(cells) != 10 {
		t.Errorf("status row length = %d, want 10", len(cells))
	}
}

func TestMessageLineReversed(t *testing.T) {
	s, _ := newTestServer(t)
	cells := messageLine("oops", s.opts, 40)
	if !cells[0].Style.Attrs.Has(term.AttrReverse) {
		t.Error("message overlay should be reverse video")
	}
	if got := term.LineText(cells); got != "oops" {
		t.Errorf("message text = %q", got)
	}
}

func TestPromptLineCursor(t *testing.T) {
	s, _ := newTestServer(t)
	cells, cursor := promptLine("new-w", s.opts, 40)
	if got := term.LineText(cells); got != ":new-w" {
		t.Errorf("prompt text = %q", got)
	}
	if cursor != len(":new-w") {
		t.Errorf("cursor = %d, want %d", cursor, len(":new-w"))
	}
}
