package server

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwitch/wtmux/internal/term"
)

func composeFor(t *testing.T, s *Server, c *Client) *Frame {
	t.Helper()
	now := time.Now()
	return s.renderer.Compose(c.session, c.cols, c.rows, overlayState{
		prompt:       c.prompt,
		promptOpen:   c.promptOpen,
		message:      c.message,
		messageShown: c.messageActive(now),
	}, now)
}

func TestComposeBody(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.handlePaneOutput(activePane(c), []byte("pane text"))

	f := composeFor(t, s, c)
	if got := f.Text(0); got != "pane text" {
		t.Errorf("frame row 0 = %q, want \"pane text\"", got)
	}
}

func TestComposeStatusBar(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)

	f := composeFor(t, s, c)
	status := f.Text(c.rows - 1)
	if !strings.Contains(status, "[0]") {
		t.Errorf("status row %q missing session name", status)
	}
	if !strings.Contains(status, "0:") {
		t.Errorf("status row %q missing window list", status)
	}
}

func TestStatusOffFreesRow(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "set-option -g status off"); err != nil {
		t.Fatalf("set-option: %v", err)
	}

	// The window area now covers the full client height.
	if got := c.session.ActiveWindow().Area().H; got != c.rows {
		t.Errorf("window height = %d with status off, want %d", got, c.rows)
	}
}

func TestComposeBordersBetweenPanes(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "split-window -h"); err != nil {
		t.Fatalf("split: %v", err)
	}

	f := composeFor(t, s, c)
	if got := f.Cell(40, 5).Rune; got != '│' {
		t.Errorf("cell (40,5) = %q, want border '│'", got)
	}
}

func TestComposeZoomHidesBorders(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "split-window -h"); err != nil {
		t.Fatalf("split: %v", err)
	}
	s.handlePaneOutput(activePane(c), []byte("zoomed"))
	if err := s.Execute(c, "resize-pane -Z"); err != nil {
		t.Fatalf("zoom: %v", err)
	}

	f := composeFor(t, s, c)
	if got := f.Cell(40, 5).Rune; got == '│' {
		t.Error("borders drawn while zoomed")
	}
	if got := f.Text(0); got != "zoomed" {
		t.Errorf("zoomed pane row 0 = %q", got)
	}
	status := f.Text(c.rows - 1)
	if !strings.Contains(status, "*Z") {
		t.Errorf("status row %q missing zoom flag", status)
	}
}

func TestComposeMessageOverlay(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.showMessage(c, "something failed")

	f := composeFor(t, s, c)
	if got := f.Text(c.rows - 1); !strings.Contains(got, "something failed") {
		t.Errorf("overlay row = %q", got)
	}
}

func TestComposePromptOverlay(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	c.promptOpen = true
	c.prompt = "kill-pane"

	f := composeFor(t, s, c)
	if got := f.Text(c.rows - 1); !strings.HasPrefix(got, ":kill-pane") {
		t.Errorf("prompt row = %q", got)
	}
	if !f.cursorVisible || f.cursorRow != c.rows-1 {
		t.Error("cursor should sit on the prompt row")
	}
}

func TestComposeCopyModeIndicator(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.handlePaneOutput(activePane(c), []byte("visible"))
	if err := s.Execute(c, "copy-mode"); err != nil {
		t.Fatalf("copy-mode: %v", err)
	}

	f := composeFor(t, s, c)
	if got := f.Text(0); !strings.Contains(got, "[copy]") {
		t.Errorf("copy indicator missing from row 0: %q", got)
	}
}

func TestComposeCopyModeSelectionReversed(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	pane := activePane(c)
	s.handlePaneOutput(pane, []byte("select me"))
	if err := s.Execute(c, "copy-mode"); err != nil {
		t.Fatalf("copy-mode: %v", err)
	}
	cm := pane.CopyMode
	cm.CursorRow, cm.CursorCol = 0, 0
	typeKeys(s, c, " ")
	cm.CursorCol = 5

	f := composeFor(t, s, c)
	if !f.Cell(2, 0).Style.Attrs.Has(term.AttrReverse) {
		t.Error("selected cell should be reverse video")
	}
	if f.Cell(8, 0).Style.Attrs.Has(term.AttrReverse) {
		t.Error("unselected cell should not be reverse video")
	}
}

func TestEncodeFullRedraw(t *testing.T) {
	f := NewFrame(10, 3)
	f.setCell(0, 0, term.NewCell('h'))
	f.setCell(1, 0, term.NewCell('i'))

	out := string(Encode(nil, f))
	if !strings.HasPrefix(out, "\x1b[?25l") {
		t.Error("encode should hide the cursor first")
	}
	if !strings.Contains(out, "\x1b[2J") {
		t.Error("full redraw should clear the screen")
	}
	if !strings.Contains(out, "hi") {
		t.Errorf("output %q missing text", out)
	}
}

func TestEncodeDiffOnlyChanges(t *testing.T) {
	prev := NewFrame(10, 3)
	prev.setCell(0, 0, term.NewCell('a'))
	next := NewFrame(10, 3)
	next.setCell(0, 0, term.NewCell('a'))
	next.setCell(3, 1, term.NewCell('b'))

	out := string(Encode(prev, next))
	if strings.Contains(out, "\x1b[2J") {
		t.Error("diff update should not clear the screen")
	}
	if !strings.Contains(out, "\x1b[2;4H") {
		t.Errorf("output %q missing cursor move to the change", out)
	}
	if !strings.Contains(out, "b") {
		t.Errorf("output %q missing changed cell", out)
	}
	if strings.Contains(out[len("\x1b[?25l"):], "a") {
		t.Errorf("output %q re-sends unchanged cell", out)
	}
}

func TestEncodeCursorLast(t *testing.T) {
	f := NewFrame(10, 3)
	f.cursorCol, f.cursorRow, f.cursorVisible = 4, 2, true

	out := string(Encode(nil, f))
	if !strings.HasSuffix(out, "\x1b[3;5H\x1b[?25h") {
		t.Errorf("output %q should end with cursor placement and show", out)
	}
}

func TestEncodeHiddenCursorStaysHidden(t *testing.T) {
	f := NewFrame(10, 3)
	f.cursorVisible = false
	out := string(Encode(nil, f))
	if strings.Contains(out, "\x1b[?25h") {
		t.Error("hidden cursor must not be shown")
	}
}

func TestFrameEqual(t *testing.T) {
	a := NewFrame(5, 2)
	b := NewFrame(5, 2)
	if !a.Equal(b) {
		t.Error("blank frames should be equal")
	}
	b.setCell(1, 1, term.NewCell('x'))
	if a.Equal(b) {
		t.Error("differing frames reported equal")
	}
	c := NewFrame(6, 2)
	if a.Equal(c) {
		t.Error("different sizes reported equal")
	}
}

func TestRenderSkipsUnchangedFrame(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.RunOnce()
	first := c.lastFrame
	if first == nil {
		t.Fatal("no frame rendered")
	}
	s.RunOnce()
	if c.lastFrame != first {
		t.Error("unchanged view should not produce a new frame")
	}
}

func TestClockModeFrame(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "clock-mode"); err != nil {
		t.Fatalf("clock-mode: %v", err)
	}
	s.RunOnce()

	found := false
	for y := 0; y < c.rows; y++ {
		if strings.Contains(c.lastFrame.Text(y), "█") {
			found = true
			break
		}
	}
	if !found {
		t.Error("clock frame has no block digits")
	}

	// Any key exits clock mode.
	typeKeys(s, c, "x")
	if c.clockMode {
		t.Error("clock mode should exit on a keystroke")
	}
}

func TestMessageExpiresOnTick(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.showMessage(c, "stale")
	c.messageUntil = time.Now().Add(-time.Second)

	s.handleTick(time.Now())
	if c.message != "" {
		t.Error("expired message should clear on tick")
	}
}

func TestMessageClearsOnKeystroke(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.showMessage(c, "note")
	typeKeys(s, c, "x")
	if c.message != "" {
		t.Error("message should clear on next keystroke")
	}
}

func TestBellForwarded(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	s.handlePaneOutput(activePane(c), []byte("\x07"))
	// With a nil conn the send is a no-op; the bell must still be
	// consumed so it does not repeat.
	if activePane(c).Emulator().TakeBell() {
		t.Error("bell not consumed by the dispatcher")
	}
}
