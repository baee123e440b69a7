package term

import (
	"strings"
	"testing"
)

func feed(t *testing.T, e *Emulator, s string) {
	t.Helper()
	e.Feed([]byte(s))
}

func TestPrintSimpleText(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "Hello")

	if got := e.Grid().Cell(0, 0).Rune; got != 'H' {
		t.Errorf("cell (0,0) = %q, want 'H'", got)
	}
	if got := e.Grid().Cell(4, 0).Rune; got != 'o' {
		t.Errorf("cell (4,0) = %q, want 'o'", got)
	}
	col, row, _ := e.Cursor()
	if col != 5 || row != 0 {
		t.Errorf("cursor = (%d,%d), want (5,0)", col, row)
	}
}

func TestCarriageReturnLineFeed(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "Hello\r\nWorld")

	if got := e.Grid().RowText(0); got != "Hello" {
		t.Errorf("row 0 = %q, want \"Hello\"", got)
	}
	if got := e.Grid().RowText(1); got != "World" {
		t.Errorf("row 1 = %q, want \"World\"", got)
	}
}

func TestCursorPosition(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[5;10H")
	col, row, _ := e.Cursor()
	if col != 9 || row != 4 {
		t.Errorf("cursor = (%d,%d), want (9,4)", col, row)
	}
}

func TestCursorMovement(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[10;10H\x1b[2A\x1b[3C\x1b[1B\x1b[4D")
	col, row, _ := e.Cursor()
	if col != 8 || row != 8 {
		t.Errorf("cursor = (%d,%d), want (8,8)", col, row)
	}
}

func TestClearScreen(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "Hello\x1b[2J")
	if got := e.Grid().Cell(0, 0).Rune; got != ' ' {
		t.Errorf("cell (0,0) = %q after ED 2, want blank", got)
	}
}

func TestEraseInLine(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "abcdef\x1b[1;4H\x1b[K")
	if got := e.Grid().RowText(0); got != "abc" {
		t.Errorf("row 0 = %q, want \"abc\"", got)
	}
}

func TestSGRBasicColors(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[31mR\x1b[0m\x1b[1;44mB")

	r := e.Grid().Cell(0, 0)
	if r.Style.FG != ColorIndexed(1) {
		t.Errorf("fg = %v, want colour1", r.Style.FG)
	}
	b := e.Grid().Cell(1, 0)
	if b.Style.BG != ColorIndexed(4) {
		t.Errorf("bg = %v, want colour4", b.Style.BG)
	}
	if !b.Style.Attrs.Has(AttrBold) {
		t.Error("expected bold attribute")
	}
}

func TestSGR256AndTruecolor(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[38;5;196mX\x1b[48;2;10;20;30mY")

	x := e.Grid().Cell(0, 0)
	if x.Style.FG != ColorIndexed(196) {
		t.Errorf("fg = %v, want colour196", x.Style.FG)
	}
	y := e.Grid().Cell(1, 0)
	if y.Style.BG != ColorRGB(10, 20, 30) {
		t.Errorf("bg = %v, want #0A141E", y.Style.BG)
	}
}

func TestBrightColors(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[91mX")
	if got := e.Grid().Cell(0, 0).Style.FG; got != ColorIndexed(9) {
		t.Errorf("fg = %v, want colour9", got)
	}
}

func TestWideCharacterPlacement(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "世界") // two CJK glyphs

	first := e.Grid().Cell(0, 0)
	if first.Rune != '世' || first.Width != 2 {
		t.Errorf("cell (0,0) = %+v, want wide U+4E16", first)
	}
	if !e.Grid().Cell(1, 0).IsContinuation() {
		t.Error("cell (1,0) should be a continuation cell")
	}
	col, _, _ := e.Cursor()
	if col != 4 {
		t.Errorf("cursor col = %d, want 4", col)
	}
}

func TestWideCharacterNeverStraddles(t *testing.T) {
	e := NewEmulator(10, 24, 100)
	feed(t, e, strings.Repeat("x", 9)) // cursor at last column
	feed(t, e, "世")

	// The wide glyph must land at the start of the next row, with the
	// last cell of row 0 left blank.
	if got := e.Grid().Cell(9, 0).Rune; got != ' ' {
		t.Errorf("cell (9,0) = %q, want blank filler", got)
	}
	got := e.Grid().Cell(0, 1)
	if got.Rune != '世' || got.Width != 2 {
		t.Errorf("cell (0,1) = %+v, want wide U+4E16", got)
	}
}

func TestAutoWrap(t *testing.T) {
	e := NewEmulator(10, 24, 100)
	feed(t, e, strings.Repeat("a", 10)+"b")

	if got := e.Grid().Cell(9, 0).Rune; got != 'a' {
		t.Errorf("cell (9,0) = %q, want 'a'", got)
	}
	if got := e.Grid().Cell(0, 1).Rune; got != 'b' {
		t.Errorf("cell (0,1) = %q, want 'b'", got)
	}
}

func TestAutoWrapDisabled(t *testing.T) {
	e := NewEmulator(10, 24, 100)
	feed(t, e, "\x1b[?7l"+strings.Repeat("a", 10)+"b")

	if got := e.Grid().Cell(9, 0).Rune; got != 'b' {
		t.Errorf("cell (9,0) = %q, want 'b' overwriting", got)
	}
	if got := e.Grid().Cell(0, 1).Rune; got != ' ' {
		t.Errorf("cell (0,1) = %q, want blank", got)
	}
}

func TestScrollbackRetires(t *testing.T) {
	e := NewEmulator(80, 3, 100)
	feed(t, e, "one\r\ntwo\r\nthree\r\nfour")

	if got := e.Scrollback().Len(); got != 1 {
		t.Fatalf("scrollback length = %d, want 1", got)
	}
	if got := LineText(e.Scrollback().Line(0)); got != "one" {
		t.Errorf("retired row = %q, want \"one\"", got)
	}
	if got := e.Grid().RowText(0); got != "two" {
		t.Errorf("row 0 = %q, want \"two\"", got)
	}
}

func TestScrollbackLimit(t *testing.T) {
	e := NewEmulator(80, 2, 3)
	for i := 0; i < 10; i++ {
		feed(t, e, "line\r\n")
	}
	if got := e.Scrollback().Len(); got != 3 {
		t.Errorf("scrollback length = %d, want 3", got)
	}
}

func TestAltScreenSwap(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "primary")
	feed(t, e, "\x1b[?1049h")
	if !e.AltScreen() {
		t.Fatal("expected alt screen active")
	}
	if got := e.Grid().RowText(0); got != "" {
		t.Errorf("alt screen row 0 = %q, want empty", got)
	}

	feed(t, e, "alt text")
	feed(t, e, "\x1b[?1049l")
	if e.AltScreen() {
		t.Fatal("expected primary screen active")
	}
	if got := e.Grid().RowText(0); got != "primary" {
		t.Errorf("primary row 0 = %q, want \"primary\"", got)
	}
	col, _, _ := e.Cursor()
	if col != 7 {
		t.Errorf("cursor col = %d after restore, want 7", col)
	}
}

func TestAltScreenNoScrollback(t *testing.T) {
	e := NewEmulator(80, 2, 100)
	feed(t, e, "\x1b[?1049h")
	for i := 0; i < 5; i++ {
		feed(t, e, "x\r\n")
	}
	if got := e.Scrollback().Len(); got != 0 {
		t.Errorf("scrollback length = %d while on alt screen, want 0", got)
	}
}

func TestScrollRegion(t *testing.T) {
	e := NewEmulator(80, 5, 100)
	feed(t, e, "\x1b[2;4r")                 // margins rows 2-4 (1-based)
	feed(t, e, "\x1b[1;1Htop")              // outside region
	feed(t, e, "\x1b[5;1Hbottom")           // outside region
	feed(t, e, "\x1b[2;1Ha\r\nb\r\nc\r\nd") // scrolls within region

	if got := e.Grid().RowText(0); got != "top" {
		t.Errorf("row 0 = %q, want \"top\" untouched", got)
	}
	if got := e.Grid().RowText(4); got != "bottom" {
		t.Errorf("row 4 = %q, want \"bottom\" untouched", got)
	}
	if got := e.Grid().RowText(1); got != "b" {
		t.Errorf("row 1 = %q, want \"b\" after region scroll", got)
	}
}

func TestInsertDeleteLines(t *testing.T) {
	e := NewEmulator(80, 4, 100)
	feed(t, e, "a\r\nb\r\nc\r\nd\x1b[1;1H\x1b[L")
	if got := e.Grid().RowText(0); got != "" {
		t.Errorf("row 0 = %q after IL, want blank", got)
	}
	if got := e.Grid().RowText(1); got != "a" {
		t.Errorf("row 1 = %q after IL, want \"a\"", got)
	}

	feed(t, e, "\x1b[M")
	if got := e.Grid().RowText(0); got != "a" {
		t.Errorf("row 0 = %q after DL, want \"a\"", got)
	}
}

func TestInsertDeleteChars(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "abcdef\x1b[1;2H\x1b[2@")
	if got := e.Grid().RowText(0); got != "a  bcdef" {
		t.Errorf("row 0 = %q after ICH, want \"a  bcdef\"", got)
	}
	feed(t, e, "\x1b[2P")
	if got := e.Grid().RowText(0); got != "abcdef" {
		t.Errorf("row 0 = %q after DCH, want \"abcdef\"", got)
	}
}

func TestTabStops(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\tx")
	col := 0
	for ; col < 80; col++ {
		if e.Grid().Cell(col, 0).Rune == 'x' {
			break
		}
	}
	if col != 8 {
		t.Errorf("tab landed at col %d, want 8", col)
	}

	// Clear all stops, set a custom one at column 3 via HTS.
	e2 := NewEmulator(80, 24, 100)
	feed(t, e2, "\x1b[3g\x1b[1;4H\x1bH\x1b[1;1H\ty")
	if got := e2.Grid().Cell(3, 0).Rune; got != 'y' {
		t.Errorf("custom tab stop not honored, cell (3,0) = %q", got)
	}
}

func TestLineDrawingCharset(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b(0qx\x1b(Bq")
	if got := e.Grid().Cell(0, 0).Rune; got != '─' {
		t.Errorf("cell (0,0) = %q, want '─'", got)
	}
	if got := e.Grid().Cell(1, 0).Rune; got != '│' {
		t.Errorf("cell (1,0) = %q, want '│'", got)
	}
	if got := e.Grid().Cell(2, 0).Rune; got != 'q' {
		t.Errorf("cell (2,0) = %q, want plain 'q' after ESC ( B", got)
	}
}

func TestShiftOutShiftIn(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b)0\x0eq\x0fq")
	if got := e.Grid().Cell(0, 0).Rune; got != '─' {
		t.Errorf("cell (0,0) = %q, want '─' via SO", got)
	}
	if got := e.Grid().Cell(1, 0).Rune; got != 'q' {
		t.Errorf("cell (1,0) = %q, want 'q' via SI", got)
	}
}

func TestTitleOSC(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b]2;my title\x07")
	if got := e.Title(); got != "my title" {
		t.Errorf("title = %q, want \"my title\"", got)
	}
	feed(t, e, "\x1b]0;other\x1b\\")
	if got := e.Title(); got != "other" {
		t.Errorf("title = %q, want \"other\"", got)
	}
}

func TestSaveRestoreCursor(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[5;5H\x1b7\x1b[1;1H\x1b8")
	col, row, _ := e.Cursor()
	if col != 4 || row != 4 {
		t.Errorf("cursor = (%d,%d) after DECRC, want (4,4)", col, row)
	}
}

func TestCursorVisibility(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[?25l")
	if _, _, visible := e.Cursor(); visible {
		t.Error("cursor should be hidden")
	}
	feed(t, e, "\x1b[?25h")
	if _, _, visible := e.Cursor(); !visible {
		t.Error("cursor should be visible")
	}
}

func TestBracketedPasteMode(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[?2004h")
	if !e.BracketedPaste() {
		t.Error("bracketed paste should be on")
	}
	feed(t, e, "\x1b[?2004l")
	if e.BracketedPaste() {
		t.Error("bracketed paste should be off")
	}
}

func TestMouseModes(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[?1002h")
	if e.Mouse() != MouseDrag {
		t.Errorf("mouse = %v, want MouseDrag", e.Mouse())
	}
	feed(t, e, "\x1b[?1002l")
	if e.Mouse() != MouseOff {
		t.Errorf("mouse = %v, want MouseOff", e.Mouse())
	}
}

func TestDeviceStatusReport(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[3;7H\x1b[6n")
	if got := string(e.TakeResponses()); got != "\x1b[3;7R" {
		t.Errorf("CPR = %q, want ESC[3;7R", got)
	}
	feed(t, e, "\x1b[c")
	if got := string(e.TakeResponses()); got != "\x1b[?1;2c" {
		t.Errorf("DA = %q", got)
	}
}

func TestMalformedSequencesRecover(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	// Incomplete CSI aborted by CAN, unknown CSI final, stray OSC,
	// then normal text must still print.
	feed(t, e, "\x1b[12\x18\x1b[999z\x1b]junk\x07ok")
	if got := e.Grid().RowText(0); got != "ok" {
		t.Errorf("row 0 = %q, want \"ok\"", got)
	}
}

func TestUnknownIntermediatesConsumed(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[1 qtext")
	if got := e.Grid().RowText(0); got != "text" {
		t.Errorf("row 0 = %q, want \"text\"", got)
	}
}

func TestInvalidUTF8Replaced(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	e.Feed([]byte{0xFF, 'a'})
	if got := e.Grid().Cell(0, 0).Rune; got != '�' {
		t.Errorf("cell (0,0) = %q, want U+FFFD", got)
	}
	if got := e.Grid().Cell(1, 0).Rune; got != 'a' {
		t.Errorf("cell (1,0) = %q, want 'a'", got)
	}
}

func TestUTF8SplitAcrossFeeds(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	raw := []byte("世")
	e.Feed(raw[:1])
	e.Feed(raw[1:])
	if got := e.Grid().Cell(0, 0).Rune; got != '世' {
		t.Errorf("cell (0,0) = %q, want U+4E16", got)
	}
}

func TestResizeRejectsZero(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	if err := e.Resize(0, 0); err == nil {
		t.Fatal("expected error resizing to (0,0)")
	}
	if err := e.Resize(80, 0); err == nil {
		t.Fatal("expected error resizing to zero rows")
	}
}

func TestResizePreservesContent(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "keep me")
	if err := e.Resize(40, 12); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if got := e.Grid().RowText(0); got != "keep me" {
		t.Errorf("row 0 = %q after shrink, want \"keep me\"", got)
	}
	if e.Cols() != 40 || e.Rows() != 12 {
		t.Errorf("size = %dx%d, want 40x12", e.Cols(), e.Rows())
	}
}

func TestResizeClampsCursor(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x1b[24;80H")
	if err := e.Resize(40, 12); err != nil {
		t.Fatalf("resize: %v", err)
	}
	col, row, _ := e.Cursor()
	if col != 39 || row != 11 {
		t.Errorf("cursor = (%d,%d) after shrink, want (39,11)", col, row)
	}
}

func TestBellCounted(t *testing.T) {
	e := NewEmulator(80, 24, 100)
	feed(t, e, "\x07")
	if !e.TakeBell() {
		t.Error("expected bell")
	}
	if e.TakeBell() {
		t.Error("bell should be consumed")
	}
}

func TestEraseDisplayScrollback(t *testing.T) {
	e := NewEmulator(80, 2, 100)
	feed(t, e, "a\r\nb\r\nc")
	if e.Scrollback().Len() == 0 {
		t.Fatal("expected scrollback content")
	}
	feed(t, e, "\x1b[3J")
	if got := e.Scrollback().Len(); got != 0 {
		t.Errorf("scrollback length = %d after ED 3, want 0", got)
	}
}

func TestReverseIndexScrollsDown(t *testing.T) {
	e := NewEmulator(80, 3, 100)
	feed(t, e, "a\r\nb\r\nc\x1b[1;1H\x1bM")
	if got := e.Grid().RowText(0); got != "" {
		t.Errorf("row 0 = %q after RI at top, want blank", got)
	}
	if got := e.Grid().RowText(1); got != "a" {
		t.Errorf("row 1 = %q after RI, want \"a\"", got)
	}
}

func TestOriginMode(t *testing.T) {
	e := NewEmulator(80, 10, 100)
	feed(t, e, "\x1b[3;8r\x1b[?6h\x1b[1;1HX")
	if got := e.Grid().Cell(0, 2).Rune; got != 'X' {
		t.Errorf("origin-mode home should be row 2, cell (0,2) = %q", got)
	}
}
