package key

import "testing"

func TestParseChordNames(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
	}{
		{"b", RuneChord('b')},
		{"%", RuneChord('%')},
		{"C-b", Ctrl('b')},
		{"C-B", Ctrl('b')},
		{"M-x", Alt('x')},
		{"C-M-a", Chord{Code: CodeRune, Rune: 'a', Modifiers: ModCtrl | ModAlt}},
		{"Up", Special(CodeUp)},
		{"PgUp", Special(CodePageUp)},
		{"PPage", Special(CodePageUp)},
		{"Space", RuneChord(' ')},
		{"Enter", Special(CodeEnter)},
		{"Escape", Special(CodeEscape)},
		{"F5", Special(CodeF5)},
		{"f12", Special(CodeF12)},
		{"S-F1", Chord{Code: CodeF1, Modifiers: ModShift}},
		{"C-Up", Chord{Code: CodeUp, Modifiers: ModCtrl}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "NotAKey", "F99", "C-"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestChordString(t *testing.T) {
	tests := []struct {
		in   Chord
		want string
	}{
		{Ctrl('b'), "C-b"},
		{Alt('x'), "M-x"},
		{RuneChord(' '), "Space"},
		{Special(CodeUp), "Up"},
		{Special(CodeF3), "F3"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStringRoundTrip(t *testing.T) {
	for _, name := range []string{"C-b", "M-x", "Space", "Up", "F5", "%"} {
		c := MustParse(name)
		back, err := Parse(c.String())
		if err != nil {
			t.Errorf("reparse %q: %v", c.String(), err)
			continue
		}
		if back != c {
			t.Errorf("round trip %q: %+v != %+v", name, back, c)
		}
	}
}

func decodeAll(t *testing.T, data []byte) []Event {
	t.Helper()
	var d Decoder
	d.Put(data)
	var evs []Event
	for {
		ev, ok := d.Next()
		if !ok {
			ev, ok = d.Flush()
			if !ok {
				break
			}
		}
		evs = append(evs, ev)
	}
	return evs
}

func TestDecodePlainText(t *testing.T) {
	evs := decodeAll(t, []byte("ab"))
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Chord != RuneChord('a') || evs[1].Chord != RuneChord('b') {
		t.Errorf("chords = %v, %v", evs[0].Chord, evs[1].Chord)
	}
	if string(evs[0].Raw) != "a" {
		t.Errorf("raw = %q, want \"a\"", evs[0].Raw)
	}
}

func TestDecodeControlBytes(t *testing.T) {
	evs := decodeAll(t, []byte{0x02, 0x0D, 0x09, 0x7F})
	want := []Chord{Ctrl('b'), Special(CodeEnter), Special(CodeTab), Special(CodeBackspace)}
	if len(evs) != len(want) {
		t.Fatalf("got %d events, want %d", len(evs), len(want))
	}
	for i, w := range want {
		if evs[i].Chord != w {
			t.Errorf("event %d = %v, want %v", i, evs[i].Chord, w)
		}
	}
}

func TestDecodeArrowKeys(t *testing.T) {
	evs := decodeAll(t, []byte("\x1b[A\x1b[B\x1bOC\x1b[D"))
	want := []Code{CodeUp, CodeDown, CodeRight, CodeLeft}
	if len(evs) != len(want) {
		t.Fatalf("got %d events, want %d", len(evs), len(want))
	}
	for i, w := range want {
		if evs[i].Chord.Code != w {
			t.Errorf("event %d code = %v, want %v", i, evs[i].Chord.Code, w)
		}
	}
}

func TestDecodeTildeKeys(t *testing.T) {
	evs := decodeAll(t, []byte("\x1b[5~\x1b[6~\x1b[3~"))
	want := []Code{CodePageUp, CodePageDown, CodeDelete}
	if len(evs) != len(want) {
		t.Fatalf("got %d events, want %d", len(evs), len(want))
	}
	for i, w := range want {
		if evs[i].Chord.Code != w {
			t.Errorf("event %d code = %v, want %v", i, evs[i].Chord.Code, w)
		}
	}
}

func TestDecodeModifiedArrow(t *testing.T) {
	evs := decodeAll(t, []byte("\x1b[1;5A"))
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	want := Chord{Code: CodeUp, Modifiers: ModCtrl}
	if evs[0].Chord != want {
		t.Errorf("chord = %+v, want %+v", evs[0].Chord, want)
	}
}

func TestDecodeAltKey(t *testing.T) {
	evs := decodeAll(t, []byte("\x1bx"))
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if evs[0].Chord != Alt('x') {
		t.Errorf("chord = %+v, want M-x", evs[0].Chord)
	}
}

func TestDecodeLoneEscapeOnFlush(t *testing.T) {
	var d Decoder
	d.Put([]byte{0x1B})
	if _, ok := d.Next(); ok {
		t.Fatal("lone ESC should not decode without flush")
	}
	ev, ok := d.Flush()
	if !ok || ev.Chord != Special(CodeEscape) {
		t.Errorf("flush = %+v (%v), want Escape", ev.Chord, ok)
	}
}

func TestDecodeSplitSequence(t *testing.T) {
	var d Decoder
	d.Put([]byte("\x1b["))
	if _, ok := d.Next(); ok {
		t.Fatal("incomplete CSI should not decode")
	}
	d.Put([]byte("A"))
	ev, ok := d.Next()
	if !ok || ev.Chord.Code != CodeUp {
		t.Errorf("split sequence = %+v (%v), want Up", ev.Chord, ok)
	}
}

func TestDecodeUTF8(t *testing.T) {
	evs := decodeAll(t, []byte("é"))
	if len(evs) != 1 || evs[0].Chord != RuneChord('é') {
		t.Fatalf("events = %+v, want single é", evs)
	}
}

func TestDecodeSGRMouse(t *testing.T) {
	evs := decodeAll(t, []byte("\x1b[<0;10;5M"))
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Kind != EventMouse || ev.Button != MouseLeft || ev.Col != 9 || ev.Row != 4 || ev.Release {
		t.Errorf("mouse event = %+v", ev)
	}
}

func TestDecodeMouseWheel(t *testing.T) {
	evs := decodeAll(t, []byte("\x1b[<64;1;1M\x1b[<65;1;1M"))
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Button != MouseWheelUp || evs[1].Button != MouseWheelDown {
		t.Errorf("wheel buttons = %v, %v", evs[0].Button, evs[1].Button)
	}
}
