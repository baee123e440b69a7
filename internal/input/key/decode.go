package key

import (
	"unicode/utf8"
)

// EventKind distinguishes decoded input events.
type EventKind uint8

const (
	// EventKey is a keyboard chord.
	EventKey EventKind = iota
	// EventMouse is an SGR-encoded mouse report.
	EventMouse
)

// MouseButton identifies the button or wheel direction of a mouse event.
type MouseButton uint8

// Mouse buttons.
const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
)

// Event is one decoded input event: a key chord or a mouse report, along
// with the raw bytes that produced it so unconsumed input can be forwarded
// to the pane verbatim.
type Event struct {
	Kind  EventKind
	Chord Chord

	// Mouse fields, valid when Kind == EventMouse. Col and Row are
	// zero-based screen coordinates.
	Button  MouseButton
	Col     int
	Row     int
	Release bool

	// Raw holds the exact bytes this event was decoded from.
	Raw []byte
}

// Decoder converts a raw terminal input byte stream into chords and mouse
// events. Input may arrive split at arbitrary boundaries; incomplete
// escape sequences are buffered until Flush.
type Decoder struct {
	buf []byte
}

// Put appends raw input bytes to the decoder.
func (d *Decoder) Put(data []byte) {
	d.buf = append(d.buf, data...)
}

// Pending reports whether undecoded bytes remain buffered.
func (d *Decoder) Pending() bool {
	return len(d.buf) > 0
}

// Next decodes the next event. ok is false when the buffer is empty or
// holds only an incomplete escape sequence; call Flush at the end of an
// input chunk to resolve a trailing lone Escape.
func (d *Decoder) Next() (Event, bool) {
	return d.next(false)
}

// Flush decodes like Next but treats a trailing lone ESC as the Escape
// key rather than waiting for sequence bytes.
func (d *Decoder) Flush() (Event, bool) {
	return d.next(true)
}

func (d *Decoder) next(flush bool) (Event, bool) {
	if len(d.buf) == 0 {
		return Event{}, false
	}

	b := d.buf[0]
	if b == 0x1B {
		ev, n := d.decodeEscape(flush)
		if n == 0 {
			return Event{}, false
		}
		ev.Raw = d.take(n)
		return ev, true
	}

	ev, n := decodePlain(d.buf)
	if n == 0 {
		if !flush {
			return Event{}, false
		}
		// Unfinishable bytes (truncated UTF-8): drop one byte.
		d.take(1)
		return Event{}, false
	}
	ev.Raw = d.take(n)
	return ev, true
}

func (d *Decoder) take(n int) []byte {
	raw := make([]byte, n)
	copy(raw, d.buf[:n])
	d.buf = d.buf[n:]
	return raw
}

// decodePlain decodes a non-escape byte sequence: control bytes map to
// C-x chords, the rest are UTF-8 runes. Returns the consumed length, zero
// when a multibyte rune is incomplete.
func decodePlain(buf []byte) (Event, int) {
	b := buf[0]
	switch {
	case b == 0x0D:
		return Event{Chord: Special(CodeEnter)}, 1
	case b == 0x09:
		return Event{Chord: Special(CodeTab)}, 1
	case b == 0x7F || b == 0x08:
		return Event{Chord: Special(CodeBackspace)}, 1
	case b == 0x00:
		return Event{Chord: Chord{Code: CodeRune, Rune: ' ', Modifiers: ModCtrl}}, 1
	case b < 0x20:
		return Event{Chord: Ctrl(rune('a' + b - 1))}, 1
	case b < 0x80:
		return Event{Chord: RuneChord(rune(b))}, 1
	}
	if !utf8.FullRune(buf) {
		return Event{}, 0
	}
	r, size := utf8.DecodeRune(buf)
	return Event{Chord: RuneChord(r)}, size
}

// decodeEscape decodes an ESC-prefixed sequence starting at d.buf[0].
// Returns the consumed length; zero means the sequence is incomplete.
func (d *Decoder) decodeEscape(flush bool) (Event, int) {
	buf := d.buf
	if len(buf) == 1 {
		if flush {
			return Event{Chord: Special(CodeEscape)}, 1
		}
		return Event{}, 0
	}

	switch buf[1] {
	case '[':
		return decodeCSI(buf, flush)
	case 'O':
		if len(buf) < 3 {
			if flush {
				return Event{Chord: Special(CodeEscape)}, 1
			}
			return Event{}, 0
		}
		if code, ok := ss3Keys[buf[2]]; ok {
			return Event{Chord: Special(code)}, 3
		}
		return Event{Chord: Special(CodeEscape)}, 1
	case 0x1B:
		// ESC ESC: the first is the Escape key.
		return Event{Chord: Special(CodeEscape)}, 1
	default:
		// Alt-prefixed key: decode the remainder as a plain event and
		// add the modifier.
		ev, n := decodePlain(buf[1:])
		if n == 0 {
			if flush {
				return Event{Chord: Special(CodeEscape)}, 1
			}
			return Event{}, 0
		}
		ev.Chord.Modifiers |= ModAlt
		return ev, n + 1
	}
}

var ss3Keys = map[byte]Code{
	'A': CodeUp,
	'B': CodeDown,
	'C': CodeRight,
	'D': CodeLeft,
	'H': CodeHome,
	'F': CodeEnd,
	'P': CodeF1,
	'Q': CodeF2,
	'R': CodeF3,
	'S': CodeF4,
}

var csiFinalKeys = map[byte]Code{
	'A': CodeUp,
	'B': CodeDown,
	'C': CodeRight,
	'D': CodeLeft,
	'H': CodeHome,
	'F': CodeEnd,
	'Z': CodeTab, // back-tab arrives as S-Tab
}

var csiTildeKeys = map[int]Code{
	1:  CodeHome,
	2:  CodeInsert,
	3:  CodeDelete,
	4:  CodeEnd,
	5:  CodePageUp,
	6:  CodePageDown,
	11: CodeF1,
	12: CodeF2,
	13: CodeF3,
	14: CodeF4,
	15: CodeF5,
	17: CodeF6,
	18: CodeF7,
	19: CodeF8,
	20: CodeF9,
	21: CodeF10,
	23: CodeF11,
	24: CodeF12,
}

// decodeCSI decodes ESC [ sequences: cursor keys, tilde keys with optional
// xterm modifiers, and SGR mouse reports.
func decodeCSI(buf []byte, flush bool) (Event, int) {
	// Find the final byte (0x40-0x7E) after parameters.
	i := 2
	mouse := false
	if i < len(buf) && buf[i] == '<' {
		mouse = true
		i++
	}
	start := i
	for i < len(buf) && (buf[i] == ';' || (buf[i] >= '0' && buf[i] <= '9')) {
		i++
	}
	if i >= len(buf) {
		if flush {
			return Event{Chord: Special(CodeEscape)}, 1
		}
		return Event{}, 0
	}
	final := buf[i]
	length := i + 1

	params := splitParams(buf[start:i])

	if mouse {
		return decodeMouse(params, final, length)
	}

	mods := ModNone
	if len(params) >= 2 && params[1] > 0 {
		mods = xtermModifiers(params[1])
	}

	if final == '~' {
		if len(params) >= 1 {
			if code, ok := csiTildeKeys[params[0]]; ok {
				return Event{Chord: Chord{Code: code, Modifiers: mods}}, length
			}
		}
		return Event{Chord: Special(CodeEscape)}, 1
	}
	if code, ok := csiFinalKeys[final]; ok {
		if final == 'Z' {
			mods |= ModShift
		}
		return Event{Chord: Chord{Code: code, Modifiers: mods}}, length
	}
	// Unknown CSI input sequence: swallow it as Escape so garbage does
	// not leak into the pane as text.
	return Event{Chord: Special(CodeEscape)}, 1
}

func splitParams(b []byte) []int {
	if len(b) == 0 {
		return nil
	}
	var params []int
	cur := 0
	for _, c := range b {
		if c == ';' {
			params = append(params, cur)
			cur = 0
			continue
		}
		cur = cur*10 + int(c-'0')
	}
	return append(params, cur)
}

// xtermModifiers converts an xterm modifier parameter (value-1 bitmask:
// 1=Shift, 2=Alt, 4=Ctrl) into Modifier flags.
func xtermModifiers(p int) Modifier {
	bits := p - 1
	var mods Modifier
	if bits&1 != 0 {
		mods |= ModShift
	}
	if bits&2 != 0 {
		mods |= ModAlt
	}
	if bits&4 != 0 {
		mods |= ModCtrl
	}
	return mods
}

// decodeMouse interprets an SGR mouse report: ESC [ < b;x;y M/m.
func decodeMouse(params []int, final byte, length int) (Event, int) {
	if len(params) < 3 || (final != 'M' && final != 'm') {
		return Event{Chord: Special(CodeEscape)}, 1
	}
	ev := Event{
		Kind:    EventMouse,
		Col:     params[1] - 1,
		Row:     params[2] - 1,
		Release: final == 'm',
	}
	switch b := params[0]; {
	case b&64 != 0:
		if b&1 != 0 {
			ev.Button = MouseWheelDown
		} else {
			ev.Button = MouseWheelUp
		}
	case b&3 == 1:
		ev.Button = MouseMiddle
	case b&3 == 2:
		ev.Button = MouseRight
	default:
		ev.Button = MouseLeft
	}
	return ev, length
}
