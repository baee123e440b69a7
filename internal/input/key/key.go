// Package key defines the chord model shared by the key tables, the
// server-side input decoder, and the config parser. Chord names use tmux
// notation: "C-b", "M-x", "F5", "Up", "Space", or a bare character.
package key

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Code identifies a keyboard key.
// For character keys, use CodeRune and set the Rune field on Chord.
type Code uint8

const (
	// CodeNone represents no key.
	CodeNone Code = iota

	// Special keys.
	CodeEscape
	CodeEnter
	CodeTab
	CodeBackspace
	CodeDelete
	CodeInsert
	CodeHome
	CodeEnd
	CodePageUp
	CodePageDown

	// Arrow keys.
	CodeUp
	CodeDown
	CodeLeft
	CodeRight

	// Function keys.
	CodeF1
	CodeF2
	CodeF3
	CodeF4
	CodeF5
	CodeF6
	CodeF7
	CodeF8
	CodeF9
	CodeF10
	CodeF11
	CodeF12

	// CodeRune is used for character keys; the character is in Chord.Rune.
	CodeRune
)

// IsFunction returns true for F1-F12.
func (c Code) IsFunction() bool {
	return c >= CodeF1 && c <= CodeF12
}

// String returns the canonical name for the code.
func (c Code) String() string {
	switch c {
	case CodeNone:
		return "None"
	case CodeEscape:
		return "Escape"
	case CodeEnter:
		return "Enter"
	case CodeTab:
		return "Tab"
	case CodeBackspace:
		return "BSpace"
	case CodeDelete:
		return "Delete"
	case CodeInsert:
		return "Insert"
	case CodeHome:
		return "Home"
	case CodeEnd:
		return "End"
	case CodePageUp:
		return "PageUp"
	case CodePageDown:
		return "PageDown"
	case CodeUp:
		return "Up"
	case CodeDown:
		return "Down"
	case CodeLeft:
		return "Left"
	case CodeRight:
		return "Right"
	case CodeRune:
		return "Rune"
	default:
		if c.IsFunction() {
			return fmt.Sprintf("F%d", int(c-CodeF1)+1)
		}
		return fmt.Sprintf("Code(%d)", c)
	}
}

// Modifier is a bitmask of modifier keys.
type Modifier uint8

// Modifier flags.
const (
	ModNone  Modifier = 0
	ModCtrl  Modifier = 1 << iota
	ModAlt            // written M- in tmux notation
	ModShift
)

// Has returns true if m contains the given modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// Chord is a single key press: a key code plus modifiers. Chords are
// comparable and usable as map keys.
type Chord struct {
	Code      Code
	Rune      rune
	Modifiers Modifier
}

// RuneChord creates a chord for a plain character.
func RuneChord(r rune) Chord {
	return Chord{Code: CodeRune, Rune: r}
}

// Ctrl creates a chord for a control combination like C-b.
func Ctrl(r rune) Chord {
	return Chord{Code: CodeRune, Rune: unicode.ToLower(r), Modifiers: ModCtrl}
}

// Alt creates a chord for an alt combination like M-x.
func Alt(r rune) Chord {
	return Chord{Code: CodeRune, Rune: r, Modifiers: ModAlt}
}

// Special creates a chord for a non-character key.
func Special(code Code) Chord {
	return Chord{Code: code}
}

// IsZero reports whether the chord is empty.
func (c Chord) IsZero() bool {
	return c.Code == CodeNone
}

// String renders the chord in tmux notation.
func (c Chord) String() string {
	var b strings.Builder
	if c.Modifiers.Has(ModCtrl) {
		b.WriteString("C-")
	}
	if c.Modifiers.Has(ModAlt) {
		b.WriteString("M-")
	}
	if c.Modifiers.Has(ModShift) && c.Code != CodeRune {
		b.WriteString("S-")
	}
	if c.Code == CodeRune {
		if c.Rune == ' ' {
			b.WriteString("Space")
		} else {
			b.WriteRune(c.Rune)
		}
	} else {
		b.WriteString(c.Code.String())
	}
	return b.String()
}

// codeNames maps lowercase key names to codes.
var codeNames = map[string]Code{
	"escape":   CodeEscape,
	"esc":      CodeEscape,
	"enter":    CodeEnter,
	"return":   CodeEnter,
	"tab":      CodeTab,
	"bspace":   CodeBackspace,
	"bs":       CodeBackspace,
	"delete":   CodeDelete,
	"dc":       CodeDelete,
	"insert":   CodeInsert,
	"ic":       CodeInsert,
	"home":     CodeHome,
	"end":      CodeEnd,
	"pageup":   CodePageUp,
	"pgup":     CodePageUp,
	"ppage":    CodePageUp,
	"pagedown": CodePageDown,
	"pgdn":     CodePageDown,
	"npage":    CodePageDown,
	"up":       CodeUp,
	"down":     CodeDown,
	"left":     CodeLeft,
	"right":    CodeRight,
}

// Parse converts a tmux-style chord name into a Chord. Accepted forms: a
// bare character ("b", "%"), modifier prefixes ("C-", "M-", "S-" in any
// order), special key names ("Up", "PgUp", "Space"), and function keys
// ("F1".."F12").
func Parse(s string) (Chord, error) {
	orig := s
	var mods Modifier
	for len(s) > 2 && s[1] == '-' {
		done := false
		switch s[0] {
		case 'C', 'c':
			mods |= ModCtrl
		case 'M', 'm':
			mods |= ModAlt
		case 'S', 's':
			mods |= ModShift
		default:
			done = true
		}
		if done {
			break
		}
		s = s[2:]
	}
	if s == "" {
		return Chord{}, fmt.Errorf("key: empty chord %q", orig)
	}

	lower := strings.ToLower(s)
	if code, ok := codeNames[lower]; ok {
		return Chord{Code: code, Modifiers: mods}, nil
	}
	if lower == "space" {
		return Chord{Code: CodeRune, Rune: ' ', Modifiers: mods}, nil
	}
	if len(lower) >= 2 && lower[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(lower[1:], "%d", &n); err == nil && n >= 1 && n <= 12 {
			return Chord{Code: CodeF1 + Code(n-1), Modifiers: mods}, nil
		}
	}
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if mods.Has(ModCtrl) {
			r = unicode.ToLower(r)
		}
		return Chord{Code: CodeRune, Rune: r, Modifiers: mods}, nil
	}
	return Chord{}, fmt.Errorf("key: unknown chord %q", orig)
}

// MustParse is Parse for known-good literals; it panics on error.
func MustParse(s string) Chord {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}
