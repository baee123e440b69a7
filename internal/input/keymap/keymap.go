// Package keymap holds the key-binding tables that map chords to command
// strings. Two tables exist: "prefix" is consulted for the chord after the
// prefix key, "root" for chords with no prefix.
package keymap

import (
	"fmt"
	"sort"

	"github.com/blackwitch/wtmux/internal/input/key"
)

// Table names.
const (
	TablePrefix = "prefix"
	TableRoot   = "root"
)

// Binding pairs a chord with the command string it runs.
type Binding struct {
	Chord   key.Chord
	Command string
}

// Table maps chords to command strings.
type Table struct {
	bindings map[key.Chord]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{bindings: make(map[key.Chord]string)}
}

// Bind installs or replaces a binding.
func (t *Table) Bind(c key.Chord, command string) {
	t.bindings[c] = command
}

// Unbind removes a binding if present.
func (t *Table) Unbind(c key.Chord) {
	delete(t.bindings, c)
}

// Lookup returns the command bound to a chord.
func (t *Table) Lookup(c key.Chord) (string, bool) {
	cmd, ok := t.bindings[c]
	return cmd, ok
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	return len(t.bindings)
}

// List returns all bindings sorted by chord name for stable display.
func (t *Table) List() []Binding {
	out := make([]Binding, 0, len(t.bindings))
	for c, cmd := range t.bindings {
		out = append(out, Binding{Chord: c, Command: cmd})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Chord.String() < out[j].Chord.String()
	})
	return out
}

// Keymap bundles the prefix and root tables.
type Keymap struct {
	Prefix *Table
	Root   *Table
}

// New creates a keymap with both tables empty.
func New() *Keymap {
	return &Keymap{Prefix: NewTable(), Root: NewTable()}
}

// TableByName resolves a table name.
func (k *Keymap) TableByName(name string) (*Table, error) {
	switch name {
	case TablePrefix:
		return k.Prefix, nil
	case TableRoot:
		return k.Root, nil
	default:
		return nil, fmt.Errorf("keymap: no table %q", name)
	}
}

// Default installs the stock tmux-compatible bindings in the prefix table.
func Default() *Keymap {
	k := New()
	p := k.Prefix

	// Splits.
	p.Bind(key.RuneChord('%'), "split-window -h")
	p.Bind(key.RuneChord('"'), "split-window -v")

	// Windows.
	p.Bind(key.RuneChord('c'), "new-window")
	p.Bind(key.RuneChord('d'), "detach-client")
	p.Bind(key.RuneChord('n'), "next-window")
	p.Bind(key.RuneChord('p'), "previous-window")
	p.Bind(key.RuneChord('l'), "last-window")
	p.Bind(key.RuneChord(','), "rename-window")
	p.Bind(key.RuneChord('$'), "rename-session")
	p.Bind(key.RuneChord('&'), "kill-window")
	p.Bind(key.RuneChord('x'), "kill-pane")

	// Window selection by number.
	for i := 0; i <= 9; i++ {
		p.Bind(key.RuneChord(rune('0'+i)), fmt.Sprintf("select-window -t %d", i))
	}

	// Pane navigation.
	p.Bind(key.Special(key.CodeUp), "select-pane -U")
	p.Bind(key.Special(key.CodeDown), "select-pane -D")
	p.Bind(key.Special(key.CodeLeft), "select-pane -L")
	p.Bind(key.Special(key.CodeRight), "select-pane -R")
	p.Bind(key.RuneChord('o'), "select-pane -t :.+")
	p.Bind(key.RuneChord(';'), "last-pane")

	// Pane resize.
	p.Bind(key.Chord{Code: key.CodeUp, Modifiers: key.ModCtrl}, "resize-pane -U 1")
	p.Bind(key.Chord{Code: key.CodeDown, Modifiers: key.ModCtrl}, "resize-pane -D 1")
	p.Bind(key.Chord{Code: key.CodeLeft, Modifiers: key.ModCtrl}, "resize-pane -L 1")
	p.Bind(key.Chord{Code: key.CodeRight, Modifiers: key.ModCtrl}, "resize-pane -R 1")

	// Zoom, swap, layouts.
	p.Bind(key.RuneChord('z'), "resize-pane -Z")
	p.Bind(key.RuneChord('{'), "swap-pane -U")
	p.Bind(key.RuneChord('}'), "swap-pane -D")
	p.Bind(key.RuneChord(' '), "next-layout")

	// Copy mode and buffers.
	p.Bind(key.RuneChord('['), "copy-mode")
	p.Bind(key.RuneChord(']'), "paste-buffer")
	p.Bind(key.Special(key.CodePageUp), "copy-mode -u")

	// Misc.
	p.Bind(key.RuneChord(':'), "command-prompt")
	p.Bind(key.RuneChord('t'), "clock-mode")
	p.Bind(key.RuneChord('?'), "list-keys")

	return k
}
