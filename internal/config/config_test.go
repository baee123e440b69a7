package config

import (
	"reflect"
	"testing"

	"github.com/blackwitch/wtmux/internal/input/key"
	"github.com/blackwitch/wtmux/internal/term"
)

func TestDefaults(t *testing.T) {
	o := Default()
	if o.Prefix != key.Ctrl('b') {
		t.Errorf("prefix = %v, want C-b", o.Prefix)
	}
	if o.HistoryLimit != 2000 {
		t.Errorf("history-limit = %d, want 2000", o.HistoryLimit)
	}
	if o.EscapeTime != 500 {
		t.Errorf("escape-time = %d, want 500", o.EscapeTime)
	}
	if !o.Status {
		t.Error("status should default on")
	}
	if o.StatusLeft != "[#{session_name}] " {
		t.Errorf("status-left = %q", o.StatusLeft)
	}
	if o.StatusRight != " %H:%M %Y-%m-%d" {
		t.Errorf("status-right = %q", o.StatusRight)
	}
	if o.DisplayTime != 750 {
		t.Errorf("display-time = %d, want 750", o.DisplayTime)
	}
	if o.Mouse {
		t.Error("mouse should default off")
	}
	if o.BaseIndex != 0 {
		t.Errorf("base-index = %d, want 0", o.BaseIndex)
	}
	if o.DefaultTerminal != "xterm-256color" {
		t.Errorf("default-terminal = %q", o.DefaultTerminal)
	}
	if !o.AutomaticRename {
		t.Error("automatic-rename should default on")
	}
	if o.StatusInterval != 1 {
		t.Errorf("status-interval = %d, want 1", o.StatusInterval)
	}
	if o.PaneActiveBorderStyle != "fg=green" {
		t.Errorf("pane-active-border-style = %q", o.PaneActiveBorderStyle)
	}
}

func TestSetOptions(t *testing.T) {
	o := Default()

	if err := o.Set("prefix", "C-a"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}
	if o.Prefix != key.Ctrl('a') {
		t.Errorf("prefix = %v, want C-a", o.Prefix)
	}

	if err := o.Set("history-limit", "500"); err != nil {
		t.Fatalf("set history-limit: %v", err)
	}
	if o.HistoryLimit != 500 {
		t.Errorf("history-limit = %d, want 500", o.HistoryLimit)
	}

	if err := o.Set("mouse", "on"); err != nil {
		t.Fatalf("set mouse: %v", err)
	}
	if !o.Mouse {
		t.Error("mouse should be on")
	}
}

func TestSetUnknownOption(t *testing.T) {
	o := Default()
	if err := o.Set("no-such-option", "1"); err == nil {
		t.Error("unknown option should error")
	}
}

func TestSetBadValues(t *testing.T) {
	o := Default()
	if err := o.Set("history-limit", "many"); err == nil {
		t.Error("non-numeric int option should error")
	}
	if err := o.Set("status", "maybe"); err == nil {
		t.Error("non-boolean option should error")
	}
	if err := o.Set("prefix", "NotAKey"); err == nil {
		t.Error("bad prefix chord should error")
	}
	if err := o.Set("status-style", "fg=nocolor"); err == nil {
		t.Error("bad style should error")
	}
}

func TestGetMirrorsSet(t *testing.T) {
	o := Default()
	for _, name := range []string{
		"prefix", "default-terminal", "history-limit", "escape-time",
		"base-index", "renumber-windows", "automatic-rename", "status",
		"status-left", "status-right", "status-style", "status-interval",
		"pane-border-style", "pane-active-border-style", "mouse",
		"display-time",
	} {
		if _, err := o.Get(name); err != nil {
			t.Errorf("get %s: %v", name, err)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want term.Color
	}{
		{"default", term.ColorDefault},
		{"black", term.ColorIndexed(0)},
		{"green", term.ColorIndexed(2)},
		{"brightred", term.ColorIndexed(9)},
		{"colour196", term.ColorIndexed(196)},
		{"color8", term.ColorIndexed(8)},
		{"#ff0080", term.ColorRGB(255, 0, 128)},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"chartreuse-ish", "colour999", "#zzzzzz"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) should fail", bad)
		}
	}
}

func TestParseStyle(t *testing.T) {
	got, err := ParseStyle("fg=black,bg=green,bold")
	if err != nil {
		t.Fatalf("parse style: %v", err)
	}
	want := term.Style{
		FG:    term.ColorIndexed(0),
		BG:    term.ColorIndexed(2),
		Attrs: term.AttrBold,
	}
	if got != want {
		t.Errorf("style = %+v, want %+v", got, want)
	}

	if s, err := ParseStyle("default"); err != nil || !s.IsDefault() {
		t.Errorf("default style = %+v (%v)", s, err)
	}
	if _, err := ParseStyle("fg=black,wiggly"); err == nil {
		t.Error("unknown attribute should error")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`new-window -n shell`, []string{"new-window", "-n", "shell"}},
		{`rename-window "my window"`, []string{"rename-window", "my window"}},
		{`display-message 'hi there'`, []string{"display-message", "hi there"}},
		{`bind-key x kill-pane # comment`, []string{"bind-key", "x", "kill-pane"}},
		{`set -g status-left "[\"q\"] "`, []string{"set", "-g", "status-left", `["q"] `}},
		{`echo a\ b`, []string{"echo", "a b"}},
		{``, nil},
		{`# only comment`, nil},
	}
	for _, tt := range tests {
		got, err := Tokenize(tt.in)
		if err != nil {
			t.Errorf("Tokenize(%q): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	for _, in := range []string{`"unterminated`, `'unterminated`, `trailing\`} {
		if _, err := Tokenize(in); err == nil {
			t.Errorf("Tokenize(%q) should fail", in)
		}
	}
}

func TestLines(t *testing.T) {
	content := "set -g mouse on\n" +
		"# a comment\n" +
		"\n" +
		"bind-key x \\\n" +
		"kill-pane\n" +
		"set -g status off\r\n"
	got := Lines(content)
	want := []string{
		"set -g mouse on",
		"bind-key x kill-pane",
		"set -g status off",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lines = %q, want %q", got, want)
	}
}

func TestSetIsIdempotent(t *testing.T) {
	a := Default()
	b := Default()
	for i := 0; i < 2; i++ {
		if err := b.Set("prefix", "C-a"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := b.Set("history-limit", "100"); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := a.Set("prefix", "C-a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := a.Set("history-limit", "100"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("applying options twice diverged: %+v vs %+v", a, b)
	}
}
