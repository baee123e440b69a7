// Package config implements the option map, the style-string parser, and
// the config-file tokenizer and loader. Option semantics follow the
// server's documented defaults; unknown options are an error the caller
// surfaces without aborting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blackwitch/wtmux/internal/input/key"
)

// Options is the server-wide option map with typed fields.
type Options struct {
	// Prefix is the chord that enters the prefixed key state.
	Prefix key.Chord

	// Terminal.
	DefaultShell    string
	DefaultTerminal string
	HistoryLimit    int
	EscapeTime      int // milliseconds, client-side Escape disambiguation

	// Windows.
	BaseIndex       int
	RenumberWindows bool
	AutomaticRename bool

	// Status bar.
	Status         bool
	StatusLeft     string
	StatusRight    string
	StatusStyle    string
	StatusInterval int // seconds

	// Panes.
	PaneBorderStyle       string
	PaneActiveBorderStyle string

	// Input.
	Mouse bool

	// Messages.
	DisplayTime int // milliseconds

	// Copy mode.
	WrapSearch bool
}

// Default returns the stock option values.
func Default() *Options {
	shell := os.Getenv("COMSPEC")
	if shell == "" {
		shell = `C:\Windows\System32\cmd.exe`
	}
	return &Options{
		Prefix:                key.Ctrl('b'),
		DefaultShell:          shell,
		DefaultTerminal:       "xterm-256color",
		HistoryLimit:          2000,
		EscapeTime:            500,
		BaseIndex:             0,
		RenumberWindows:       false,
		AutomaticRename:       true,
		Status:                true,
		StatusLeft:            "[#{session_name}] ",
		StatusRight:           " %H:%M %Y-%m-%d",
		StatusStyle:           "fg=black,bg=green",
		StatusInterval:        1,
		PaneBorderStyle:       "default",
		PaneActiveBorderStyle: "fg=green",
		Mouse:                 false,
		DisplayTime:           750,
		WrapSearch:            true,
	}
}

// Set assigns an option by name from its string form. Unknown names and
// malformed values return an error; the option map is left unchanged.
func (o *Options) Set(name, value string) error {
	switch name {
	case "prefix":
		chord, err := key.Parse(value)
		if err != nil {
			return fmt.Errorf("config: bad prefix %q: %w", value, err)
		}
		o.Prefix = chord
	case "default-shell", "default-command":
		o.DefaultShell = value
	case "default-terminal":
		o.DefaultTerminal = value
	case "history-limit":
		return setInt(&o.HistoryLimit, name, value)
	case "escape-time":
		return setInt(&o.EscapeTime, name, value)
	case "base-index":
		return setInt(&o.BaseIndex, name, value)
	case "renumber-windows":
		return setBool(&o.RenumberWindows, name, value)
	case "automatic-rename":
		return setBool(&o.AutomaticRename, name, value)
	case "status":
		return setBool(&o.Status, name, value)
	case "status-left":
		o.StatusLeft = value
	case "status-right":
		o.StatusRight = value
	case "status-style":
		if _, err := ParseStyle(value); err != nil {
			return err
		}
		o.StatusStyle = value
	case "status-interval":
		return setInt(&o.StatusInterval, name, value)
	case "pane-border-style":
		if _, err := ParseStyle(value); err != nil {
			return err
		}
		o.PaneBorderStyle = value
	case "pane-active-border-style":
		if _, err := ParseStyle(value); err != nil {
			return err
		}
		o.PaneActiveBorderStyle = value
	case "mouse":
		return setBool(&o.Mouse, name, value)
	case "display-time":
		return setInt(&o.DisplayTime, name, value)
	case "wrap-search":
		return setBool(&o.WrapSearch, name, value)
	default:
		return fmt.Errorf("config: unknown option %q", name)
	}
	return nil
}

// Get returns an option's value in string form.
func (o *Options) Get(name string) (string, error) {
	switch name {
	case "prefix":
		return o.Prefix.String(), nil
	case "default-shell":
		return o.DefaultShell, nil
	case "default-terminal":
		return o.DefaultTerminal, nil
	case "history-limit":
		return strconv.Itoa(o.HistoryLimit), nil
	case "escape-time":
		return strconv.Itoa(o.EscapeTime), nil
	case "base-index":
		return strconv.Itoa(o.BaseIndex), nil
	case "renumber-windows":
		return boolString(o.RenumberWindows), nil
	case "automatic-rename":
		return boolString(o.AutomaticRename), nil
	case "status":
		return boolString(o.Status), nil
	case "status-left":
		return o.StatusLeft, nil
	case "status-right":
		return o.StatusRight, nil
	case "status-style":
		return o.StatusStyle, nil
	case "status-interval":
		return strconv.Itoa(o.StatusInterval), nil
	case "pane-border-style":
		return o.PaneBorderStyle, nil
	case "pane-active-border-style":
		return o.PaneActiveBorderStyle, nil
	case "mouse":
		return boolString(o.Mouse), nil
	case "display-time":
		return strconv.Itoa(o.DisplayTime), nil
	case "wrap-search":
		return boolString(o.WrapSearch), nil
	default:
		return "", fmt.Errorf("config: unknown option %q", name)
	}
}

func setInt(dst *int, name, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("config: option %s wants a non-negative integer, got %q", name, value)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, name, value string) error {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "1":
		*dst = true
	case "off", "false", "no", "0":
		*dst = false
	default:
		return fmt.Errorf("config: option %s wants on/off, got %q", name, value)
	}
	return nil
}

func boolString(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Path returns the config file location: $HOME/.wtmux.conf, falling back
// to %USERPROFILE% on Windows.
func Path() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		return ""
	}
	return home + string(os.PathSeparator) + ".wtmux.conf"
}
