package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/blackwitch/wtmux/internal/term"
)

// colorNames maps the 16 ANSI color names to palette indices.
var colorNames = map[string]uint8{
	"black":         0,
	"red":           1,
	"green":         2,
	"yellow":        3,
	"blue":          4,
	"magenta":       5,
	"cyan":          6,
	"white":         7,
	"brightblack":   8,
	"brightred":     9,
	"brightgreen":   10,
	"brightyellow":  11,
	"brightblue":    12,
	"brightmagenta": 13,
	"brightcyan":    14,
	"brightwhite":   15,
}

// attrNames maps style attribute words to attribute flags.
var attrNames = map[string]term.Attr{
	"bold":          term.AttrBold,
	"bright":        term.AttrBold,
	"dim":           term.AttrDim,
	"italics":       term.AttrItalic,
	"italic":        term.AttrItalic,
	"underscore":    term.AttrUnderline,
	"underline":     term.AttrUnderline,
	"blink":         term.AttrBlink,
	"reverse":       term.AttrReverse,
	"hidden":        term.AttrHidden,
	"strikethrough": term.AttrStrike,
}

// ParseColor converts a color word: a name, "colourN"/"colorN", "default",
// or "#RRGGBB".
func ParseColor(s string) (term.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "default" {
		return term.ColorDefault, nil
	}
	if idx, ok := colorNames[s]; ok {
		return term.ColorIndexed(idx), nil
	}
	for _, prefix := range []string{"colour", "color"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 || n > 255 {
				return term.Color{}, fmt.Errorf("config: bad color %q", s)
			}
			return term.ColorIndexed(uint8(n)), nil
		}
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return term.Color{}, fmt.Errorf("config: bad color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return term.ColorRGB(r, g, b), nil
	}
	return term.Color{}, fmt.Errorf("config: bad color %q", s)
}

// ParseStyle parses a tmux style string: comma-separated entries of
// "fg=<color>", "bg=<color>", and bare attribute words. "default" resets
// to the default style.
func ParseStyle(s string) (term.Style, error) {
	style := term.DefaultStyle()
	s = strings.TrimSpace(s)
	if s == "" || s == "default" {
		return style, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "default" {
			continue
		}
		if v, ok := strings.CutPrefix(part, "fg="); ok {
			c, err := ParseColor(v)
			if err != nil {
				return style, err
			}
			style.FG = c
			continue
		}
		if v, ok := strings.CutPrefix(part, "bg="); ok {
			c, err := ParseColor(v)
			if err != nil {
				return style, err
			}
			style.BG = c
			continue
		}
		if attr, ok := attrNames[strings.ToLower(part)]; ok {
			style.Attrs |= attr
			continue
		}
		return style, fmt.Errorf("config: bad style entry %q", part)
	}
	return style, nil
}
