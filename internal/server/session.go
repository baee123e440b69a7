package server

import (
	"fmt"
	"sort"
	"time"

	"github.com/blackwitch/wtmux/internal/layout"
)

// Session owns an ordered set of windows keyed by integer index. Names
// are unique per server; uniqueness is enforced by the Server.
type Session struct {
	Name    string
	Created time.Time

	windows   []*Window
	activeIdx int
	lastIdx   int // -1 when no last-active window
	renumber  bool
	baseIndex int
}

// newSession creates a session holding a single window.
func newSession(name string, first *Window, baseIndex int) *Session {
	return &Session{
		Name:      name,
		Created:   time.Now(),
		windows:   []*Window{first},
		lastIdx:   -1,
		baseIndex: baseIndex,
	}
}

// Windows returns the windows in index order.
func (s *Session) Windows() []*Window {
	return s.windows
}

// WindowCount returns the number of windows.
func (s *Session) WindowCount() int {
	return len(s.windows)
}

// ActiveWindow returns the active window.
func (s *Session) ActiveWindow() *Window {
	return s.windows[s.activeIdx]
}

// ActivePane returns the active window's active pane.
func (s *Session) ActivePane() *Pane {
	return s.ActiveWindow().ActivePane()
}

// WindowByIndex finds a window by its index number.
func (s *Session) WindowByIndex(index int) (*Window, bool) {
	for _, w := range s.windows {
		if w.Index == index {
			return w, true
		}
	}
	return nil, false
}

// NextFreeIndex returns the lowest unused window index >= base-index.
func (s *Session) NextFreeIndex() int {
	used := make(map[int]bool, len(s.windows))
	for _, w := range s.windows {
		used[w.Index] = true
	}
	for i := s.baseIndex; ; i++ {
		if !used[i] {
			return i
		}
	}
}

// AddWindow inserts a window keeping index order and makes it active.
func (s *Session) AddWindow(w *Window) {
	s.windows = append(s.windows, w)
	sort.Slice(s.windows, func(i, j int) bool {
		return s.windows[i].Index < s.windows[j].Index
	})
	for i, win := range s.windows {
		if win == w {
			s.recordLast()
			s.activeIdx = i
			return
		}
	}
}

func (s *Session) recordLast() {
	s.lastIdx = s.activeIdx
}

// SelectWindow activates the window with the given index number.
func (s *Session) SelectWindow(index int) error {
	for i, w := range s.windows {
		if w.Index == index {
			if i != s.activeIdx {
				s.recordLast()
				s.activeIdx = i
			}
			return nil
		}
	}
	return fmt.Errorf("%w: window %d", ErrTargetNotFound, index)
}

// NextWindow activates the following window, wrapping.
func (s *Session) NextWindow() {
	if len(s.windows) < 2 {
		return
	}
	s.recordLast()
	s.activeIdx = (s.activeIdx + 1) % len(s.windows)
}

// PrevWindow activates the preceding window, wrapping.
func (s *Session) PrevWindow() {
	if len(s.windows) < 2 {
		return
	}
	s.recordLast()
	s.activeIdx = (s.activeIdx - 1 + len(s.windows)) % len(s.windows)
}

// LastWindow re-activates the previously active window.
func (s *Session) LastWindow() {
	if s.lastIdx < 0 || s.lastIdx >= len(s.windows) || s.lastIdx == s.activeIdx {
		return
	}
	s.activeIdx, s.lastIdx = s.lastIdx, s.activeIdx
}

// RemoveWindow drops a window. When renumber-windows is on, survivors are
// renumbered densely from base-index. Returns true when the session is
// now empty.
func (s *Session) RemoveWindow(w *Window) bool {
	pos := -1
	for i, win := range s.windows {
		if win == w {
			pos = i
			break
		}
	}
	if pos < 0 {
		return len(s.windows) == 0
	}
	s.windows = append(s.windows[:pos], s.windows[pos+1:]...)

	switch {
	case s.lastIdx == pos:
		s.lastIdx = -1
	case s.lastIdx > pos:
		s.lastIdx--
	}
	if s.activeIdx > pos {
		s.activeIdx--
	}
	if s.activeIdx >= len(s.windows) && len(s.windows) > 0 {
		s.activeIdx = len(s.windows) - 1
	}

	if s.renumber {
		for i, win := range s.windows {
			win.Index = s.baseIndex + i
		}
	}
	return len(s.windows) == 0
}

// SetRenumber toggles dense renumbering on window removal.
func (s *Session) SetRenumber(on bool) {
	s.renumber = on
}

// SetArea resizes every window in the session.
func (s *Session) SetArea(area layout.Rect) {
	for _, w := range s.windows {
		w.SetArea(area)
	}
}

// PaneCount returns the total pane count across windows.
func (s *Session) PaneCount() int {
	total := 0
	for _, w := range s.windows {
		total += w.PaneCount()
	}
	return total
}
