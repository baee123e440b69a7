package server

import (
	"fmt"

	"github.com/blackwitch/wtmux/internal/layout"
	"github.com/blackwitch/wtmux/internal/pty"
)

// Window owns a layout tree over a set of panes. Exactly one pane is
// active; the layout tree's leaves and the pane map are always in
// bijection.
type Window struct {
	Index int
	Name  string

	// autoName is true until the user renames the window; while set,
	// automatic-rename may follow the active pane's title.
	autoName bool

	panes      map[layout.PaneID]*Pane
	tree       *layout.Node
	active     layout.PaneID
	lastActive layout.PaneID
	zoomed     layout.PaneID // 0 when not zoomed
	preset     layout.Preset

	area layout.Rect
}

// newWindow creates a window holding a single pane.
func newWindow(index int, name string, first *Pane, area layout.Rect) *Window {
	return &Window{
		Index:    index,
		Name:     name,
		autoName: true,
		panes:    map[layout.PaneID]*Pane{first.ID: first},
		tree:     layout.NewLeaf(first.ID),
		active:   first.ID,
		area:     area,
	}
}

// Panes returns the pane map. Callers must not mutate it.
func (w *Window) Panes() map[layout.PaneID]*Pane {
	return w.panes
}

// Pane returns a pane by id.
func (w *Window) Pane(id layout.PaneID) (*Pane, bool) {
	p, ok := w.panes[id]
	return p, ok
}

// ActivePane returns the active pane.
func (w *Window) ActivePane() *Pane {
	return w.panes[w.active]
}

// ActivePaneID returns the active pane's id.
func (w *Window) ActivePaneID() layout.PaneID {
	return w.active
}

// Zoomed returns the zoomed pane id, or 0.
func (w *Window) Zoomed() layout.PaneID {
	return w.zoomed
}

// PaneCount returns the number of panes.
func (w *Window) PaneCount() int {
	return len(w.panes)
}

// SetName renames the window and pins the name against automatic-rename.
func (w *Window) SetName(name string) {
	w.Name = name
	w.autoName = false
}

// AutoRename applies a child-title rename when the user has not pinned
// the name. Returns true when the name changed.
func (w *Window) AutoRename() bool {
	if !w.autoName {
		return false
	}
	title := w.ActivePane().Title()
	if title == "" || title == w.Name {
		return false
	}
	w.Name = title
	return true
}

// Rects computes pane rectangles. While zoomed, the zoomed pane takes the
// whole window rectangle and the tree is ignored.
func (w *Window) Rects() map[layout.PaneID]layout.Rect {
	if w.zoomed != 0 {
		return map[layout.PaneID]layout.Rect{w.zoomed: w.area}
	}
	return w.tree.Rects(w.area)
}

// SetArea installs a new window rectangle and resizes every pane.
func (w *Window) SetArea(area layout.Rect) {
	w.area = area
	w.applySizes()
}

// Area returns the window rectangle.
func (w *Window) Area() layout.Rect {
	return w.area
}

func (w *Window) applySizes() {
	for id, r := range w.Rects() {
		if p, ok := w.panes[id]; ok {
			p.Resize(pty.Size{Rows: max(r.H, 1), Cols: max(r.W, 1)})
		}
	}
}

// Split replaces the active leaf with a split and inserts the new pane.
// The new pane becomes active.
func (w *Window) Split(p *Pane, o layout.Orientation, side layout.Side) error {
	tree, err := w.tree.Split(w.active, p.ID, o, side, w.area)
	if err != nil {
		return err
	}
	w.tree = tree
	w.panes[p.ID] = p
	w.lastActive = w.active
	w.active = p.ID
	w.zoomed = 0
	w.applySizes()
	return nil
}

// RemovePane drops a pane from the tree and map. If it was active, the
// last-active pane (or any survivor) becomes active. Returns true when
// the window is now empty.
func (w *Window) RemovePane(id layout.PaneID) bool {
	delete(w.panes, id)
	if tree, ok := w.tree.Remove(id); ok {
		w.tree = tree
	}
	if w.zoomed == id {
		w.zoomed = 0
	}
	if w.lastActive == id {
		w.lastActive = 0
	}
	if w.active == id {
		if w.lastActive != 0 {
			if _, ok := w.panes[w.lastActive]; ok {
				w.active = w.lastActive
				w.lastActive = 0
			}
		}
		if w.active == id {
			for pid := range w.panes {
				w.active = pid
				break
			}
		}
	}
	if len(w.panes) == 0 {
		return true
	}
	w.applySizes()
	return false
}

// SelectPane makes a pane active, recording the previous one.
func (w *Window) SelectPane(id layout.PaneID) error {
	if _, ok := w.panes[id]; !ok {
		return fmt.Errorf("%w: pane %d", ErrTargetNotFound, id)
	}
	if id != w.active {
		w.lastActive = w.active
		w.active = id
	}
	return nil
}

// SelectDirection moves the active pane along a direction; ties prefer
// the most recently active pane.
func (w *Window) SelectDirection(dir layout.Direction) {
	rects := w.tree.Rects(w.area)
	if next, ok := layout.Neighbor(rects, w.active, dir, w.lastActive); ok {
		w.SelectPane(next)
	}
}

// SelectNext cycles to the next pane in tree order.
func (w *Window) SelectNext() {
	ids := w.tree.PaneIDs()
	if len(ids) < 2 {
		return
	}
	for i, id := range ids {
		if id == w.active {
			w.SelectPane(ids[(i+1)%len(ids)])
			return
		}
	}
}

// SelectLast re-activates the previously active pane.
func (w *Window) SelectLast() {
	if w.lastActive == 0 {
		return
	}
	if _, ok := w.panes[w.lastActive]; ok {
		w.SelectPane(w.lastActive)
	}
}

// SwapPane exchanges the active pane with its predecessor (up) or
// successor in tree order, wrapping at the ends.
func (w *Window) SwapPane(up bool) {
	ids := w.tree.PaneIDs()
	if len(ids) < 2 {
		return
	}
	pos := -1
	for i, id := range ids {
		if id == w.active {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	var other layout.PaneID
	if up {
		other = ids[(pos-1+len(ids))%len(ids)]
	} else {
		other = ids[(pos+1)%len(ids)]
	}
	w.tree.Swap(w.active, other)
	w.applySizes()
}

// ResizePane shifts the active pane's border along a direction by amount
// cells.
func (w *Window) ResizePane(dir layout.Direction, amount int) {
	if w.tree.ResizeBy(w.active, dir, amount, w.area) {
		w.applySizes()
	}
}

// ToggleZoom zooms the active pane to the full window, or restores the
// layout when already zoomed.
func (w *Window) ToggleZoom() {
	if w.zoomed != 0 {
		w.zoomed = 0
	} else if len(w.panes) > 1 {
		w.zoomed = w.active
	}
	w.applySizes()
}

// NextLayout cycles to the next preset arrangement, preserving pane
// identity and the active pane.
func (w *Window) NextLayout() {
	ids := w.tree.PaneIDs()
	if len(ids) < 2 {
		return
	}
	w.preset = w.preset.Next()
	w.tree = w.preset.Apply(ids)
	w.zoomed = 0
	w.applySizes()
}
