package server

import (
	"testing"

	"github.com/blackwitch/wtmux/internal/layout"
)

// Layout tree leaves and the pane map must stay in bijection through
// splits, kills, and layout cycling.
func TestTreePaneBijection(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)

	ops := []string{
		"split-window -h",
		"split-window -v",
		"next-layout",
		"split-window -h",
		"kill-pane",
		"next-layout",
	}
	for _, op := range ops {
		if err := s.Execute(c, op); err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		win := c.session.ActiveWindow()
		check := make(map[layout.PaneID]bool)
		for _, id := range treeIDs(win) {
			if check[id] {
				t.Fatalf("after %s: duplicate leaf %d", op, id)
			}
			check[id] = true
			if _, ok := win.Pane(id); !ok {
				t.Fatalf("after %s: leaf %d has no pane", op, id)
			}
		}
		if len(check) != win.PaneCount() {
			t.Fatalf("after %s: %d leaves vs %d panes", op, len(check), win.PaneCount())
		}

		if _, ok := win.Pane(win.ActivePaneID()); !ok {
			t.Fatalf("after %s: active pane not in window", op)
		}
	}
}

func treeIDs(w *Window) []layout.PaneID {
	var ids []layout.PaneID
	for id := range w.Rects() {
		ids = append(ids, id)
	}
	return ids
}

func TestLastActivePaneTracking(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "split-window -h"); err != nil {
		t.Fatalf("split: %v", err)
	}
	win := c.session.ActiveWindow()
	second := win.ActivePaneID()

	// Explicit selection records the last-active pane.
	win.SelectDirection(layout.Left)
	first := win.ActivePaneID()
	if first == second {
		t.Fatal("direction select did not move")
	}
	win.SelectLast()
	if win.ActivePaneID() != second {
		t.Error("last-pane did not return to the previous pane")
	}
}

func TestKillActiveSelectsLastActive(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "split-window -h"); err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := s.Execute(c, "split-window -v"); err != nil {
		t.Fatalf("split: %v", err)
	}
	win := c.session.ActiveWindow()
	third := win.ActivePaneID()

	win.SelectLast() // back to the second pane
	second := win.ActivePaneID()
	win.SelectPane(third)

	s.killPane(c.session, win, third)
	if win.ActivePaneID() != second {
		t.Errorf("active = %d after killing active pane, want last-active %d",
			win.ActivePaneID(), second)
	}
}

func TestLastActiveWindowTracking(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "new-window"); err != nil {
		t.Fatalf("new-window: %v", err)
	}
	sess := c.session

	if err := sess.SelectWindow(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	sess.LastWindow()
	if sess.ActiveWindow().Index != 1 {
		t.Errorf("last-window landed on %d, want 1", sess.ActiveWindow().Index)
	}
	sess.LastWindow()
	if sess.ActiveWindow().Index != 0 {
		t.Errorf("second last-window landed on %d, want 0", sess.ActiveWindow().Index)
	}
}

func TestWindowIndicesUniqueAndLowestFree(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	sess := c.session

	for i := 0; i < 3; i++ {
		if err := s.Execute(c, "new-window"); err != nil {
			t.Fatalf("new-window: %v", err)
		}
	}
	// Kill window 1; without renumbering the gap is refilled next.
	if err := sess.SelectWindow(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.killWindow(sess, sess.ActiveWindow())

	if err := s.Execute(c, "new-window"); err != nil {
		t.Fatalf("new-window: %v", err)
	}
	seen := make(map[int]bool)
	for _, w := range sess.Windows() {
		if seen[w.Index] {
			t.Fatalf("duplicate window index %d", w.Index)
		}
		seen[w.Index] = true
	}
	if !seen[1] {
		t.Error("lowest free index 1 was not reused")
	}
}

func TestSwapPaneKeepsRects(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachTestClient(t, s)
	if err := s.Execute(c, "split-window -h"); err != nil {
		t.Fatalf("split: %v", err)
	}
	win := c.session.ActiveWindow()
	before := win.Rects()
	active := win.ActivePaneID()

	if err := s.Execute(c, "swap-pane -U"); err != nil {
		t.Fatalf("swap-pane: %v", err)
	}
	after := win.Rects()
	if len(after) != len(before) {
		t.Fatal("swap changed pane count")
	}
	// The active pane id is unchanged but now occupies the other rect.
	if after[active] == before[active] {
		t.Error("swap did not move the active pane")
	}
}
