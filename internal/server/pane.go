package server

import (
	"time"

	"github.com/blackwitch/wtmux/internal/layout"
	"github.com/blackwitch/wtmux/internal/pty"
	"github.com/blackwitch/wtmux/internal/term"
)

// Pane owns one PTY child and the emulator that interprets its output.
// Pane ids are globally unique within a server lifetime and never reused.
type Pane struct {
	ID layout.PaneID

	pty  pty.Pty
	emu  *term.Emulator
	size pty.Size

	// CopyMode is non-nil while the pane is in copy mode.
	CopyMode *CopyMode

	Dead         bool
	Created      time.Time
	LastActivity time.Time
}

// newPane wraps a freshly spawned PTY.
func newPane(id layout.PaneID, p pty.Pty, size pty.Size, historyLimit int) *Pane {
	now := time.Now()
	return &Pane{
		ID:           id,
		pty:          p,
		emu:          term.NewEmulator(size.Cols, size.Rows, historyLimit),
		size:         size,
		Created:      now,
		LastActivity: now,
	}
}

// Emulator exposes the pane's terminal state for rendering and copy mode.
func (p *Pane) Emulator() *term.Emulator {
	return p.emu
}

// Feed applies child output to the emulator and forwards any report
// responses (DA, DSR) back to the child.
func (p *Pane) Feed(data []byte) {
	p.emu.Feed(data)
	p.LastActivity = time.Now()
	if resp := p.emu.TakeResponses(); len(resp) > 0 && !p.Dead {
		p.pty.Write(resp)
	}
}

// WriteInput forwards client keystrokes to the child. Writes to a dead
// pane are dropped.
func (p *Pane) WriteInput(data []byte) error {
	if p.Dead {
		return nil
	}
	_, err := p.pty.Write(data)
	return err
}

// Resize adjusts both the PTY and the emulator. No-op when the size is
// unchanged or the pane is dead.
func (p *Pane) Resize(size pty.Size) error {
	if p.Dead || size == p.size {
		return nil
	}
	if size.Cols <= 0 || size.Rows <= 0 {
		return term.ErrBadSize
	}
	if err := p.pty.Resize(size); err != nil {
		return err
	}
	if err := p.emu.Resize(size.Cols, size.Rows); err != nil {
		return err
	}
	p.size = size
	return nil
}

// Size returns the current pane size.
func (p *Pane) Size() pty.Size {
	return p.size
}

// MarkDead flags the pane after child exit; no further PTY writes occur.
func (p *Pane) MarkDead() {
	p.Dead = true
}

// Kill terminates the child and closes the PTY.
func (p *Pane) Kill() {
	if p.Dead {
		return
	}
	p.Dead = true
	p.pty.Kill()
	p.pty.Close()
}

// Title returns the child-set window title (OSC 0/2).
func (p *Pane) Title() string {
	return p.emu.Title()
}
