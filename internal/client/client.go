// Package client implements the foreground attach loop: it puts the
// controlling terminal into raw mode, forwards keystrokes to the server,
// and writes rendered frames back to the terminal. All composition
// happens server-side; the client is a thin frame sink.
package client

import (
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/term"
	"pkt.systems/pslog"

	"github.com/blackwitch/wtmux/internal/wire"
)

// AttachOptions selects what the client attaches to once connected.
type AttachOptions struct {
	// SessionName targets a session; empty attaches or creates the
	// default session.
	SessionName string

	// Create makes a new session instead of attaching.
	Create bool

	// Command is the shell command for a created session.
	Command string

	// EscapeTime is the delay distinguishing a lone Escape press from
	// an escape sequence in raw input.
	EscapeTime time.Duration
}

// Attach runs the interactive loop until the server detaches us or the
// connection drops.
func Attach(conn net.Conn, opts AttachOptions, logger pslog.Logger) error {
	fd := int(os.Stdin.Fd())
	cols, rows := 80, 24
	if w, h, err := term.GetSize(fd); err == nil {
		cols, rows = w, h
	}

	if err := wire.WriteClient(conn, wire.Hello{
		ClientVersion: wire.ProtocolVersion,
		Rows:          uint16(rows),
		Cols:          uint16(cols),
		TermType:      os.Getenv("TERM"),
	}); err != nil {
		return err
	}

	if opts.Create {
		msg := wire.NewSession{}
		if opts.SessionName != "" {
			msg.HasName = true
			msg.Name = opts.SessionName
		}
		if opts.Command != "" {
			msg.HasCommand = true
			msg.Command = opts.Command
		}
		if err := wire.WriteClient(conn, msg); err != nil {
			return err
		}
	} else {
		msg := wire.AttachSession{}
		if opts.SessionName != "" {
			msg.HasName = true
			msg.Name = opts.SessionName
		}
		if err := wire.WriteClient(conn, msg); err != nil {
			return err
		}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	done := make(chan error, 2)

	// Server reader: frames to stdout, bell to the terminal, Detached
	// ends the loop.
	go func() {
		for {
			msg, err := wire.ReadServer(conn)
			if err != nil {
				done <- err
				return
			}
			switch m := msg.(type) {
			case wire.Frame:
				os.Stdout.Write(m.Bytes)
			case wire.Bell:
				os.Stdout.Write([]byte{0x07})
			case wire.Message:
				// Transient server notices render inside frames; a
				// bare Message arrives only outside a session.
				logger.Info("server message", "text", m.Text)
			case wire.Error:
				done <- fmt.Errorf("server error: %s", m.Text)
				return
			case wire.Detached:
				done <- nil
				return
			}
		}
	}()

	// Input forwarder with Escape disambiguation: a chunk that is a
	// lone ESC waits escape-time for a follow-up before being sent, so
	// the server sees complete sequences in one Input message.
	go func() {
		buf := make([]byte, 4096)
		var heldEsc bool
		for {
			if heldEsc {
				os.Stdin.SetReadDeadline(time.Now().Add(opts.EscapeTime))
			}
			n, err := os.Stdin.Read(buf)
			if heldEsc {
				os.Stdin.SetReadDeadline(time.Time{})
				heldEsc = false
				chunk := append([]byte{0x1b}, buf[:n]...)
				if werr := wire.WriteClient(conn, wire.Input{Bytes: chunk}); werr != nil {
					done <- werr
					return
				}
				if err != nil && !os.IsTimeout(err) {
					done <- err
					return
				}
				continue
			}
			if err != nil && !os.IsTimeout(err) {
				done <- err
				return
			}
			if n == 1 && buf[0] == 0x1b {
				heldEsc = true
				continue
			}
			if n > 0 {
				if werr := wire.WriteClient(conn, wire.Input{Bytes: buf[:n]}); werr != nil {
					done <- werr
					return
				}
			}
		}
	}()

	// Resize poller.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			if w, h, err := term.GetSize(fd); err == nil && (w != cols || h != rows) {
				cols, rows = w, h
				if err := wire.WriteClient(conn, wire.Resize{
					Rows: uint16(rows),
					Cols: uint16(cols),
				}); err != nil {
					return err
				}
			}
		}
	}
}

// ListSessions requests and returns the server's session list.
func ListSessions(conn net.Conn) ([]wire.SessionInfo, error) {
	if err := wire.WriteClient(conn, wire.ListSessions{}); err != nil {
		return nil, err
	}
	for {
		msg, err := wire.ReadServer(conn)
		if err != nil {
			return nil, err
		}
		switch m := msg.(type) {
		case wire.SessionList:
			return m.Items, nil
		case wire.Error:
			return nil, fmt.Errorf("%s", m.Text)
		}
	}
}

// KillSession asks the server to destroy a named session.
func KillSession(conn net.Conn, name string) error {
	if err := wire.WriteClient(conn, wire.KillSession{Name: name}); err != nil {
		return err
	}
	for {
		msg, err := wire.ReadServer(conn)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case wire.Message:
			return nil
		case wire.Error:
			return fmt.Errorf("%s", m.Text)
		default:
			_ = m
		}
	}
}

// KillServer asks the server to shut down.
func KillServer(conn net.Conn) error {
	return wire.WriteClient(conn, wire.KillServer{})
}
