package server

import (
	"time"

	"github.com/blackwitch/wtmux/internal/wire"
)

// event is one unit of work for the dispatcher. All graph mutations
// happen on the dispatcher goroutine; workers only post events.
type event interface {
	isEvent()
}

// evClientMessage delivers a decoded IPC message from a client reader.
type evClientMessage struct {
	client *Client
	msg    wire.ClientMessage
}

// evClientGone reports a disconnected or failed client connection.
type evClientGone struct {
	client *Client
}

// evPaneOutput delivers a chunk of PTY output from a pane reader.
type evPaneOutput struct {
	pane *Pane
	data []byte
}

// evPaneExit reports PTY EOF: the pane's child is gone.
type evPaneExit struct {
	pane *Pane
}

// evTick fires at status-interval and drives message expiry and the
// status clock.
type evTick struct {
	now time.Time
}

// evConfigReload asks the dispatcher to re-source the config file after
// a filesystem change.
type evConfigReload struct{}

func (evClientMessage) isEvent() {}
func (evClientGone) isEvent()    {}
func (evPaneOutput) isEvent()    {}
func (evPaneExit) isEvent()      {}
func (evTick) isEvent()          {}
func (evConfigReload) isEvent()  {}
