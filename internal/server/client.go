package server

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/blackwitch/wtmux/internal/input/key"
	"github.com/blackwitch/wtmux/internal/wire"
)

// writeTimeout bounds a single IPC write; a client that cannot drain a
// frame for this long is considered gone.
const writeTimeout = 5 * time.Second

// Client is the server-side state of one attached IPC connection.
type Client struct {
	id   uuid.UUID
	conn net.Conn

	session *Session

	rows int
	cols int

	// Prefix-key state machine: the next chord after the prefix is
	// looked up in the prefix table.
	prefixed bool

	decoder key.Decoder

	// Command-prompt state.
	promptOpen bool
	prompt     string

	// Message overlay.
	message      string
	messageUntil time.Time

	// Clock-mode overlay; any key exits.
	clockMode bool

	lastFrame *Frame
	gone      bool
}

// newClient wraps an accepted connection.
func newClient(conn net.Conn) *Client {
	return &Client{
		id:   uuid.New(),
		conn: conn,
		rows: 24,
		cols: 80,
	}
}

// send writes one message with the write timeout applied. Returns false
// when the client should be dropped.
func (c *Client) send(m wire.ServerMessage) bool {
	if c.conn == nil || c.gone {
		return !c.gone
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := wire.WriteServer(c.conn, m); err != nil {
		c.gone = true
		return false
	}
	c.conn.SetWriteDeadline(time.Time{})
	return true
}

// messageActive reports whether the overlay should still show.
func (c *Client) messageActive(now time.Time) bool {
	return c.message != "" && now.Before(c.messageUntil)
}

// clearTransient drops the message overlay (called on any keystroke).
func (c *Client) clearTransient() {
	c.message = ""
}
