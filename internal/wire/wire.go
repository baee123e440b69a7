// Package wire defines the client-server IPC protocol: the message
// variants, a deterministic binary tagged-union encoding, and the
// length-prefixed framing used on the transport.
package wire

// ProtocolVersion is bumped on any incompatible change to the encoding.
const ProtocolVersion = 1

// ClientMessage is a message sent from a client to the server.
type ClientMessage interface {
	clientTag() uint8
}

// ServerMessage is a message sent from the server to a client.
type ServerMessage interface {
	serverTag() uint8
}

// Client message variants.
type (
	// Hello opens a connection, announcing the client's version,
	// terminal size, and TERM type.
	Hello struct {
		ClientVersion uint32
		Rows          uint16
		Cols          uint16
		TermType      string
	}

	// AttachSession attaches to a named session, or creates/attaches the
	// default session when Name is empty and HasName is false.
	AttachSession struct {
		HasName bool
		Name    string
	}

	// NewSession creates a session, optionally named and with a custom
	// shell command.
	NewSession struct {
		HasName    bool
		Name       string
		HasCommand bool
		Command    string
	}

	// ListSessions requests the session list.
	ListSessions struct{}

	// KillSession destroys a named session.
	KillSession struct {
		Name string
	}

	// KillServer asks the server to shut down.
	KillServer struct{}

	// Input carries raw keyboard bytes for the active pane.
	Input struct {
		Bytes []byte
	}

	// Resize reports the client terminal's new size.
	Resize struct {
		Rows uint16
		Cols uint16
	}

	// Command carries the text of a ':' prompt command.
	Command struct {
		Line string
	}

	// Detach detaches the client from its session.
	Detach struct{}

	// Ping is a keepalive probe.
	Ping struct{}
)

// Server message variants.
type (
	// Welcome acknowledges a Hello.
	Welcome struct {
		ServerVersion uint32
	}

	// Frame carries a pre-encoded terminal update stream.
	Frame struct {
		Bytes []byte
	}

	// Bell rings the client terminal bell.
	Bell struct{}

	// Message displays a transient status-line message.
	Message struct {
		Text string
	}

	// SessionInfo is one row of a session listing.
	SessionInfo struct {
		Name      string
		Windows   uint32
		Attached  uint32
		CreatedAt int64
	}

	// SessionList answers ListSessions.
	SessionList struct {
		Items []SessionInfo
	}

	// Attached confirms a session attach.
	Attached struct {
		SessionName string
	}

	// Detached confirms a detach; the connection stays open.
	Detached struct{}

	// Error reports a command-level failure.
	Error struct {
		Text string
	}

	// Pong answers Ping.
	Pong struct{}
)

// Client message tags. The wire value is part of the protocol; never
// reorder.
const (
	tagHello uint8 = iota + 1
	tagAttachSession
	tagNewSession
	tagListSessions
	tagKillSession
	tagKillServer
	tagInput
	tagResize
	tagCommand
	tagDetach
	tagPing
)

// Server message tags.
const (
	tagWelcome uint8 = iota + 1
	tagFrame
	tagBell
	tagMessage
	tagSessionList
	tagAttached
	tagDetached
	tagError
	tagPong
)

func (Hello) clientTag() uint8         { return tagHello }
func (AttachSession) clientTag() uint8 { return tagAttachSession }
func (NewSession) clientTag() uint8    { return tagNewSession }
func (ListSessions) clientTag() uint8  { return tagListSessions }
func (KillSession) clientTag() uint8   { return tagKillSession }
func (KillServer) clientTag() uint8    { return tagKillServer }
func (Input) clientTag() uint8         { return tagInput }
func (Resize) clientTag() uint8        { return tagResize }
func (Command) clientTag() uint8       { return tagCommand }
func (Detach) clientTag() uint8        { return tagDetach }
func (Ping) clientTag() uint8          { return tagPing }

func (Welcome) serverTag() uint8     { return tagWelcome }
func (Frame) serverTag() uint8       { return tagFrame }
func (Bell) serverTag() uint8        { return tagBell }
func (Message) serverTag() uint8     { return tagMessage }
func (SessionList) serverTag() uint8 { return tagSessionList }
func (Attached) serverTag() uint8    { return tagAttached }
func (Detached) serverTag() uint8    { return tagDetached }
func (Error) serverTag() uint8       { return tagError }
func (Pong) serverTag() uint8        { return tagPong }
