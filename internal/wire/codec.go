package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame. Overlarge frames drop the
// connection.
const MaxFrameSize = 16 << 20

// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame too large")

// ErrDecode is wrapped by all payload decoding failures. A decode failure
// closes the connection.
var ErrDecode = errors.New("wire: decode error")

// encoder appends fields to a payload buffer. All integers are
// little-endian.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) i64(v int64)  { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) string(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// decoder consumes fields from a payload buffer, latching the first error.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail() {
	if d.err == nil {
		d.err = fmt.Errorf("%w: truncated payload", ErrDecode)
	}
}

func (d *decoder) u8() uint8 {
	if d.err != nil || len(d.buf) < 1 {
		d.fail()
		return 0
	}
	v := d.buf[0]
	d.buf = d.buf[1:]
	return v
}

func (d *decoder) u16() uint16 {
	if d.err != nil || len(d.buf) < 2 {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf)
	d.buf = d.buf[2:]
	return v
}

func (d *decoder) u32() uint32 {
	if d.err != nil || len(d.buf) < 4 {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf)
	d.buf = d.buf[4:]
	return v
}

func (d *decoder) i64() int64 {
	if d.err != nil || len(d.buf) < 8 {
		d.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return int64(v)
}

func (d *decoder) bool() bool {
	return d.u8() != 0
}

func (d *decoder) bytes() []byte {
	n := d.u32()
	if d.err != nil || uint32(len(d.buf)) < n {
		d.fail()
		return nil
	}
	v := make([]byte, n)
	copy(v, d.buf[:n])
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) string() string {
	return string(d.bytes())
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(d.buf))
	}
	return nil
}

// EncodeClient serializes a client message payload (tag + fields).
func EncodeClient(m ClientMessage) []byte {
	e := encoder{}
	e.u8(m.clientTag())
	switch v := m.(type) {
	case Hello:
		e.u32(v.ClientVersion)
		e.u16(v.Rows)
		e.u16(v.Cols)
		e.string(v.TermType)
	case AttachSession:
		e.bool(v.HasName)
		e.string(v.Name)
	case NewSession:
		e.bool(v.HasName)
		e.string(v.Name)
		e.bool(v.HasCommand)
		e.string(v.Command)
	case ListSessions, KillServer, Detach, Ping:
	case KillSession:
		e.string(v.Name)
	case Input:
		e.bytes(v.Bytes)
	case Resize:
		e.u16(v.Rows)
		e.u16(v.Cols)
	case Command:
		e.string(v.Line)
	}
	return e.buf
}

// DecodeClient parses a client message payload. Unknown tags are a decode
// failure.
func DecodeClient(payload []byte) (ClientMessage, error) {
	d := decoder{buf: payload}
	tag := d.u8()
	var m ClientMessage
	switch tag {
	case tagHello:
		m = Hello{ClientVersion: d.u32(), Rows: d.u16(), Cols: d.u16(), TermType: d.string()}
	case tagAttachSession:
		m = AttachSession{HasName: d.bool(), Name: d.string()}
	case tagNewSession:
		m = NewSession{HasName: d.bool(), Name: d.string(), HasCommand: d.bool(), Command: d.string()}
	case tagListSessions:
		m = ListSessions{}
	case tagKillSession:
		m = KillSession{Name: d.string()}
	case tagKillServer:
		m = KillServer{}
	case tagInput:
		m = Input{Bytes: d.bytes()}
	case tagResize:
		m = Resize{Rows: d.u16(), Cols: d.u16()}
	case tagCommand:
		m = Command{Line: d.string()}
	case tagDetach:
		m = Detach{}
	case tagPing:
		m = Ping{}
	default:
		return nil, fmt.Errorf("%w: unknown client tag %d", ErrDecode, tag)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeServer serializes a server message payload (tag + fields).
func EncodeServer(m ServerMessage) []byte {
	e := encoder{}
	e.u8(m.serverTag())
	switch v := m.(type) {
	case Welcome:
		e.u32(v.ServerVersion)
	case Frame:
		e.bytes(v.Bytes)
	case Bell, Detached, Pong:
	case Message:
		e.string(v.Text)
	case SessionList:
		e.u32(uint32(len(v.Items)))
		for _, it := range v.Items {
			e.string(it.Name)
			e.u32(it.Windows)
			e.u32(it.Attached)
			e.i64(it.CreatedAt)
		}
	case Attached:
		e.string(v.SessionName)
	case Error:
		e.string(v.Text)
	}
	return e.buf
}

// DecodeServer parses a server message payload.
func DecodeServer(payload []byte) (ServerMessage, error) {
	d := decoder{buf: payload}
	tag := d.u8()
	var m ServerMessage
	switch tag {
	case tagWelcome:
		m = Welcome{ServerVersion: d.u32()}
	case tagFrame:
		m = Frame{Bytes: d.bytes()}
	case tagBell:
		m = Bell{}
	case tagMessage:
		m = Message{Text: d.string()}
	case tagSessionList:
		n := d.u32()
		if n > MaxFrameSize/17 {
			// Each item takes at least 17 encoded bytes; anything
			// larger is a corrupt count.
			return nil, fmt.Errorf("%w: session list count %d", ErrDecode, n)
		}
		items := make([]SessionInfo, 0, n)
		for i := uint32(0); i < n && d.err == nil; i++ {
			items = append(items, SessionInfo{
				Name:      d.string(),
				Windows:   d.u32(),
				Attached:  d.u32(),
				CreatedAt: d.i64(),
			})
		}
		m = SessionList{Items: items}
	case tagAttached:
		m = Attached{SessionName: d.string()}
	case tagDetached:
		m = Detached{}
	case tagError:
		m = Error{Text: d.string()}
	case tagPong:
		m = Pong{}
	default:
		return nil, fmt.Errorf("%w: unknown server tag %d", ErrDecode, tag)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteFrame writes a length-prefixed payload: 4-byte little-endian
// length, then the payload bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed payload. Frames over MaxFrameSize
// return ErrFrameTooLarge; the caller must drop the connection.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteClient frames and writes a client message.
func WriteClient(w io.Writer, m ClientMessage) error {
	return WriteFrame(w, EncodeClient(m))
}

// ReadClient reads and decodes one client message.
func ReadClient(r io.Reader) (ClientMessage, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeClient(payload)
}

// WriteServer frames and writes a server message.
func WriteServer(w io.Writer, m ServerMessage) error {
	return WriteFrame(w, EncodeServer(m))
}

// ReadServer reads and decodes one server message.
func ReadServer(r io.Reader) (ServerMessage, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeServer(payload)
}
