package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/blackwitch/wtmux/internal/config"
	"github.com/blackwitch/wtmux/internal/input/key"
	"github.com/blackwitch/wtmux/internal/input/keymap"
	"github.com/blackwitch/wtmux/internal/layout"
	"github.com/blackwitch/wtmux/internal/pty"
	"github.com/blackwitch/wtmux/internal/wire"
)

// maxPaneWrite bounds one forwarded write to a PTY; anything larger is
// truncated with a logged warning rather than blocking the dispatcher.
const maxPaneWrite = 64 << 10

// Server is the multiplexing engine. The object graph is owned
// exclusively by the dispatcher goroutine; PTY readers, client readers,
// and the timer only post events.
type Server struct {
	log     pslog.Logger
	spawner pty.Spawner

	opts     *config.Options
	keymap   *keymap.Keymap
	renderer *Renderer

	sessions map[string]*Session
	clients  map[uuid.UUID]*Client
	paste    *PasteBuffers

	events chan event
	done   chan struct{}

	nextPaneID layout.PaneID
	shutdown   bool

	listener net.Listener
	watcher  *config.Watcher
}

// New creates a server with default options, the stock key bindings, and
// the given PTY spawner.
func New(spawner pty.Spawner, logger pslog.Logger) *Server {
	opts := config.Default()
	s := &Server{
		log:      logger,
		spawner:  spawner,
		opts:     opts,
		keymap:   keymap.Default(),
		sessions: make(map[string]*Session),
		clients:  make(map[uuid.UUID]*Client),
		paste:    NewPasteBuffers(50),
		events:   make(chan event, 256),
		done:     make(chan struct{}),
	}
	s.renderer = NewRenderer(opts)
	return s
}

// Options exposes the option map (dispatcher-owned).
func (s *Server) Options() *config.Options {
	return s.opts
}

// SourceConfig loads and applies the user config file if present.
func (s *Server) SourceConfig(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := s.Execute(nil, "source-file "+strconv.Quote(path)); err != nil {
		s.log.Warn("config error", "path", path, "err", err)
	}
}

// WatchConfig re-sources the config file whenever it changes on disk.
func (s *Server) WatchConfig(path string) {
	if path == "" {
		return
	}
	w, err := config.Watch(path, func() {
		s.post(evConfigReload{})
	})
	if err != nil {
		s.log.Warn("config watch failed", "path", path, "err", err)
		return
	}
	s.watcher = w
}

// Serve accepts connections until Shutdown. The dispatcher runs on the
// calling goroutine; the accept loop and per-connection readers run as
// workers.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	go s.acceptLoop(ln)
	go s.tickLoop()
	s.run()
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Error("accept failed", "err", err)
			}
			return
		}
		s.AddConn(conn)
	}
}

// AddConn registers a connection and starts its reader worker. Exposed
// for transports that accept outside the server (and for tests using
// net.Pipe).
func (s *Server) AddConn(conn net.Conn) *Client {
	c := newClient(conn)
	go s.clientReader(c)
	return c
}

func (s *Server) clientReader(c *Client) {
	for {
		msg, err := wire.ReadClient(c.conn)
		if err != nil {
			s.post(evClientGone{client: c})
			return
		}
		s.post(evClientMessage{client: c, msg: msg})
	}
}

func (s *Server) tickLoop() {
	interval := time.Duration(s.opts.StatusInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			s.post(evTick{now: now})
		case <-s.done:
			return
		}
	}
}

func (s *Server) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// run is the dispatcher loop: drain a batch of events, then run one
// render pass per affected client.
func (s *Server) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handle(ev)
		drain:
			for {
				select {
				case ev := <-s.events:
					s.handle(ev)
				default:
					break drain
				}
			}
			s.renderAll()
			if s.shutdown {
				// Shutdown already closed done.
				return
			}
		}
	}
}

// RunOnce processes all queued events and renders; tests drive the
// dispatcher with it instead of Serve.
func (s *Server) RunOnce() {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		default:
			s.renderAll()
			return
		}
	}
}

func (s *Server) handle(ev event) {
	switch e := ev.(type) {
	case evClientMessage:
		s.handleClientMessage(e.client, e.msg)
	case evClientGone:
		s.dropClient(e.client)
	case evPaneOutput:
		s.handlePaneOutput(e.pane, e.data)
	case evPaneExit:
		s.handlePaneExit(e.pane)
	case evTick:
		s.handleTick(e.now)
	case evConfigReload:
		s.SourceConfig(config.Path())
	}
}

func (s *Server) handleClientMessage(c *Client, msg wire.ClientMessage) {
	if _, known := s.clients[c.id]; !known {
		s.clients[c.id] = c
	}

	switch m := msg.(type) {
	case wire.Hello:
		c.rows = int(m.Rows)
		c.cols = int(m.Cols)
		c.send(wire.Welcome{ServerVersion: wire.ProtocolVersion})

	case wire.AttachSession:
		if m.HasName {
			sess, ok := s.sessions[m.Name]
			if !ok {
				c.send(wire.Error{Text: fmt.Sprintf("no such session: %s", m.Name)})
				return
			}
			s.attach(c, sess)
			return
		}
		if err := s.attachDefault(c); err != nil {
			c.send(wire.Error{Text: err.Error()})
		}

	case wire.NewSession:
		name := ""
		if m.HasName {
			name = m.Name
		}
		command := ""
		if m.HasCommand {
			command = m.Command
		}
		sess, err := s.createSession(name, command, c)
		if err != nil {
			c.send(wire.Error{Text: err.Error()})
			return
		}
		s.attach(c, sess)

	case wire.ListSessions:
		s.sendSessionList(c)

	case wire.KillSession:
		sess, ok := s.sessions[m.Name]
		if !ok {
			c.send(wire.Error{Text: fmt.Sprintf("no such session: %s", m.Name)})
			return
		}
		s.killSession(sess)
		c.send(wire.Message{Text: fmt.Sprintf("killed session %s", m.Name)})

	case wire.KillServer:
		s.Shutdown()

	case wire.Input:
		s.handleInput(c, m.Bytes)

	case wire.Resize:
		if m.Rows == 0 || m.Cols == 0 {
			c.send(wire.Error{Text: "bad resize: zero dimension"})
			return
		}
		c.rows = int(m.Rows)
		c.cols = int(m.Cols)
		c.lastFrame = nil
		s.resizeSessionFor(c)

	case wire.Command:
		if err := s.Execute(c, m.Line); err != nil {
			s.commandError(c, err)
			s.log.Debug("command failed", "line", m.Line, "err", err)
		}

	case wire.Detach:
		s.detachClient(c, true)

	case wire.Ping:
		c.send(wire.Pong{})
	}
}

func (s *Server) dropClient(c *Client) {
	if c.conn != nil {
		c.conn.Close()
	}
	c.gone = true
	delete(s.clients, c.id)
	s.log.Info("client disconnected", "client", c.id)
}

func (s *Server) handlePaneOutput(pane *Pane, data []byte) {
	pane.Feed(data)

	sess, win := s.locatePane(pane)
	if sess == nil {
		return
	}
	if s.opts.AutomaticRename && win.ActivePaneID() == pane.ID {
		win.AutoRename()
	}
	if pane.Emulator().TakeBell() {
		for _, c := range s.clients {
			if c.session == sess {
				c.send(wire.Bell{})
			}
		}
	}
}

func (s *Server) handlePaneExit(pane *Pane) {
	pane.MarkDead()
	sess, win := s.locatePane(pane)
	if sess == nil {
		return
	}
	s.log.Info("pane exited", "pane", int(pane.ID), "session", sess.Name)
	s.removePaneFromGraph(sess, win, pane.ID)
}

func (s *Server) handleTick(now time.Time) {
	for _, c := range s.clients {
		if c.message != "" && !c.messageActive(now) {
			c.message = ""
			c.lastFrame = nil
		}
	}
}

// locatePane finds the window owning a pane.
func (s *Server) locatePane(pane *Pane) (*Session, *Window) {
	for _, sess := range s.sessions {
		for _, win := range sess.Windows() {
			if _, ok := win.Pane(pane.ID); ok {
				return sess, win
			}
		}
	}
	return nil, nil
}

// --- session/window/pane lifecycle ---

// sessionArea converts a client terminal size into the window rectangle,
// reserving the status row when enabled.
func (s *Server) sessionArea(cols, rows int) layout.Rect {
	h := rows
	if s.opts.Status {
		h--
	}
	return layout.Rect{X: 0, Y: 0, W: max(cols, 1), H: max(h, 1)}
}

func (s *Server) spawnPane(command string, size pty.Size) (*Pane, error) {
	if command == "" {
		command = s.opts.DefaultShell
	}
	env := append(os.Environ(), "TERM="+s.opts.DefaultTerminal)
	p, err := s.spawner.Spawn(pty.SpawnOptions{
		Command: command,
		Env:     env,
		Size:    size,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	s.nextPaneID++
	pane := newPane(s.nextPaneID, p, size, s.opts.HistoryLimit)
	go s.paneReader(pane)
	return pane, nil
}

func (s *Server) paneReader(pane *Pane) {
	buf := make([]byte, 8192)
	for {
		n, err := pane.pty.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			s.post(evPaneOutput{pane: pane, data: data})
		}
		if err != nil {
			s.post(evPaneExit{pane: pane})
			return
		}
	}
}

// createSession builds a session with one window and one pane. A partial
// spawn failure rolls everything back.
func (s *Server) createSession(name, command string, c *Client) (*Session, error) {
	if name == "" {
		for i := 0; ; i++ {
			candidate := strconv.Itoa(i)
			if _, taken := s.sessions[candidate]; !taken {
				name = candidate
				break
			}
		}
	}
	if _, taken := s.sessions[name]; taken {
		return nil, fmt.Errorf("%w: session %q exists", ErrConflict, name)
	}

	cols, rows := 80, 24
	if c != nil {
		cols, rows = c.cols, c.rows
	}
	area := s.sessionArea(cols, rows)

	pane, err := s.spawnPane(command, pty.Size{Rows: area.H, Cols: area.W})
	if err != nil {
		return nil, err
	}

	win := newWindow(s.opts.BaseIndex, windowBaseName(command, s.opts.DefaultShell), pane, area)
	sess := newSession(name, win, s.opts.BaseIndex)
	sess.SetRenumber(s.opts.RenumberWindows)
	s.sessions[name] = sess
	s.log.Info("session created", "session", name)
	return sess, nil
}

// windowBaseName derives the initial window name from its command: the
// executable's base name without extension.
func windowBaseName(command, defaultShell string) string {
	if command == "" {
		command = defaultShell
	}
	base := command
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, ' '); i >= 0 {
		base = base[:i]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return "shell"
	}
	return strings.ToLower(base)
}

// createWindow adds a window to a session. A user-supplied name is
// pinned against automatic-rename.
func (s *Server) createWindow(sess *Session, name, command string) error {
	area := sess.ActiveWindow().Area()
	pane, err := s.spawnPane(command, pty.Size{Rows: area.H, Cols: area.W})
	if err != nil {
		return err
	}
	win := newWindow(sess.NextFreeIndex(), windowBaseName(command, s.opts.DefaultShell), pane, area)
	if name != "" {
		win.SetName(name)
	}
	sess.AddWindow(win)
	return nil
}

// splitPane splits the active pane of the session's active window.
func (s *Server) splitPane(sess *Session, o layout.Orientation) error {
	win := sess.ActiveWindow()
	rects := win.Rects()
	rect, ok := rects[win.ActivePaneID()]
	if !ok {
		return fmt.Errorf("%w: active pane has no rectangle", ErrInternal)
	}

	size := pty.Size{Rows: rect.H, Cols: rect.W}
	if o == layout.Horizontal {
		size.Cols = max(rect.W/2, 1)
	} else {
		size.Rows = max(rect.H/2, 1)
	}

	pane, err := s.spawnPane("", size)
	if err != nil {
		return err
	}
	if err := win.Split(pane, o, layout.After); err != nil {
		pane.Kill()
		return err
	}
	return nil
}

// killPane terminates a pane's child and removes it from the graph.
func (s *Server) killPane(sess *Session, win *Window, id layout.PaneID) {
	if pane, ok := win.Pane(id); ok {
		pane.Kill()
	}
	s.removePaneFromGraph(sess, win, id)
}

// removePaneFromGraph drops a pane and cascades: empty window dies, and
// the session dies with its last window.
func (s *Server) removePaneFromGraph(sess *Session, win *Window, id layout.PaneID) {
	if empty := win.RemovePane(id); empty {
		s.killWindow(sess, win)
	}
}

// killWindow kills every pane in the window and removes it.
func (s *Server) killWindow(sess *Session, win *Window) {
	for _, pane := range win.Panes() {
		pane.Kill()
	}
	if empty := sess.RemoveWindow(win); empty {
		s.killSession(sess)
	}
}

// killSession destroys all windows and detaches its clients. The server
// keeps running with no sessions and exits only on kill-server.
func (s *Server) killSession(sess *Session) {
	for _, win := range sess.Windows() {
		for _, pane := range win.Panes() {
			pane.Kill()
		}
	}
	delete(s.sessions, sess.Name)
	for _, c := range s.clients {
		if c.session == sess {
			c.session = nil
			c.send(wire.Detached{})
		}
	}
	s.log.Info("session killed", "session", sess.Name)
}

func (s *Server) attach(c *Client, sess *Session) {
	c.session = sess
	c.lastFrame = nil
	c.prefixed = false
	c.promptOpen = false
	s.resizeSessionFor(c)
	c.send(wire.Attached{SessionName: sess.Name})
	s.log.Info("client attached", "client", c.id, "session", sess.Name)
}

// attachDefault attaches the first existing session (lowest name), or
// creates the default session.
func (s *Server) attachDefault(c *Client) error {
	var best *Session
	for _, sess := range s.sessions {
		if best == nil || sess.Name < best.Name {
			best = sess
		}
	}
	if best == nil {
		created, err := s.createSession("", "", c)
		if err != nil {
			return err
		}
		best = created
	}
	s.attach(c, best)
	return nil
}

func (s *Server) detachClient(c *Client, notify bool) {
	c.session = nil
	c.lastFrame = nil
	if notify {
		c.send(wire.Detached{})
	}
	s.log.Info("client detached", "client", c.id)
}

func (s *Server) resizeSessionFor(c *Client) {
	if c.session == nil {
		return
	}
	c.session.SetArea(s.sessionArea(c.cols, c.rows))
}

func (s *Server) sendSessionList(c *Client) {
	items := make([]wire.SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		attached := uint32(0)
		for _, cl := range s.clients {
			if cl.session == sess {
				attached++
			}
		}
		items = append(items, wire.SessionInfo{
			Name:      sess.Name,
			Windows:   uint32(sess.WindowCount()),
			Attached:  attached,
			CreatedAt: sess.Created.Unix(),
		})
	}
	sortSessionInfos(items)
	c.send(wire.SessionList{Items: items})
}

func sortSessionInfos(items []wire.SessionInfo) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Name < items[j-1].Name; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// commandError surfaces a failed command as a message overlay. An
// invariant breach is the one kind that aborts the process, after
// logging.
func (s *Server) commandError(c *Client, err error) {
	if errors.Is(err, ErrInternal) {
		s.log.Error("invariant breach", "err", err)
		panic(err)
	}
	s.showMessage(c, err.Error())
}

// showMessage installs a transient overlay on one client.
func (s *Server) showMessage(c *Client, text string) {
	if c == nil {
		return
	}
	c.message = text
	c.messageUntil = time.Now().Add(time.Duration(s.opts.DisplayTime) * time.Millisecond)
	c.lastFrame = nil
}

// applyOptions propagates option changes that affect live state.
func (s *Server) applyOptions() {
	for _, sess := range s.sessions {
		sess.SetRenumber(s.opts.RenumberWindows)
	}
	for _, c := range s.clients {
		s.resizeSessionFor(c)
		c.lastFrame = nil
	}
}

// wrapSearch mirrors the option for copy-mode construction.
func (s *Server) wrapSearchOn() bool {
	return s.opts.WrapSearch
}

// Shutdown gracefully detaches every client, kills all sessions, and
// stops the server.
func (s *Server) Shutdown() {
	if s.shutdown {
		return
	}
	s.shutdown = true
	for _, c := range s.clients {
		c.send(wire.Detached{})
		if c.conn != nil {
			c.conn.Close()
		}
	}
	for _, sess := range s.sessions {
		for _, win := range sess.Windows() {
			for _, pane := range win.Panes() {
				pane.Kill()
			}
		}
		delete(s.sessions, sess.Name)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.log.Info("server shut down")
}

// Done is closed when the server has fully stopped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// writePane forwards bytes to a pane's PTY with the bounded-write policy.
func (s *Server) writePane(pane *Pane, data []byte) {
	if len(data) > maxPaneWrite {
		s.log.Warn("pane write truncated", "pane", int(pane.ID), "dropped", len(data)-maxPaneWrite)
		data = data[:maxPaneWrite]
	}
	if err := pane.WriteInput(data); err != nil {
		s.log.Warn("pane write failed", "pane", int(pane.ID), "err", err)
	}
}

// --- input routing ---

// handleInput decodes a raw input chunk and routes each event through
// the command prompt, copy mode, the prefix machine, and the key tables;
// whatever nothing consumes passes to the active pane verbatim.
func (s *Server) handleInput(c *Client, data []byte) {
	c.clearTransient()
	c.decoder.Put(data)

	var passthrough []byte
	flushPassthrough := func() {
		if len(passthrough) > 0 && c.session != nil {
			s.writePane(c.session.ActivePane(), passthrough)
			passthrough = nil
		}
	}

	for {
		ev, ok := c.decoder.Next()
		if !ok {
			ev, ok = c.decoder.Flush()
			if !ok {
				break
			}
		}

		if ev.Kind == key.EventMouse {
			flushPassthrough()
			s.handleMouse(c, ev)
			continue
		}

		if c.clockMode {
			c.clockMode = false
			c.lastFrame = nil
			continue
		}

		if c.promptOpen {
			flushPassthrough()
			s.handlePromptKey(c, ev.Chord)
			continue
		}

		if c.session != nil {
			pane := c.session.ActivePane()
			if pane != nil && pane.CopyMode != nil && c.session.ActiveWindow() != nil {
				flushPassthrough()
				res := pane.CopyMode.HandleKey(ev.Chord)
				if res.HasCopied && res.Copied != "" {
					s.paste.Push(res.Copied)
				}
				if res.Exited {
					pane.CopyMode = nil
				}
				continue
			}
		}

		if c.prefixed {
			c.prefixed = false
			flushPassthrough()
			if ev.Chord == s.opts.Prefix {
				// Prefix twice sends the prefix itself to the pane.
				passthrough = append(passthrough, ev.Raw...)
				continue
			}
			if cmd, bound := s.keymap.Prefix.Lookup(ev.Chord); bound {
				if err := s.Execute(c, cmd); err != nil {
					s.commandError(c, err)
				}
			} else {
				c.send(wire.Bell{})
			}
			continue
		}

		if ev.Chord == s.opts.Prefix {
			flushPassthrough()
			c.prefixed = true
			continue
		}

		if cmd, bound := s.keymap.Root.Lookup(ev.Chord); bound {
			flushPassthrough()
			if err := s.Execute(c, cmd); err != nil {
				s.commandError(c, err)
			}
			continue
		}

		passthrough = append(passthrough, ev.Raw...)
	}
	flushPassthrough()
}

// handlePromptKey edits the ':' prompt buffer.
func (s *Server) handlePromptKey(c *Client, ch key.Chord) {
	switch {
	case ch == key.Special(key.CodeEnter):
		line := c.prompt
		c.promptOpen = false
		c.prompt = ""
		c.lastFrame = nil
		if line != "" {
			if err := s.Execute(c, line); err != nil {
				s.commandError(c, err)
			}
		}
	case ch == key.Special(key.CodeEscape):
		c.promptOpen = false
		c.prompt = ""
		c.lastFrame = nil
	case ch == key.Special(key.CodeBackspace):
		if len(c.prompt) > 0 {
			c.prompt = c.prompt[:len(c.prompt)-1]
		}
	case ch.Code == key.CodeRune && !ch.Modifiers.Has(key.ModCtrl) && !ch.Modifiers.Has(key.ModAlt):
		c.prompt += string(ch.Rune)
	}
}

// handleMouse implements click-to-select and wheel scrolling when the
// mouse option is on; otherwise raw reports pass to the pane, which may
// have asked for them itself.
func (s *Server) handleMouse(c *Client, ev key.Event) {
	if c.session == nil {
		return
	}
	sess := c.session
	win := sess.ActiveWindow()

	if !s.opts.Mouse {
		pane := sess.ActivePane()
		if pane != nil && pane.Emulator().Mouse() != 0 {
			s.writePane(pane, ev.Raw)
		}
		return
	}

	switch ev.Button {
	case key.MouseLeft:
		if ev.Release {
			return
		}
		for id, rect := range win.Rects() {
			if rect.Contains(ev.Col, ev.Row) {
				win.SelectPane(id)
				return
			}
		}
	case key.MouseWheelUp:
		pane := sess.ActivePane()
		if pane == nil {
			return
		}
		if pane.CopyMode == nil {
			pane.CopyMode = NewCopyMode(pane.Emulator(), s.wrapSearchOn())
		}
		pane.CopyMode.ScrollUp(3)
	case key.MouseWheelDown:
		pane := sess.ActivePane()
		if pane != nil && pane.CopyMode != nil {
			pane.CopyMode.ScrollDown(3)
		}
	}
}

// --- rendering ---

// renderAll emits one frame per attached client whose view changed.
func (s *Server) renderAll() {
	now := time.Now()
	for _, c := range s.clients {
		if c.gone || c.session == nil || c.rows <= 0 || c.cols <= 0 {
			continue
		}

		var frame *Frame
		if c.clockMode {
			frame = s.renderer.ComposeClock(c.session, c.cols, c.rows, now)
		} else {
			frame = s.renderer.Compose(c.session, c.cols, c.rows, overlayState{
				prompt:       c.prompt,
				promptOpen:   c.promptOpen,
				message:      c.message,
				messageShown: c.messageActive(now),
			}, now)
		}

		if c.lastFrame != nil && frame.Equal(c.lastFrame) {
			continue
		}
		bytes := Encode(c.lastFrame, frame)
		if c.send(wire.Frame{Bytes: bytes}) {
			c.lastFrame = frame
		}
	}
}
