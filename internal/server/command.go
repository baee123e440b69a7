package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwitch/wtmux/internal/config"
	"github.com/blackwitch/wtmux/internal/input/key"
	"github.com/blackwitch/wtmux/internal/input/keymap"
	"github.com/blackwitch/wtmux/internal/layout"
)

// Execute parses and runs one command line on behalf of a client. The
// same surface serves key bindings, the config file, and the ':' prompt;
// config-time execution passes a nil client. Errors surface as message
// overlays on the invoking client, never as protocol errors.
func (s *Server) Execute(c *Client, line string) error {
	words, err := config.Tokenize(line)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(words) == 0 {
		return nil
	}
	name, args := words[0], words[1:]

	switch name {
	case "new-session":
		return s.cmdNewSession(c, args)
	case "attach-session", "attach":
		return s.cmdAttachSession(c, args)
	case "list-sessions", "ls":
		return s.cmdListSessions(c)
	case "kill-session":
		return s.cmdKillSession(c, args)
	case "kill-server":
		s.Shutdown()
		return nil
	case "start-server":
		// The server is already running when any command executes.
		return nil

	case "new-window":
		return s.cmdNewWindow(c, args)
	case "kill-window":
		return s.cmdKillWindow(c)
	case "select-window":
		return s.cmdSelectWindow(c, args)
	case "next-window":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		sess.NextWindow()
		return nil
	case "previous-window":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		sess.PrevWindow()
		return nil
	case "last-window":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		sess.LastWindow()
		return nil
	case "rename-window":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return fmt.Errorf("%w: rename-window wants a name", ErrParse)
		}
		sess.ActiveWindow().SetName(args[0])
		return nil
	case "rename-session":
		return s.cmdRenameSession(c, args)

	case "split-window":
		return s.cmdSplitWindow(c, args)
	case "select-pane":
		return s.cmdSelectPane(c, args)
	case "kill-pane":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		s.killPane(sess, sess.ActiveWindow(), sess.ActiveWindow().ActivePaneID())
		return nil
	case "last-pane":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		sess.ActiveWindow().SelectLast()
		return nil
	case "swap-pane":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		sess.ActiveWindow().SwapPane(hasFlag(args, "-U"))
		return nil
	case "resize-pane":
		return s.cmdResizePane(c, args)
	case "next-layout":
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		sess.ActiveWindow().NextLayout()
		return nil

	case "copy-mode":
		return s.cmdCopyMode(c, hasFlag(args, "-u"))
	case "paste-buffer":
		return s.cmdPasteBuffer(c)

	case "detach-client":
		if c != nil {
			s.detachClient(c, true)
		}
		return nil

	case "set-option", "set":
		return s.cmdSetOption(args)
	case "source-file", "source":
		return s.cmdSourceFile(c, args)
	case "bind-key", "bind":
		return s.cmdBindKey(args)
	case "unbind-key", "unbind":
		return s.cmdUnbindKey(args)
	case "list-keys":
		return s.cmdListKeys(c)

	case "display-message":
		if c != nil {
			s.showMessage(c, strings.Join(args, " "))
		}
		return nil
	case "clock-mode":
		if c != nil {
			c.clockMode = true
		}
		return nil
	case "command-prompt":
		if c != nil {
			c.promptOpen = true
			c.prompt = ""
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", ErrParse, name)
	}
}

// needSession resolves the invoking client's attached session.
func (s *Server) needSession(c *Client) (*Session, error) {
	if c == nil || c.session == nil {
		return nil, fmt.Errorf("%w: no current session", ErrTargetNotFound)
	}
	return c.session, nil
}

// flagValue extracts "-x value" style arguments.
func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func (s *Server) cmdNewSession(c *Client, args []string) error {
	name, _ := flagValue(args, "-s")
	command, _ := flagValue(args, "-c")
	sess, err := s.createSession(name, command, c)
	if err != nil {
		return err
	}
	if c != nil {
		s.attach(c, sess)
	}
	return nil
}

func (s *Server) cmdAttachSession(c *Client, args []string) error {
	if c == nil {
		return fmt.Errorf("%w: attach-session needs a client", ErrParse)
	}
	name, ok := flagValue(args, "-t")
	if !ok {
		return s.attachDefault(c)
	}
	sess, found := s.sessions[name]
	if !found {
		return fmt.Errorf("%w: session %q", ErrTargetNotFound, name)
	}
	s.attach(c, sess)
	return nil
}

func (s *Server) cmdListSessions(c *Client) error {
	if c == nil {
		return nil
	}
	s.sendSessionList(c)
	return nil
}

func (s *Server) cmdKillSession(c *Client, args []string) error {
	name, ok := flagValue(args, "-t")
	if !ok {
		sess, err := s.needSession(c)
		if err != nil {
			return err
		}
		s.killSession(sess)
		return nil
	}
	sess, found := s.sessions[name]
	if !found {
		return fmt.Errorf("%w: session %q", ErrTargetNotFound, name)
	}
	s.killSession(sess)
	return nil
}

func (s *Server) cmdRenameSession(c *Client, args []string) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: rename-session wants a name", ErrParse)
	}
	name := args[len(args)-1]
	if other, exists := s.sessions[name]; exists && other != sess {
		return fmt.Errorf("%w: session %q exists", ErrConflict, name)
	}
	delete(s.sessions, sess.Name)
	sess.Name = name
	s.sessions[name] = sess
	return nil
}

func (s *Server) cmdNewWindow(c *Client, args []string) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	name, _ := flagValue(args, "-n")
	return s.createWindow(sess, name, "")
}

func (s *Server) cmdKillWindow(c *Client) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	s.killWindow(sess, sess.ActiveWindow())
	return nil
}

func (s *Server) cmdSelectWindow(c *Client, args []string) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	target, ok := flagValue(args, "-t")
	if !ok {
		return fmt.Errorf("%w: select-window wants -t", ErrParse)
	}
	switch target {
	case "+":
		sess.NextWindow()
		return nil
	case "-":
		sess.PrevWindow()
		return nil
	case "!":
		sess.LastWindow()
		return nil
	}
	idx, err := strconv.Atoi(target)
	if err != nil {
		return fmt.Errorf("%w: bad window target %q", ErrParse, target)
	}
	return sess.SelectWindow(idx)
}

func (s *Server) cmdSplitWindow(c *Client, args []string) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	orient := layout.Vertical
	if hasFlag(args, "-h") {
		orient = layout.Horizontal
	}
	return s.splitPane(sess, orient)
}

func (s *Server) cmdSelectPane(c *Client, args []string) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	win := sess.ActiveWindow()
	if target, ok := flagValue(args, "-t"); ok {
		if target == ":.+" {
			win.SelectNext()
			return nil
		}
		return fmt.Errorf("%w: pane target %q", ErrParse, target)
	}
	switch {
	case hasFlag(args, "-U"):
		win.SelectDirection(layout.Up)
	case hasFlag(args, "-D"):
		win.SelectDirection(layout.Down)
	case hasFlag(args, "-L"):
		win.SelectDirection(layout.Left)
	case hasFlag(args, "-R"):
		win.SelectDirection(layout.Right)
	default:
		return fmt.Errorf("%w: select-pane wants a direction", ErrParse)
	}
	return nil
}

func (s *Server) cmdResizePane(c *Client, args []string) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	win := sess.ActiveWindow()
	if hasFlag(args, "-Z") {
		win.ToggleZoom()
		return nil
	}
	amount := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[len(args)-1]); err == nil && n > 0 {
			amount = n
		}
	}
	switch {
	case hasFlag(args, "-U"):
		win.ResizePane(layout.Up, amount)
	case hasFlag(args, "-D"):
		win.ResizePane(layout.Down, amount)
	case hasFlag(args, "-L"):
		win.ResizePane(layout.Left, amount)
	case hasFlag(args, "-R"):
		win.ResizePane(layout.Right, amount)
	default:
		return fmt.Errorf("%w: resize-pane wants a direction or -Z", ErrParse)
	}
	return nil
}

func (s *Server) cmdCopyMode(c *Client, pageUp bool) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	pane := sess.ActivePane()
	if pane.CopyMode == nil {
		pane.CopyMode = NewCopyMode(pane.Emulator(), s.wrapSearchOn())
	}
	if pageUp {
		pane.CopyMode.ScrollUp(pane.Emulator().Rows())
	}
	return nil
}

func (s *Server) cmdPasteBuffer(c *Client) error {
	sess, err := s.needSession(c)
	if err != nil {
		return err
	}
	text, ok := s.paste.Top()
	if !ok {
		return fmt.Errorf("%w: no paste buffers", ErrTargetNotFound)
	}
	pane := sess.ActivePane()
	data := []byte(text)
	if pane.Emulator().BracketedPaste() {
		wrapped := make([]byte, 0, len(data)+12)
		wrapped = append(wrapped, "\x1b[200~"...)
		wrapped = append(wrapped, data...)
		wrapped = append(wrapped, "\x1b[201~"...)
		data = wrapped
	}
	s.writePane(pane, data)
	return nil
}

func (s *Server) cmdSetOption(args []string) error {
	// -g is accepted and ignored; all options are server-global.
	if len(args) > 0 && args[0] == "-g" {
		args = args[1:]
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: set-option wants a name and value", ErrParse)
	}
	name := args[0]
	value := strings.Join(args[1:], " ")
	if err := s.opts.Set(name, value); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	s.applyOptions()
	return nil
}

func (s *Server) cmdSourceFile(c *Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: source-file wants a path", ErrParse)
	}
	lines, err := config.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	// Later commands override earlier ones; a bad line reports but does
	// not stop the rest of the file.
	var firstErr error
	for _, line := range lines {
		if err := s.Execute(c, line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// parseBindArgs splits bind-key/unbind-key argument lists into the table,
// the chord, and the remaining words.
func (s *Server) parseBindArgs(args []string) (*keymap.Table, key.Chord, []string, error) {
	table := s.keymap.Prefix
	if len(args) > 0 && args[0] == "-n" {
		table = s.keymap.Root
		args = args[1:]
	}
	if len(args) == 0 {
		return nil, key.Chord{}, nil, fmt.Errorf("%w: missing key", ErrParse)
	}
	chord, err := key.Parse(args[0])
	if err != nil {
		return nil, key.Chord{}, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return table, chord, args[1:], nil
}

func (s *Server) cmdBindKey(args []string) error {
	table, chord, rest, err := s.parseBindArgs(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: bind-key wants a command", ErrParse)
	}
	table.Bind(chord, joinCommand(rest))
	return nil
}

func (s *Server) cmdUnbindKey(args []string) error {
	table, chord, _, err := s.parseBindArgs(args)
	if err != nil {
		return err
	}
	table.Unbind(chord)
	return nil
}

func (s *Server) cmdListKeys(c *Client) error {
	if c == nil {
		return nil
	}
	var b strings.Builder
	for _, binding := range s.keymap.Root.List() {
		fmt.Fprintf(&b, "bind-key -n %s %s; ", binding.Chord, binding.Command)
	}
	for _, binding := range s.keymap.Prefix.List() {
		fmt.Fprintf(&b, "bind-key %s %s; ", binding.Chord, binding.Command)
	}
	s.showMessage(c, strings.TrimSuffix(b.String(), "; "))
	return nil
}

// joinCommand reassembles tokenized command words, re-quoting words with
// spaces so the stored command re-tokenizes identically.
func joinCommand(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		if strings.ContainsAny(w, " \t\"'\\#") {
			quoted[i] = strconv.Quote(w)
		} else {
			quoted[i] = w
		}
	}
	return strings.Join(quoted, " ")
}
