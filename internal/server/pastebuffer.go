package server

// PasteBuffers is the server-wide LIFO stack of captured text buffers.
// Paste uses the top buffer without removing it, matching tmux semantics.
type PasteBuffers struct {
	stack []pasteBuffer
	limit int
}

type pasteBuffer struct {
	name string
	text string
}

// NewPasteBuffers creates a stack bounded to limit buffers; the oldest
// drops when full.
func NewPasteBuffers(limit int) *PasteBuffers {
	return &PasteBuffers{limit: limit}
}

// Push adds a buffer to the top of the stack.
func (p *PasteBuffers) Push(text string) {
	p.PushNamed("", text)
}

// PushNamed adds a named buffer to the top of the stack.
func (p *PasteBuffers) PushNamed(name, text string) {
	if p.limit > 0 && len(p.stack) >= p.limit {
		p.stack = append(p.stack[:0], p.stack[1:]...)
	}
	p.stack = append(p.stack, pasteBuffer{name: name, text: text})
}

// Top returns the most recent buffer without removing it.
func (p *PasteBuffers) Top() (string, bool) {
	if len(p.stack) == 0 {
		return "", false
	}
	return p.stack[len(p.stack)-1].text, true
}

// Named returns a buffer by name.
func (p *PasteBuffers) Named(name string) (string, bool) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].name == name {
			return p.stack[i].text, true
		}
	}
	return "", false
}

// Len returns the number of buffers held.
func (p *PasteBuffers) Len() int {
	return len(p.stack)
}
