// Package server hosts the multiplexing engine: the session/window/pane
// graph, copy mode, the command executor, the render compositor, and the
// dispatcher event loop that ties them to the IPC transport.
package server

import "errors"

// Error kinds. Command handlers wrap one of these; the dispatcher turns
// the message into a status-line overlay on the invoking client. Only
// ErrInternal aborts the process.
var (
	// ErrParse is a malformed command or config line.
	ErrParse = errors.New("parse error")

	// ErrTargetNotFound means no such session, window, or pane.
	ErrTargetNotFound = errors.New("target not found")

	// ErrConflict is a duplicate name.
	ErrConflict = errors.New("conflict")

	// ErrSpawnFailed is a PTY or process start failure.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrIpc is a transport or decode failure.
	ErrIpc = errors.New("ipc error")

	// ErrInternal is an invariant breach.
	ErrInternal = errors.New("internal error")
)
