//go:build windows

// Package ipc provides the local transport between wtmux clients and the
// server: a named pipe scoped to the current user.
package ipc

import (
	"net"
	"os"
	"time"

	"github.com/Microsoft/go-winio"
)

// PipeName returns the per-user endpoint name.
func PipeName() string {
	user := os.Getenv("USERNAME")
	if user == "" {
		user = "default"
	}
	return `\\.\pipe\wtmux-` + user
}

// Listen creates the server endpoint. Fails if another server already
// owns the pipe.
func Listen() (net.Listener, error) {
	return winio.ListenPipe(PipeName(), nil)
}

// Dial connects to a running server, waiting up to timeout for the pipe
// to appear.
func Dial(timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := winio.DialPipe(PipeName(), &timeout)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(100 * time.Millisecond)
	}
}
