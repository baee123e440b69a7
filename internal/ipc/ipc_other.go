//go:build !windows

// Package ipc provides the local transport between wtmux clients and the
// server. On non-Windows hosts (development and CI) a per-user Unix
// socket stands in for the named pipe.
package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// PipeName returns the per-user endpoint path.
func PipeName() string {
	user := os.Getenv("USER")
	if user == "" {
		user = "default"
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("wtmux-%s.sock", user))
}

// Listen creates the server endpoint, replacing a stale socket left by a
// dead server.
func Listen() (net.Listener, error) {
	path := PipeName()
	if conn, err := net.DialTimeout("unix", path, 200*time.Millisecond); err == nil {
		conn.Close()
		return nil, fmt.Errorf("ipc: server already running at %s", path)
	}
	os.Remove(path)
	return net.Listen("unix", path)
}

// Dial connects to a running server, waiting up to timeout for the
// endpoint to appear.
func Dial(timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("unix", PipeName(), timeout)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(100 * time.Millisecond)
	}
}
