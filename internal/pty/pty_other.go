//go:build !windows

package pty

import "errors"

// NewSpawner returns the platform spawner. wtmux targets Windows ConPTY;
// on other hosts the server runs (for development and tests drive it with
// the fake), but real panes cannot be spawned.
func NewSpawner() Spawner {
	return unsupportedSpawner{}
}

type unsupportedSpawner struct{}

func (unsupportedSpawner) Spawn(SpawnOptions) (Pty, error) {
	return nil, errors.New("pty: pseudo-terminals require Windows ConPTY")
}
