/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"sync"
)

// Navigator is where the room view sends the user when it is done with
// them.
type Navigator interface {
	// Notice shows a message the user has to acknowledge.
	Notice(msg string)
	ToLobby()
}

type terminalNavigator struct {
	mu      sync.Mutex
	out     io.Writer
	notices int
	lobby   bool
}

func newTerminalNavigator(out io.Writer) *terminalNavigator {
	return &terminalNavigator{out: out}
}

func (n *terminalNavigator) Notice(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notices++
	fmt.Fprintf(n.out, "\n!! %s\n", msg)
}

func (n *terminalNavigator) ToLobby() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.lobby = true
	fmt.Fprintln(n.out, "Back in the lobby. Create a room or join one with a code.")
}

func (n *terminalNavigator) InLobby() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.lobby
}
