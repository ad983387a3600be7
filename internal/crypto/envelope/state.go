// Package envelope implements the six-packet mutual-authentication
// handshake and the per-connection AEAD envelope that protects every
// packet sent after the handshake completes.
package envelope

import (
	"fmt"

	protoerr "github.com/asciichat/asciichat/internal/errors"
)

// State is the handshake finite state machine's current phase.
type State int

const (
	StateInit State = iota
	StateKexSent
	StateKexCompleted
	StateChallengeSent
	StateAuthenticated
	StateReady
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateKexSent:
		return "KexSent"
	case StateKexCompleted:
		return "KexCompleted"
	case StateChallengeSent:
		return "ChallengeSent"
	case StateAuthenticated:
		return "Authenticated"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// fsm is the small shared state-transition tracker used by both the server
// and client handshake drivers: a struct with one guarded transition method
// per step, returning a typed error on any out-of-order call.
type fsm struct {
	state State
}

func newFSM() *fsm { return &fsm{state: StateInit} }

func (f *fsm) transition(from, to State, op string) error {
	if f.state != from {
		f.state = StateFailed
		return protoerr.NewStateError(op, fmt.Errorf("invalid transition from %s (expected %s)", f.state, from))
	}
	f.state = to
	return nil
}

func (f *fsm) fail(op string, cause error) error {
	f.state = StateFailed
	return protoerr.NewCryptoError(op, cause)
}
