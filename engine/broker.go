package engine

import (
	"time"

	"github.com/stemmix/stemmix"
)

type (
	// Broker carries the messages between the engine control loop and
	// whoever drives it (CLI, MIDI surface, tests). Communication is
	// one channel per recipient: commands and internal pass completions
	// go to ToEngine, state snapshots and alerts go to ToUI.
	//
	// FinishedEngine is never sent to, only closed, when the engine
	// control loop has exited after a QuitMsg. Waiting for it can be
	// combined with a timeout via TimeoutReceive to avoid deadlocks.
	Broker struct {
		ToEngine chan any
		ToUI     chan MsgToUI

		FinishedEngine chan struct{}
	}

	// MsgToUI is a snapshot of the engine state, sent after every
	// handled message. Infrequent payloads (alerts, export results) are
	// boxed into Data; casting pointer types to any is cheap.
	MsgToUI struct {
		State      State
		Song       stemmix.Song
		Applied    stemmix.TransformRequest
		HasApplied bool
		Mutes      [stemmix.NumStems]bool

		Data any
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToEngine:       make(chan any, 1024),
		ToUI:           make(chan MsgToUI, 1024),
		FinishedEngine: make(chan struct{}),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Returns true if the value was sent,
// false otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from
// a channel, or timing out after t. ok will be false if the timeout occurred
// or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
