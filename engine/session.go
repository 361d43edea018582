package engine

import (
	"fmt"
	"time"

	"github.com/stemmix/stemmix"
)

// Session is one synchronized playback of the current playable
// buffers: an ordered set of per-stem handles, all anchored to a single
// shared start timestamp. A session exists only between a start and
// the matching stop; stopping tears the whole thing down, there is no
// partial teardown and no resynchronization once started.
type Session struct {
	handles []stemmix.PlaybackHandle
	started time.Time
}

// startLead is how far in the future the shared reference timestamp is
// placed, so that every handle can be told about it before any of them
// is due to make sound.
const startLead = 25 * time.Millisecond

// startSession prepares a handle for every stem with a playable buffer
// and starts them all against one captured timestamp. Mute routing is
// decided here, once, and stays fixed for the lifetime of the session.
// If any handle cannot be prepared, the ones already prepared are
// stopped and no session comes into existence.
func startSession(sink stemmix.PlaybackSink, tracks *TrackSet, mutes *MuteRouter) (*Session, error) {
	s := &Session{}
	for _, stem := range stemmix.Stems() {
		buffer := tracks[stem].Playable
		if buffer == nil {
			continue
		}
		handle, err := sink.Prepare(buffer, mutes.Muted(stem))
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("preparing %v for playback: %w", stem, err)
		}
		s.handles = append(s.handles, handle)
	}
	if len(s.handles) == 0 {
		return nil, fmt.Errorf("no stems to play")
	}
	s.started = time.Now().Add(startLead)
	for _, handle := range s.handles {
		handle.StartAt(s.started)
	}
	return s, nil
}

// Stop halts every still-running handle unconditionally and discards
// them. Stopping an already-finished or already-stopped session is a
// no-op.
func (s *Session) Stop() {
	for _, handle := range s.handles {
		handle.Stop()
	}
	s.handles = nil
}

// Active reports whether any handle is still producing output. A
// session whose every stem reached its natural end of data counts as
// ended even though Stop was never called.
func (s *Session) Active() bool {
	for _, handle := range s.handles {
		if handle.Playing() {
			return true
		}
	}
	return false
}

// StartedAt returns the shared reference timestamp of the session.
func (s *Session) StartedAt() time.Time {
	return s.started
}
